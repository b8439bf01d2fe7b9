package catalog

import "github.com/starford/atelier/internal/schema"

// Builtin returns the blocks compiled into the application. Each call
// returns fresh values.
func Builtin() []schema.BlockManifest {
	blocks := []schema.BlockManifest{
		{
			BlockID:  "cta.banner.v1",
			Name:     "Call to action banner",
			Category: "cta",
			Tags:     []string{"cta", "banner"},
			PropsSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"headline":    map[string]any{"type": "string"},
					"buttonLabel": map[string]any{"type": "string"},
					"buttonHref":  map[string]any{"type": "string"},
				},
			},
			EditorSchema: map[string]any{"fields": []any{"headline", "buttonLabel", "buttonHref"}},
			Runtime:      schema.BlockRuntime{Entry: "blocks/cta-banner/index.js"},
			Export:       schema.BlockExport{AstroTemplate: "blocks/cta-banner/CtaBanner.astro"},
			Dependencies: map[string]string{"clsx": "2.1.0"},
			Version:      "1.0.0",
		},
		{
			BlockID:  "footer.simple.v1",
			Name:     "Simple footer",
			Category: "footer",
			Tags:     []string{"footer", "navigation"},
			PropsSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"copyright": map[string]any{"type": "string"},
				},
			},
			EditorSchema: map[string]any{"fields": []any{"copyright"}},
			Runtime:      schema.BlockRuntime{Entry: "blocks/footer-simple/index.js"},
			Export:       schema.BlockExport{AstroTemplate: "blocks/footer-simple/FooterSimple.astro"},
			Version:      "1.0.0",
		},
		{
			BlockID:  "hero.split.v1",
			Name:     "Split hero",
			Category: "hero",
			Tags:     []string{"hero", "image"},
			PropsSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"headline": map[string]any{"type": "string"},
					"imageUrl": map[string]any{"type": "string"},
					"reverse":  map[string]any{"type": "boolean"},
				},
			},
			EditorSchema: map[string]any{"fields": []any{"headline", "imageUrl", "reverse"}},
			Runtime:      schema.BlockRuntime{Entry: "blocks/hero-split/index.js"},
			Export:       schema.BlockExport{AstroTemplate: "blocks/hero-split/HeroSplit.astro"},
			Dependencies: map[string]string{"clsx": "2.1.0"},
			Version:      "1.0.0",
		},
		{
			BlockID:  "text.rich.v1",
			Name:     "Rich text",
			Category: "content",
			Tags:     []string{"text"},
			PropsSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"align": map[string]any{"type": "string", "enum": []any{"left", "center", "right"}},
				},
			},
			EditorSchema: map[string]any{"fields": []any{"align"}, "contentSlots": []any{"body"}},
			Runtime:      schema.BlockRuntime{Entry: "blocks/text-rich/index.js"},
			Export:       schema.BlockExport{AstroTemplate: "blocks/text-rich/TextRich.astro"},
			Version:      "1.0.0",
		},
	}
	for i := range blocks {
		blocks[i].ApplyDefaults()
	}
	return blocks
}

// BuiltinResult wraps Builtin as a scan result with no errors.
func BuiltinResult() Result {
	return Result{Manifests: Builtin(), Errors: []ManifestError{}}
}
