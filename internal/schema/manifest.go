package schema

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var blockIDRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// BlockManifest is a block.manifest.json. PropsSchema and EditorSchema are
// plugin-authored and only checked to be JSON objects.
type BlockManifest struct {
	BlockID      string            `json:"blockId"`
	Name         string            `json:"name"`
	Category     string            `json:"category"`
	Tags         []string          `json:"tags"`
	PropsSchema  map[string]any    `json:"propsSchema"`
	EditorSchema map[string]any    `json:"editorSchema"`
	Runtime      BlockRuntime      `json:"runtime"`
	Export       BlockExport       `json:"export"`
	Dependencies map[string]string `json:"dependencies"`
	Version      string            `json:"version"`
}

// BlockRuntime locates the block's editor runtime module.
type BlockRuntime struct {
	Entry string `json:"entry"`
}

// Validate validates the runtime section.
func (r BlockRuntime) Validate() error {
	return validation.ValidateStruct(&r, validation.Field(&r.Entry, validation.Required))
}

// BlockExport locates the block's export template.
type BlockExport struct {
	AstroTemplate string `json:"astroTemplate"`
}

// Validate validates the export section.
func (e BlockExport) Validate() error {
	return validation.ValidateStruct(&e, validation.Field(&e.AstroTemplate, validation.Required))
}

// ApplyDefaults fills optional manifest fields.
func (m *BlockManifest) ApplyDefaults() {
	if m.Tags == nil {
		m.Tags = []string{}
	}
	if m.PropsSchema == nil {
		m.PropsSchema = map[string]any{}
	}
	if m.EditorSchema == nil {
		m.EditorSchema = map[string]any{}
	}
	if m.Dependencies == nil {
		m.Dependencies = map[string]string{}
	}
}

// Validate validates the manifest.
func (m *BlockManifest) Validate() error {
	return validation.ValidateStruct(m,
		validation.Field(&m.BlockID, validation.Required, validation.Match(blockIDRe)),
		validation.Field(&m.Name, validation.Required),
		validation.Field(&m.Category, validation.Required),
		validation.Field(&m.Tags, validation.Each(validation.Required)),
		validation.Field(&m.Runtime),
		validation.Field(&m.Export),
		validation.Field(&m.Dependencies, validation.Each(validation.Required)),
		validation.Field(&m.Version, validation.Required, validation.Match(versionRe)),
	)
}
