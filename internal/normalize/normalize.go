// Package normalize projects raw page and theme documents into the fully
// resolved form consumed by the editor and exporters.
package normalize

import (
	"sort"

	"github.com/starford/atelier/internal/ident"
	"github.com/starford/atelier/internal/schema"
)

// PageIR is a page with every default resolved and content references
// replaced by the referenced record data.
type PageIR struct {
	PageID string            `json:"pageId"`
	Route  string            `json:"route"`
	Title  string            `json:"title"`
	SEO    schema.PageSEO    `json:"seo"`
	Blocks []BlockInstanceIR `json:"blocks"`
}

// BlockInstanceIR is one resolved block instance. A nil Content value means
// the referenced record does not exist yet.
type BlockInstanceIR struct {
	InstanceID     string         `json:"instanceId"`
	BlockID        string         `json:"blockId"`
	Props          map[string]any `json:"props"`
	Content        map[string]any `json:"content"`
	StyleOverrides map[string]any `json:"styleOverrides"`
	Visibility     string         `json:"visibility"`
}

// ThemeIR is the resolved theme token map.
type ThemeIR struct {
	Tokens map[string]string `json:"tokens"`
}

// Page builds the IR for page. Blocks without an instance id get one derived
// from their position, so seed must be the project seed.
func Page(page schema.PageManifestFile, content []schema.ContentRecordFile, seed string) PageIR {
	records := make(map[string]schema.ContentRecordFile, len(content))
	for _, rec := range content {
		records[rec.ID] = rec
	}

	blocks := make([]BlockInstanceIR, 0, len(page.Blocks))
	for i, entry := range page.Blocks {
		instanceID := entry.InstanceID
		if instanceID == "" {
			instanceID = ident.InstanceID(page.PageID, entry.BlockID, i, seed)
		}

		resolved := make(map[string]any, len(entry.ContentRefs))
		for slot, ref := range entry.ContentRefs {
			if rec, ok := records[ref]; ok {
				resolved[slot] = rec.Data
			} else {
				resolved[slot] = nil
			}
		}

		visibility := entry.Visibility
		if visibility == "" {
			visibility = schema.VisibilityVisible
		}

		blocks = append(blocks, BlockInstanceIR{
			InstanceID:     instanceID,
			BlockID:        entry.BlockID,
			Props:          objectOrEmpty(entry.Props),
			Content:        resolved,
			StyleOverrides: objectOrEmpty(entry.StyleOverrides),
			Visibility:     visibility,
		})
	}

	return PageIR{
		PageID: page.PageID,
		Route:  page.Route,
		Title:  page.Title,
		SEO:    page.SEO,
		Blocks: blocks,
	}
}

// Theme copies the theme tokens.
func Theme(theme schema.ThemeFile) ThemeIR {
	tokens := make(map[string]string, len(theme.Tokens))
	for k, v := range theme.Tokens {
		tokens[k] = v
	}
	return ThemeIR{Tokens: tokens}
}

// AssignInstanceIDs stores derived ids on every block of page that lacks
// one, making them authoritative from then on. It returns how many were set.
func AssignInstanceIDs(page *schema.PageManifestFile, seed string) int {
	n := 0
	for i := range page.Blocks {
		if page.Blocks[i].InstanceID != "" {
			continue
		}
		page.Blocks[i].InstanceID = ident.InstanceID(page.PageID, page.Blocks[i].BlockID, i, seed)
		n++
	}
	return n
}

// ReferencedBlockIDs lists the distinct block ids placed on pages, sorted.
func ReferencedBlockIDs(pages []schema.PageManifestFile) []string {
	seen := make(map[string]struct{})
	for _, p := range pages {
		for _, b := range p.Blocks {
			seen[b.BlockID] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// objectOrEmpty copies a JSON object into a fresh map; anything else,
// arrays included, degrades to an empty map.
func objectOrEmpty(v any) map[string]any {
	obj, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	out := make(map[string]any, len(obj))
	for k, val := range obj {
		out[k] = val
	}
	return out
}
