// Package catalog builds the block registry: compiled-in blocks merged with
// block packages discovered in a project's blocks/ folder.
package catalog

import (
	"sort"

	"github.com/starford/atelier/internal/schema"
)

// ManifestFileName is the manifest every workspace block folder carries.
const ManifestFileName = "block.manifest.json"

// ManifestError records a block folder whose manifest could not be used.
// It never aborts a scan.
type ManifestError struct {
	BlockPath string `json:"blockPath"`
	Message   string `json:"message"`
}

// Result is a list of valid manifests plus the problems found on the way.
type Result struct {
	Manifests []schema.BlockManifest `json:"manifests"`
	Errors    []ManifestError        `json:"errors"`
}

// IDs returns the block ids of r in order.
func (r Result) IDs() []string {
	out := make([]string, len(r.Manifests))
	for i, m := range r.Manifests {
		out[i] = m.BlockID
	}
	return out
}

// Lookup returns the manifest with the given id.
func (r Result) Lookup(blockID string) (schema.BlockManifest, bool) {
	for _, m := range r.Manifests {
		if m.BlockID == blockID {
			return m, true
		}
	}
	return schema.BlockManifest{}, false
}

// Merge combines the internal and workspace registries. Internal entries
// are inserted first and workspace entries second, so the workspace wins on
// an id collision. Output is sorted by block id; errors are concatenated.
func Merge(internal, workspace Result) Result {
	byID := make(map[string]schema.BlockManifest, len(internal.Manifests)+len(workspace.Manifests))
	for _, m := range internal.Manifests {
		byID[m.BlockID] = m
	}
	for _, m := range workspace.Manifests {
		byID[m.BlockID] = m
	}

	merged := make([]schema.BlockManifest, 0, len(byID))
	for _, m := range byID {
		merged = append(merged, m)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].BlockID < merged[j].BlockID })

	errs := make([]ManifestError, 0, len(internal.Errors)+len(workspace.Errors))
	errs = append(errs, internal.Errors...)
	errs = append(errs, workspace.Errors...)

	return Result{Manifests: merged, Errors: errs}
}

// MissingBlocks returns the sorted, de-duplicated ids from inUse that have
// no entry in the catalog.
func MissingBlocks(inUse []string, catalog []schema.BlockManifest) []string {
	known := make(map[string]struct{}, len(catalog))
	for _, m := range catalog {
		known[m.BlockID] = struct{}{}
	}
	seen := make(map[string]struct{})
	out := []string{}
	for _, id := range inUse {
		if _, ok := known[id]; ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
