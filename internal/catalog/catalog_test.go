package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/atelier/internal/schema"
)

func manifest(id string, deps map[string]string) schema.BlockManifest {
	m := schema.BlockManifest{
		BlockID:      id,
		Name:         id,
		Category:     "test",
		Runtime:      schema.BlockRuntime{Entry: "index.js"},
		Export:       schema.BlockExport{AstroTemplate: "Block.astro"},
		Dependencies: deps,
		Version:      "1.0.0",
	}
	m.ApplyDefaults()
	return m
}

func manifestJSON(id string) string {
	return fmt.Sprintf(`{
  "blockId": %q,
  "name": "Block %s",
  "category": "test",
  "runtime": {"entry": "index.js"},
  "export": {"astroTemplate": "Block.astro"},
  "version": "1.0.0"
}
`, id, id)
}

func writeBlock(t *testing.T, blocksDir, folder, content string) {
	t.Helper()
	dir := filepath.Join(blocksDir, folder)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFileName), []byte(content), 0o644))
}

func TestMerge_SortedUnion(t *testing.T) {
	internal := Result{Manifests: []schema.BlockManifest{manifest("cta.banner.v1", nil)}}
	workspace := Result{Manifests: []schema.BlockManifest{manifest("hero.split.v1", nil)}}
	merged := Merge(internal, workspace)
	assert.Equal(t, []string{"cta.banner.v1", "hero.split.v1"}, merged.IDs())
}

func TestMerge_WorkspaceWins(t *testing.T) {
	in := manifest("x", nil)
	in.Name = "internal"
	ws := manifest("x", nil)
	ws.Name = "workspace"

	merged := Merge(Result{Manifests: []schema.BlockManifest{in}}, Result{Manifests: []schema.BlockManifest{ws}})
	require.Len(t, merged.Manifests, 1)
	assert.Equal(t, "workspace", merged.Manifests[0].Name)
}

func TestMerge_ConcatenatesErrors(t *testing.T) {
	merged := Merge(
		Result{Errors: []ManifestError{{BlockPath: "a", Message: "1"}}},
		Result{Errors: []ManifestError{{BlockPath: "b", Message: "2"}}},
	)
	assert.Equal(t, []ManifestError{{BlockPath: "a", Message: "1"}, {BlockPath: "b", Message: "2"}}, merged.Errors)
	assert.Empty(t, merged.Manifests)
}

func TestMissingBlocks(t *testing.T) {
	catalog := []schema.BlockManifest{manifest("hero.split.v1", nil)}
	missing := MissingBlocks([]string{"hero.split.v1", "cta.banner.v1", "cta.banner.v1"}, catalog)
	assert.Equal(t, []string{"cta.banner.v1"}, missing)

	assert.Equal(t, []string{}, MissingBlocks(nil, catalog))
	assert.Equal(t, []string{"a", "b"}, MissingBlocks([]string{"b", "a", "b"}, nil))
}

func TestDiscover_MissingDirIsEmpty(t *testing.T) {
	res := Discover(filepath.Join(t.TempDir(), "blocks"))
	assert.Empty(t, res.Manifests)
	assert.Empty(t, res.Errors)
}

func TestDiscover_CollectsManifestsAndErrors(t *testing.T) {
	dir := t.TempDir()
	writeBlock(t, dir, "b-hero", manifestJSON("hero.split.v1"))
	writeBlock(t, dir, "a-broken", `{"blockId": `)
	writeBlock(t, dir, "c-invalid", `{"blockId": "c"}`)
	writeBlock(t, dir, "d-cta", manifestJSON("cta.banner.v1"))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "e-empty"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stray.json"), []byte("{}"), 0o644))

	res := Discover(dir)
	assert.Equal(t, []string{"hero.split.v1", "cta.banner.v1"}, res.IDs())
	require.Len(t, res.Errors, 2)
	assert.Equal(t, filepath.Join(dir, "a-broken"), res.Errors[0].BlockPath)
	assert.Equal(t, filepath.Join(dir, "c-invalid"), res.Errors[1].BlockPath)
	assert.Contains(t, res.Errors[1].Message, "name")
}

func TestDiscover_DuplicateWorkspaceIDReported(t *testing.T) {
	dir := t.TempDir()
	writeBlock(t, dir, "a", manifestJSON("dup"))
	writeBlock(t, dir, "b", `{"blockId":"dup","name":"second","category":"test","runtime":{"entry":"i.js"},"export":{"astroTemplate":"B.astro"},"version":"2.0.0"}`)

	res := Discover(dir)
	require.Len(t, res.Manifests, 1)
	assert.Equal(t, "second", res.Manifests[0].Name)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Message, "duplicate blockId")
}

func TestScanner_CachesByContent(t *testing.T) {
	dir := t.TempDir()
	writeBlock(t, dir, "hero", manifestJSON("hero.split.v1"))
	s := NewScanner(4)

	first := s.Scan(dir)
	assert.Equal(t, 1, s.cache.Len())
	second := s.Scan(dir)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, s.cache.Len())

	writeBlock(t, dir, "hero", manifestJSON("hero.split.v2"))
	third := s.Scan(dir)
	assert.Equal(t, []string{"hero.split.v2"}, third.IDs())
	assert.Equal(t, 2, s.cache.Len())
}

func TestValidateDependencies_UnpinnedAllowed(t *testing.T) {
	issues := ValidateDependencies([]schema.BlockManifest{
		manifest("a", map[string]string{"clsx": "^2.1.0"}),
	}, []string{"clsx"})
	require.Len(t, issues, 1)
	assert.Equal(t, IssueUnpinned, issues[0].Kind)
	assert.Contains(t, issues[0].Message, "must use exact version pin")
}

func TestValidateDependencies_PinAndConflict(t *testing.T) {
	issues := ValidateDependencies([]schema.BlockManifest{
		manifest("b", map[string]string{"clsx": "2.1.0"}),
		manifest("c", map[string]string{"clsx": "^2.1.0"}),
	}, []string{"clsx"})
	require.Len(t, issues, 2)
	assert.Equal(t, IssueUnpinned, issues[0].Kind)
	assert.Equal(t, "c", issues[0].BlockID)
	assert.Equal(t, IssueConflict, issues[1].Kind)
	assert.Contains(t, issues[1].Message, "2.1.0")
	assert.Contains(t, issues[1].Message, "^2.1.0")
}

func TestValidateDependencies_AllowList(t *testing.T) {
	issues := ValidateDependencies([]schema.BlockManifest{
		manifest("a", map[string]string{"left-pad": "1.3.0"}),
	}, []string{"clsx"})
	require.Len(t, issues, 1)
	assert.Equal(t, IssueNotAllowed, issues[0].Kind)

	assert.Empty(t, ValidateDependencies([]schema.BlockManifest{
		manifest("a", map[string]string{"left-pad": "1.3.0"}),
	}, nil), "empty allow-list permits everything")
}

func TestValidateDependencies_AllChecksReported(t *testing.T) {
	issues := ValidateDependencies([]schema.BlockManifest{
		manifest("a", map[string]string{"lodash": "4.17.21"}),
		manifest("b", map[string]string{"lodash": "~4.17.0", "clsx": "2.1.0"}),
	}, []string{"clsx"})

	kinds := make([]IssueKind, 0, len(issues))
	for _, i := range issues {
		kinds = append(kinds, i.Kind)
	}
	assert.Equal(t, []IssueKind{IssueNotAllowed, IssueUnpinned, IssueNotAllowed, IssueConflict}, kinds)
}

func TestBuiltin_Valid(t *testing.T) {
	blocks := Builtin()
	require.NotEmpty(t, blocks)
	for i := range blocks {
		assert.NoError(t, schema.Check(schema.DocManifest, &blocks[i]), blocks[i].BlockID)
	}
	assert.Empty(t, ValidateDependencies(blocks, nil))
}
