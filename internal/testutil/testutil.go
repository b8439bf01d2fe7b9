// Package testutil provides shared test helpers for setting up projects,
// block folders and search indexes.
package testutil

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/atelier/internal/canonical"
	"github.com/starford/atelier/internal/catalog"
	"github.com/starford/atelier/internal/index"
	"github.com/starford/atelier/internal/project"
)

// TestDB creates a temporary SQLite block index that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "atelier-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestProject creates a fresh project in a temporary directory.
func TestProject(t *testing.T, opts ...project.Option) (*project.Store, string, *project.Snapshot) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "site")
	store := project.NewStore(append([]project.Option{project.WithLogger(QuietLogger())}, opts...)...)
	snap, err := store.Create(context.Background(), dir, project.CreateInput{
		ProjectName: "Test site",
		ClientName:  "Test client",
	})
	if err != nil {
		t.Fatal(err)
	}
	return store, dir, snap
}

// QuietLogger logs errors only.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// ManifestJSON returns a minimal valid block manifest.
func ManifestJSON(blockID, category string, deps map[string]string) string {
	depJSON := "{"
	first := true
	for _, name := range canonical.SortedKeys(deps) {
		if !first {
			depJSON += ","
		}
		first = false
		depJSON += fmt.Sprintf("%q:%q", name, deps[name])
	}
	depJSON += "}"
	return fmt.Sprintf(`{"blockId":%q,"name":%q,"category":%q,"runtime":{"entry":"index.js"},"export":{"astroTemplate":"Block.astro"},"dependencies":%s,"version":"1.0.0"}`,
		blockID, blockID, category, depJSON)
}

// WriteBlock writes a manifest into blocksDir/folder.
func WriteBlock(t *testing.T, blocksDir, folder, manifest string) {
	t.Helper()
	dir := filepath.Join(blocksDir, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, catalog.ManifestFileName), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
}
