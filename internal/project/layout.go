// Package project owns the on-disk layout of a site project and reads and
// writes complete snapshots of it.
package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"

	"github.com/starford/atelier/internal/ident"
	"github.com/starford/atelier/internal/schema"
)

// Root documents.
const (
	ProjectFileName = "project.json"
	SiteFileName    = "site.json"
	ThemeFileName   = "theme.json"
	LockFileName    = "blocks.lock.json"
)

// Layout directories, created idempotently on create, open and save.
const (
	PagesDir   = "pages"
	ContentDir = "content"
	AssetsDir  = "assets"
	BlocksDir  = "blocks"
	ExportsDir = "exports"
	BackupsDir = "backups"
)

// Dirs lists every layout directory.
var Dirs = []string{PagesDir, ContentDir, AssetsDir, BlocksDir, ExportsDir, BackupsDir}

const docExt = ".json"

// PagePath returns the relative path a page is stored under.
func PagePath(pageID string) string {
	return path.Join(PagesDir, ident.SanitizeFileName(pageID)+docExt)
}

// ContentPath returns the relative path a content record is stored under.
func ContentPath(recordID string) string {
	return path.Join(ContentDir, ident.SanitizeFileName(recordID)+docExt)
}

// Snapshot is the full in-memory state of a project.
type Snapshot struct {
	Project    schema.ProjectFile         `json:"project"`
	Site       schema.SiteFile            `json:"site"`
	Theme      schema.ThemeFile           `json:"theme"`
	BlocksLock schema.BlocksLockFile      `json:"blocksLock"`
	Pages      []schema.PageManifestFile  `json:"pages"`
	Content    []schema.ContentRecordFile `json:"content"`
}

// Page returns the page with the given id.
func (s *Snapshot) Page(pageID string) (schema.PageManifestFile, bool) {
	for _, p := range s.Pages {
		if p.PageID == pageID {
			return p, true
		}
	}
	return schema.PageManifestFile{}, false
}

// Clone returns a deep copy of s. Free-form values (props, content data)
// keep json.Number for numbers.
func (s *Snapshot) Clone() (*Snapshot, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("project: clone: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out Snapshot
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("project: clone: %w", err)
	}
	return &out, nil
}
