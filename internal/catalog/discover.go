package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/starford/atelier/internal/checksum"
	"github.com/starford/atelier/internal/schema"
)

// DefaultCacheSize bounds the number of parsed manifests a Scanner keeps.
const DefaultCacheSize = 256

// Scanner discovers workspace manifests. Parsed manifests are memoised by
// content checksum, so rescans only re-validate files that changed.
// Cached manifests are shared; callers must treat them as read-only.
type Scanner struct {
	cache *lru.Cache[string, schema.BlockManifest]
}

// NewScanner creates a Scanner holding up to size parsed manifests.
func NewScanner(size int) *Scanner {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, _ := lru.New[string, schema.BlockManifest](size)
	return &Scanner{cache: cache}
}

// Discover scans blocksDir once with a throwaway Scanner.
func Discover(blocksDir string) Result {
	return NewScanner(DefaultCacheSize).Scan(blocksDir)
}

// Scan lists the subfolders of blocksDir in sorted order and parses each
// folder's manifest. Folders without a manifest are skipped. A missing
// blocksDir yields an empty result. When two folders declare the same
// block id the later folder wins and the collision is reported.
func (s *Scanner) Scan(blocksDir string) Result {
	res := Result{Manifests: []schema.BlockManifest{}, Errors: []ManifestError{}}

	entries, err := os.ReadDir(blocksDir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			res.Errors = append(res.Errors, ManifestError{BlockPath: blocksDir, Message: err.Error()})
		}
		return res
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	index := make(map[string]int)
	owner := make(map[string]string)
	for _, name := range names {
		blockPath := filepath.Join(blocksDir, name)
		m, ok, err := s.load(filepath.Join(blockPath, ManifestFileName))
		if err != nil {
			res.Errors = append(res.Errors, ManifestError{BlockPath: blockPath, Message: err.Error()})
			continue
		}
		if !ok {
			continue
		}
		if i, dup := index[m.BlockID]; dup {
			res.Errors = append(res.Errors, ManifestError{
				BlockPath: blockPath,
				Message:   fmt.Sprintf("duplicate blockId %q overrides %s", m.BlockID, owner[m.BlockID]),
			})
			res.Manifests[i] = m
			owner[m.BlockID] = blockPath
			continue
		}
		index[m.BlockID] = len(res.Manifests)
		owner[m.BlockID] = blockPath
		res.Manifests = append(res.Manifests, m)
	}
	return res
}

// load reads and validates one manifest. ok is false when the file is absent.
func (s *Scanner) load(path string) (schema.BlockManifest, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return schema.BlockManifest{}, false, nil
		}
		return schema.BlockManifest{}, false, err
	}
	key := checksum.Sum(data)
	if m, hit := s.cache.Get(key); hit {
		return m, true, nil
	}
	m, err := schema.ParseManifest(data)
	if err != nil {
		return schema.BlockManifest{}, false, schema.WithSource(err, path)
	}
	s.cache.Add(key, m)
	return m, true, nil
}
