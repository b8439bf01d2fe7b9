package index

import "github.com/starford/atelier/internal/schema"

// BlockIndex defines the block search operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type BlockIndex interface {
	Sync(manifests []schema.BlockManifest) (SyncStats, error)
	Search(query string, limit int) ([]SearchResult, error)
	ByCategory(category string) ([]BlockRow, error)
	Count() (int, error)
	Close() error
}

// Verify *DB satisfies BlockIndex at compile time.
var _ BlockIndex = (*DB)(nil)
