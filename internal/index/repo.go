package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/starford/atelier/internal/canonical"
	"github.com/starford/atelier/internal/checksum"
	"github.com/starford/atelier/internal/schema"
)

// BlockRow represents a row in the blocks table.
type BlockRow struct {
	BlockID  string   `json:"blockId"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	Version  string   `json:"version"`
}

// SearchResult represents one search hit.
type SearchResult struct {
	BlockID  string `json:"blockId"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Snippet  string `json:"snippet"`
}

// Snippet summarises a block for a search hit when no highlighted excerpt
// is available: the category followed by the tags.
func Snippet(category string, tags []string) string {
	if len(tags) == 0 {
		return category
	}
	return category + ": " + strings.Join(tags, ", ")
}

// SyncStats counts what a Sync changed.
type SyncStats struct {
	Upserted  int `json:"upserted"`
	Deleted   int `json:"deleted"`
	Unchanged int `json:"unchanged"`
}

// Sync makes the blocks table mirror manifests:
//   - new/changed manifests (by canonical checksum) are upserted
//   - blocks absent from manifests are deleted
func (db *DB) Sync(manifests []schema.BlockManifest) (SyncStats, error) {
	var stats SyncStats

	checksums, err := db.allChecksums()
	if err != nil {
		return stats, err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return stats, fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	keep := make(map[string]struct{}, len(manifests))
	for _, m := range manifests {
		keep[m.BlockID] = struct{}{}

		data, err := canonical.Marshal(m)
		if err != nil {
			return stats, fmt.Errorf("index: encode %s: %w", m.BlockID, err)
		}
		cs := checksum.Sum(data)
		if checksums[m.BlockID] == cs {
			stats.Unchanged++
			continue
		}
		if err := upsertBlock(tx, m, cs, string(data)); err != nil {
			return stats, err
		}
		stats.Upserted++
	}

	for id := range checksums {
		if _, ok := keep[id]; ok {
			continue
		}
		ftsDelete(tx, id)
		if _, err := tx.Exec(`DELETE FROM blocks WHERE block_id = ?`, id); err != nil {
			return stats, fmt.Errorf("index: delete %s: %w", id, err)
		}
		stats.Deleted++
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("index: commit: %w", err)
	}
	return stats, nil
}

func upsertBlock(tx *sql.Tx, m schema.BlockManifest, cs, manifest string) error {
	tagsJSON, _ := json.Marshal(m.Tags)
	_, err := tx.Exec(`
		INSERT INTO blocks (block_id, name, category, tags, version, checksum, manifest)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(block_id) DO UPDATE SET
			name     = excluded.name,
			category = excluded.category,
			tags     = excluded.tags,
			version  = excluded.version,
			checksum = excluded.checksum,
			manifest = excluded.manifest
	`, m.BlockID, m.Name, m.Category, string(tagsJSON), m.Version, cs, manifest)
	if err != nil {
		return fmt.Errorf("index: upsert %s: %w", m.BlockID, err)
	}
	return ftsUpsert(tx, m.BlockID, m.Name, m.Category, m.Tags)
}

// ByCategory returns the blocks in category ordered by id.
func (db *DB) ByCategory(category string) ([]BlockRow, error) {
	rows, err := db.conn.Query(`
		SELECT block_id, name, category, tags, version
		FROM blocks
		WHERE category = ?
		ORDER BY block_id
	`, category)
	if err != nil {
		return nil, fmt.Errorf("index: by category: %w", err)
	}
	defer rows.Close()

	out := []BlockRow{}
	for rows.Next() {
		var r BlockRow
		var tags string
		if err := rows.Scan(&r.BlockID, &r.Name, &r.Category, &tags, &r.Version); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tags), &r.Tags); err != nil {
			return nil, fmt.Errorf("index: decode tags of %s: %w", r.BlockID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of indexed blocks.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM blocks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}

func (db *DB) allChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT block_id, checksum FROM blocks`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, cs string
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, err
		}
		out[id] = cs
	}
	return out, rows.Err()
}
