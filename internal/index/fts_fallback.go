//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE over the blocks columns.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _ string, _ []string) error {
	return nil
}

func ftsDelete(_ *sql.Tx, _ string) {}

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT block_id, name, category, tags
		FROM blocks
		WHERE block_id LIKE ? OR name LIKE ? OR category LIKE ? OR tags LIKE ?
		ORDER BY block_id
		LIMIT ?
	`, like, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	out := []SearchResult{}
	for rows.Next() {
		var (
			r    SearchResult
			tags string
		)
		if err := rows.Scan(&r.BlockID, &r.Name, &r.Category, &tags); err != nil {
			return nil, err
		}
		var tagList []string
		if err := json.Unmarshal([]byte(tags), &tagList); err != nil {
			return nil, fmt.Errorf("index: decode tags of %s: %w", r.BlockID, err)
		}
		r.Snippet = Snippet(r.Category, tagList)
		out = append(out, r)
	}
	return out, rows.Err()
}
