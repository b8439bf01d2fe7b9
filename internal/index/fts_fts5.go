//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS blocks_fts USING fts5(
			block_id UNINDEXED,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, blockID, name, category string, tags []string) error {
	_, _ = tx.Exec(`DELETE FROM blocks_fts WHERE block_id = ?`, blockID)
	_, err := tx.Exec(`INSERT INTO blocks_fts (block_id, body) VALUES (?, ?)`,
		blockID, searchText(name, category, tags))
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, blockID string) {
	_, _ = tx.Exec(`DELETE FROM blocks_fts WHERE block_id = ?`, blockID)
}

// Search performs an FTS5 full-text search and returns matching blocks with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT b.block_id,
		       b.name,
		       b.category,
		       snippet(blocks_fts, 1, '<b>', '</b>', '...', 16)
		FROM blocks_fts
		JOIN blocks b ON b.block_id = blocks_fts.block_id
		WHERE blocks_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.BlockID, &r.Name, &r.Category, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func searchText(name, category string, tags []string) string {
	return strings.Join(append([]string{name, category}, tags...), " ")
}
