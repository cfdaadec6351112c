//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS items_fts USING fts5(
			path UNINDEXED,
			collection UNINDEXED,
			title,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, path, collection, title, body string) error {
	_, _ = tx.Exec(`DELETE FROM items_fts WHERE path = ?`, path)
	_, err := tx.Exec(`INSERT INTO items_fts (path, collection, title, body) VALUES (?, ?, ?, ?)`,
		path, collection, title, body)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM items_fts WHERE path = ?`, path)
}

// Search performs an FTS5 full-text search, optionally scoped to one
// collection, and returns matching results with snippets.
func (db *DB) Search(query, collection string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT f.path,
		       f.collection,
		       i.slug,
		       f.title,
		       snippet(items_fts, 3, '<b>', '</b>', '...', 64)
		FROM items_fts f
		JOIN items i ON i.path = f.path
		WHERE items_fts MATCH ?
		  AND (? = '' OR f.collection = ?)
		ORDER BY rank
		LIMIT ?
	`, query, collection, collection, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Collection, &r.Slug, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
