package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// ItemRow represents a row in the items table.
type ItemRow struct {
	Path       string
	Collection string
	Slug       string
	Title      string
	Date       string
	Fields     map[string]string
	Checksum   string
	UpdatedAt  time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path       string
	Collection string
	Slug       string
	Title      string
	Snippet    string
}

// UpsertItem inserts or replaces an item and its FTS entry within a
// transaction.
func (db *DB) UpsertItem(r ItemRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	fieldsJSON, _ := json.Marshal(r.Fields)

	_, err = tx.Exec(`
		INSERT INTO items (path, collection, slug, title, date, fields, body, checksum, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			collection = excluded.collection,
			slug       = excluded.slug,
			title      = excluded.title,
			date       = excluded.date,
			fields     = excluded.fields,
			body       = excluded.body,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, r.Path, r.Collection, r.Slug, r.Title, r.Date, string(fieldsJSON), body, r.Checksum, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert item: %w", err)
	}

	if err := ftsUpsert(tx, r.Path, r.Collection, r.Title, body); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteItem removes an item and its FTS entry.
func (db *DB) DeleteItem(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM items WHERE path = ?`, path)

	return tx.Commit()
}

// GetItem returns one item by collection and slug, or nil when absent.
func (db *DB) GetItem(collection, slug string) (*ItemRow, error) {
	row := db.conn.QueryRow(`
		SELECT path, collection, slug, title, date, fields, checksum, updated_at
		FROM items
		WHERE collection = ? AND slug = ?
	`, collection, slug)
	r, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: get item: %w", err)
	}
	return r, nil
}

// ListItems returns items for one collection (or all, when collection is
// empty) sorted by filename descending, plus the total count.
func (db *DB) ListItems(collection string, limit, offset int) ([]ItemRow, int, error) {
	if limit <= 0 {
		limit = 50
	}

	var total int
	if err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM items WHERE (? = '' OR collection = ?)
	`, collection, collection).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count items: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT path, collection, slug, title, date, fields, checksum, updated_at
		FROM items
		WHERE (? = '' OR collection = ?)
		ORDER BY path DESC
		LIMIT ? OFFSET ?
	`, collection, collection, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list items: %w", err)
	}
	defer rows.Close()

	var out []ItemRow
	for rows.Next() {
		r, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *r)
	}
	return out, total, rows.Err()
}

// AllChecksums returns path -> checksum for every indexed item.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM items`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(s rowScanner) (*ItemRow, error) {
	var r ItemRow
	var fieldsJSON string
	if err := s.Scan(&r.Path, &r.Collection, &r.Slug, &r.Title, &r.Date, &fieldsJSON, &r.Checksum, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if fieldsJSON != "" && fieldsJSON != "null" {
		_ = json.Unmarshal([]byte(fieldsJSON), &r.Fields)
	}
	return &r, nil
}
