package index

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/frontmatter"
	"github.com/starford/ansuz/internal/registry"
	"github.com/starford/ansuz/internal/storage"
)

// Resolver maps a file path relative to the site root to its collection
// name. Files outside any registered collection directory return
// ok=false and are not indexed.
type Resolver func(rel string) (collection string, ok bool)

// RegistryResolver builds a Resolver from the collection registry: the
// path's first segment is matched against each collection's directory.
func RegistryResolver(reg *registry.Registry) Resolver {
	byDir := make(map[string]string)
	for _, name := range reg.Names() {
		byDir[reg.Get(name).DirName] = name
	}
	return func(rel string) (string, bool) {
		seg, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
		name, ok := byDir[seg]
		return name, ok
	}
}

// Sync walks the site tree and brings the index up to date:
//   - new/changed collection files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, resolve Resolver, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		collection, ok := resolve(m.Path)
		if !ok {
			continue
		}
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, collection, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteItem(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// indexFile parses data and upserts it into the DB. Files whose front
// matter cannot be parsed at all are still indexed by raw body so search
// can find them.
func indexFile(db *DB, collection, path string, data []byte) error {
	row := ItemRow{
		Path:       path,
		Collection: collection,
		Slug:       strings.TrimSuffix(filepath.Base(path), ".md"),
		Checksum:   storage.Checksum(data),
		UpdatedAt:  time.Now().UTC(),
	}

	body := ""
	doc, err := frontmatter.Decode(data)
	if err != nil {
		if !errors.Is(err, apperr.ErrParse) {
			return err
		}
		body = strings.TrimSpace(string(data))
	} else {
		row.Title = doc.GetString("title")
		row.Date = doc.GetString("date")
		body = doc.Body
		for _, f := range doc.Fields {
			if f.Key == "title" || f.Key == "date" {
				continue
			}
			if row.Fields == nil {
				row.Fields = make(map[string]string)
			}
			row.Fields[f.Key] = strings.TrimSpace(stringValue(f.Value))
		}
	}
	return db.UpsertItem(row, body)
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
