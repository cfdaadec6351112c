// Package testutil provides shared test helpers for setting up site trees
// and index databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "ansuz-test-*.db")
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

// TestSite creates a temporary site tree with the given collection
// directories and a storage.Provider rooted at it.
func TestSite(t *testing.T, dirs ...string) (string, storage.Provider) {
	t.Helper()
	siteDir := t.TempDir()
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(siteDir, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	store, err := storage.NewFS(siteDir)
	if err != nil {
		t.Fatal(err)
	}
	return siteDir, store
}
