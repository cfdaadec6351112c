// Package storage defines the site-tree file-system abstraction.
package storage

import "github.com/starford/ansuz/internal/models"

// Provider is the interface for site-tree file operations. All paths are
// relative to the site root; collection stores are subdirectories of it.
type Provider interface {
	// List returns metadata for every .md file under dir (relative to the site root).
	List(dir string) ([]models.FileMeta, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
	// Exists reports whether a file is present at path.
	Exists(path string) bool
	// Root returns the absolute site root directory.
	Root() string
}
