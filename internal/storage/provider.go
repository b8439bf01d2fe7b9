// Package storage defines the project file-system abstraction.
package storage

import "time"

// FileInfo describes one file returned by List.
type FileInfo struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for project file operations. Every path is
// relative to the project root.
type Provider interface {
	// Root returns the absolute project root.
	Root() string
	// List returns the files directly under dir whose name ends in ext,
	// sorted by file name.
	List(dir, ext string) ([]FileInfo, error)
	// Entries returns the names of the top-level entries of dir, sorted.
	Entries(dir string) ([]string, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Append appends content to path, creating it if needed.
	Append(path string, content []byte) error
	// MkdirAll creates dir and any missing parents.
	MkdirAll(dir string) error
	// CopyTree recursively copies src to dst.
	CopyTree(src, dst string) error
}
