package blobstore

import (
	"context"
	"os"
	"path"
	"strings"
)

// ErrNotFound is returned when a blob or directory does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// DirEntry is one child of a listed directory.
type DirEntry struct {
	Name  string
	IsDir bool
}

// BlobStore is an abstraction over a hierarchical file store.
//
// Names are slash-separated and relative to the store root; "" and "." both
// denote the root. Implementations must be safe for concurrent use.
type BlobStore interface {
	// Get reads the whole blob.
	Get(ctx context.Context, name string) ([]byte, error)
	// Put replaces the whole blob.
	Put(ctx context.Context, name string, data []byte) error
	// Append appends data to the blob, creating it if needed.
	Append(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob returns ErrNotFound.
	Delete(ctx context.Context, name string) error
	// Exists reports whether a blob or directory exists.
	Exists(ctx context.Context, name string) (bool, error)
	// MkdirAll creates a directory and all missing parents.
	MkdirAll(ctx context.Context, dir string) error
	// List returns the immediate children of a directory.
	List(ctx context.Context, dir string) ([]DirEntry, error)
}

// Clean normalizes a blob name: slash-separated, no leading slash, "" for the root.
func Clean(name string) string {
	name = path.Clean("/" + strings.ReplaceAll(name, "\\", "/"))
	return strings.TrimPrefix(name, "/")
}

// Join joins name elements into a cleaned blob name.
func Join(elem ...string) string {
	return Clean(path.Join(elem...))
}
