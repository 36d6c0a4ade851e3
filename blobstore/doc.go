// Package blobstore provides the file-store abstraction catdb persists through.
//
// BlobStore is the interface for reading and writing whole files (entries,
// index files, the store configuration) and for walking directory trees.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: Local filesystem; atomic Put via temp file + rename
//   - MemoryStore: In-memory store for tests
//   - CachingStore: LRU read cache in front of any BlobStore
//   - FaultyStore: Fault injection wrapper for tests
//
// # Custom Implementations
//
// Implement the BlobStore interface to support custom storage backends:
//
//	type BlobStore interface {
//	    Get(ctx, name) ([]byte, error)
//	    Put(ctx, name, data) error
//	    Append(ctx, name, data) error
//	    Delete(ctx, name) error
//	    Exists(ctx, name) (bool, error)
//	    MkdirAll(ctx, dir) error
//	    List(ctx, dir) ([]DirEntry, error)
//	}
//
// Missing blobs must be reported with an error satisfying
// errors.Is(err, ErrNotFound).
package blobstore
