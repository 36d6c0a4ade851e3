package blobstore

import (
	"context"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory BlobStore implementation for testing.
// It stores blobs in memory without any filesystem dependency.
// Thread-safe for concurrent reads and writes.
//
// Parent directories are created implicitly on write.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	dirs  map[string]struct{}
}

// NewMemoryStore creates a new in-memory blob store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: make(map[string][]byte),
		dirs:  map[string]struct{}{"": {}},
	}
}

func notFound(op, name string) error {
	return &fs.PathError{Op: op, Path: name, Err: ErrNotFound}
}

// Get reads the whole blob.
func (m *MemoryStore) Get(_ context.Context, name string) ([]byte, error) {
	name = Clean(name)
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[name]
	if !ok {
		return nil, notFound("open", name)
	}

	// Return a copy to prevent external mutation
	copied := make([]byte, len(data))
	copy(copied, data)
	return copied, nil
}

// Put replaces the whole blob.
func (m *MemoryStore) Put(_ context.Context, name string, data []byte) error {
	name = Clean(name)
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]byte, len(data))
	copy(copied, data)
	m.blobs[name] = copied
	m.mkdirLocked(path.Dir(name))
	return nil
}

// Append appends data to the blob, creating it if needed.
func (m *MemoryStore) Append(_ context.Context, name string, data []byte) error {
	name = Clean(name)
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blobs[name] = append(m.blobs[name], data...)
	m.mkdirLocked(path.Dir(name))
	return nil
}

// Delete removes a blob.
func (m *MemoryStore) Delete(_ context.Context, name string) error {
	name = Clean(name)
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blobs[name]; !ok {
		return notFound("remove", name)
	}
	delete(m.blobs, name)
	return nil
}

// Exists reports whether a blob or directory exists.
func (m *MemoryStore) Exists(_ context.Context, name string) (bool, error) {
	name = Clean(name)
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.blobs[name]; ok {
		return true, nil
	}
	_, ok := m.dirs[name]
	return ok, nil
}

// MkdirAll creates a directory and all missing parents.
func (m *MemoryStore) MkdirAll(_ context.Context, dir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mkdirLocked(Clean(dir))
	return nil
}

func (m *MemoryStore) mkdirLocked(dir string) {
	dir = Clean(dir)
	for {
		m.dirs[dir] = struct{}{}
		if dir == "" {
			return
		}
		dir = Clean(path.Dir(dir))
	}
}

// List returns the immediate children of a directory, sorted by name.
func (m *MemoryStore) List(_ context.Context, dir string) ([]DirEntry, error) {
	dir = Clean(dir)
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.dirs[dir]; !ok {
		return nil, notFound("readdir", dir)
	}
	prefix := dir + "/"
	if dir == "" {
		prefix = ""
	}
	var out []DirEntry
	for name := range m.blobs {
		if rest, ok := strings.CutPrefix(name, prefix); ok && !strings.Contains(rest, "/") {
			out = append(out, DirEntry{Name: rest})
		}
	}
	for d := range m.dirs {
		if d == dir {
			continue
		}
		if rest, ok := strings.CutPrefix(d, prefix); ok && rest != "" && !strings.Contains(rest, "/") {
			out = append(out, DirEntry{Name: rest, IsDir: true})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Len returns the number of stored blobs.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
