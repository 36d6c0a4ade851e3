package blobstore

import (
	"context"
	"errors"
	"sync"

	"github.com/hupe1980/catdb/internal/cache"
	"github.com/hupe1980/catdb/internal/resource"
	"golang.org/x/sync/errgroup"
)

// CachingStore wraps a BlobStore and caches whole blobs read through it.
//
// Writes through the CachingStore invalidate the affected name. Writes that
// bypass it (another process, another store instance) are not observed.
type CachingStore struct {
	inner BlobStore
	cache *cache.LRU

	// mu guards fills and orders cache fills against invalidations.
	mu    sync.Mutex
	fills map[string]*fill
}

// fill tracks the cache misses of one name currently reading from inner.
// A write completing meanwhile marks it stale, and no reader of that
// round may cache what it read.
type fill struct {
	readers int
	stale   bool
}

// NewCachingStore creates a new CachingStore with a byte budget.
// If rc is non-nil, cached bytes are accounted against its memory limit.
func NewCachingStore(inner BlobStore, capacity int64, rc *resource.Controller) *CachingStore {
	return &CachingStore{
		inner: inner,
		cache: cache.NewLRU(capacity, rc),
		fills: make(map[string]*fill),
	}
}

// Get reads the whole blob, serving it from the cache when possible.
func (s *CachingStore) Get(ctx context.Context, name string) ([]byte, error) {
	name = Clean(name)
	if data, ok := s.cache.Get(name); ok {
		return clone(data), nil
	}

	s.mu.Lock()
	f := s.fills[name]
	if f == nil {
		f = &fill{}
		s.fills[name] = f
	}
	f.readers++
	s.mu.Unlock()

	data, err := s.inner.Get(ctx, name)

	s.mu.Lock()
	defer s.mu.Unlock()
	if f.readers--; f.readers == 0 {
		delete(s.fills, name)
	}
	if err != nil {
		return nil, err
	}
	if !f.stale {
		s.cache.Set(name, clone(data))
	}
	return data, nil
}

// invalidate drops name from the cache once a write to inner has finished.
// Reads of name still in flight are not cached.
func (s *CachingStore) invalidate(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f := s.fills[name]; f != nil {
		f.stale = true
	}
	s.cache.Remove(name)
}

// Put replaces the blob and invalidates its cache entry.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	name = Clean(name)
	defer s.invalidate(name)
	return s.inner.Put(ctx, name, data)
}

// Append appends to the blob and invalidates its cache entry.
func (s *CachingStore) Append(ctx context.Context, name string, data []byte) error {
	name = Clean(name)
	defer s.invalidate(name)
	return s.inner.Append(ctx, name, data)
}

// Delete removes the blob and invalidates its cache entry.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	name = Clean(name)
	defer s.invalidate(name)
	return s.inner.Delete(ctx, name)
}

// Exists reports whether a blob or directory exists.
func (s *CachingStore) Exists(ctx context.Context, name string) (bool, error) {
	if _, ok := s.cache.Get(Clean(name)); ok {
		return true, nil
	}
	return s.inner.Exists(ctx, name)
}

// MkdirAll creates a directory and all missing parents.
func (s *CachingStore) MkdirAll(ctx context.Context, dir string) error {
	return s.inner.MkdirAll(ctx, dir)
}

// List returns the immediate children of a directory.
func (s *CachingStore) List(ctx context.Context, dir string) ([]DirEntry, error) {
	return s.inner.List(ctx, dir)
}

// Prefetch warms the cache for the given names concurrently.
// Missing blobs are skipped.
func (s *CachingStore) Prefetch(ctx context.Context, names []string) error {
	g, ctx := errgroup.WithContext(ctx)
	// Limit concurrency to avoid FD exhaustion
	g.SetLimit(16)

	for _, name := range names {
		g.Go(func() error {
			_, err := s.Get(ctx, name)
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

// Stats returns cache hit and miss counters.
func (s *CachingStore) Stats() (hits, misses int64) {
	return s.cache.Stats()
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
