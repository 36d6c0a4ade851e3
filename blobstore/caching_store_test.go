package blobstore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachingStore_Lifecycle(t *testing.T) {
	testStoreLifecycle(t, NewCachingStore(NewMemoryStore(), 1<<20, nil))
}

func TestCachingStore_ServesFromCache(t *testing.T) {
	ctx := context.Background()
	inner := NewFaultyStore(NewMemoryStore())
	store := NewCachingStore(inner, 1<<20, nil)

	require.NoError(t, store.Put(ctx, "a.json", []byte("v1")))

	for range 3 {
		data, err := store.Get(ctx, "a.json")
		require.NoError(t, err)
		require.Equal(t, "v1", string(data))
	}
	assert.Equal(t, 1, inner.Calls(OpGet))
	hits, misses := store.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)

	// Exists is answered from the cache.
	ok, err := store.Exists(ctx, "a.json")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, inner.Calls(OpExists))
}

func TestCachingStore_WritesInvalidate(t *testing.T) {
	ctx := context.Background()
	store := NewCachingStore(NewMemoryStore(), 1<<20, nil)

	require.NoError(t, store.Put(ctx, "idx", []byte("a\n")))
	_, err := store.Get(ctx, "idx")
	require.NoError(t, err)

	require.NoError(t, store.Append(ctx, "idx", []byte("b\n")))
	data, err := store.Get(ctx, "idx")
	require.NoError(t, err)
	require.Equal(t, "a\nb\n", string(data))

	require.NoError(t, store.Put(ctx, "idx", []byte("c\n")))
	data, err = store.Get(ctx, "idx")
	require.NoError(t, err)
	require.Equal(t, "c\n", string(data))

	require.NoError(t, store.Delete(ctx, "idx"))
	_, err = store.Get(ctx, "idx")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCachingStore_ReturnedSliceIsPrivate(t *testing.T) {
	ctx := context.Background()
	store := NewCachingStore(NewMemoryStore(), 1<<20, nil)
	require.NoError(t, store.Put(ctx, "a", []byte("abc")))

	data, err := store.Get(ctx, "a")
	require.NoError(t, err)
	data[0] = 'z'

	data, err = store.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "abc", string(data))
}

func TestCachingStore_Prefetch(t *testing.T) {
	ctx := context.Background()
	inner := NewFaultyStore(NewMemoryStore())
	store := NewCachingStore(inner, 1<<20, nil)

	require.NoError(t, inner.Put(ctx, "a", []byte("1")))
	require.NoError(t, inner.Put(ctx, "b", []byte("2")))

	require.NoError(t, store.Prefetch(ctx, []string{"a", "b", "missing"}))
	assert.Equal(t, 3, inner.Calls(OpGet))

	_, err := store.Get(ctx, "a")
	require.NoError(t, err)
	_, err = store.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 3, inner.Calls(OpGet))

	inner.AddRule("boom", Fault{Op: OpGet})
	require.ErrorIs(t, store.Prefetch(ctx, []string{"boom"}), ErrInjected)
}

// stallingStore pauses the first Get of name after it has read inner.
type stallingStore struct {
	BlobStore
	name    string
	reached chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *stallingStore) Get(ctx context.Context, name string) ([]byte, error) {
	data, err := s.BlobStore.Get(ctx, name)
	if name == s.name {
		s.once.Do(func() {
			close(s.reached)
			<-s.release
		})
	}
	return data, err
}

func TestCachingStore_WriteDuringMissIsNotCached(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	require.NoError(t, mem.Put(ctx, "idx", []byte("a\n")))

	inner := &stallingStore{
		BlobStore: mem,
		name:      "idx",
		reached:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	store := NewCachingStore(inner, 1<<20, nil)

	done := make(chan []byte)
	go func() {
		data, err := store.Get(ctx, "idx")
		assert.NoError(t, err)
		done <- data
	}()

	<-inner.reached
	require.NoError(t, store.Append(ctx, "idx", []byte("b\n")))
	close(inner.release)
	assert.Equal(t, "a\n", string(<-done))

	data, err := store.Get(ctx, "idx")
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", string(data))

	onDisk, err := mem.Get(ctx, "idx")
	require.NoError(t, err)
	assert.Equal(t, string(onDisk), string(data))
}
