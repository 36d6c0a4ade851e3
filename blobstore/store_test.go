package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/catdb/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStoreLifecycle exercises the BlobStore contract against any implementation.
func testStoreLifecycle(t *testing.T, store BlobStore) {
	t.Helper()
	ctx := context.Background()

	// 1. Missing blobs
	_, err := store.Get(ctx, "ab/cd/missing.json")
	require.ErrorIs(t, err, ErrNotFound)
	ok, err := store.Exists(ctx, "ab/cd/missing.json")
	require.NoError(t, err)
	require.False(t, ok)
	require.ErrorIs(t, store.Delete(ctx, "ab/cd/missing.json"), ErrNotFound)

	// 2. Put and Get
	require.NoError(t, store.MkdirAll(ctx, "ab/cd"))
	ok, err = store.Exists(ctx, "ab/cd")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Put(ctx, "ab/cd/entry.json", []byte("hello")))
	data, err := store.Get(ctx, "ab/cd/entry.json")
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))

	// Overwrite
	require.NoError(t, store.Put(ctx, "ab/cd/entry.json", []byte("world")))
	data, err = store.Get(ctx, "ab/cd/entry.json")
	require.NoError(t, err)
	require.Equal(t, "world", string(data))

	// 3. Append
	require.NoError(t, store.Append(ctx, "ab/cd/idx_members", []byte("a\n")))
	require.NoError(t, store.Append(ctx, "ab/cd/idx_members", []byte("b\n")))
	data, err = store.Get(ctx, "ab/cd/idx_members")
	require.NoError(t, err)
	require.Equal(t, "a\nb\n", string(data))

	// 4. List
	require.NoError(t, store.MkdirAll(ctx, "ab/cd/ef"))
	entries, err := store.List(ctx, "ab/cd")
	require.NoError(t, err)
	assert.ElementsMatch(t, []DirEntry{
		{Name: "entry.json"},
		{Name: "idx_members"},
		{Name: "ef", IsDir: true},
	}, entries)

	root, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []DirEntry{{Name: "ab", IsDir: true}}, root)

	_, err = store.List(ctx, "nope")
	require.ErrorIs(t, err, ErrNotFound)

	// 5. Delete
	require.NoError(t, store.Delete(ctx, "ab/cd/entry.json"))
	ok, err = store.Exists(ctx, "ab/cd/entry.json")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLocalStore_Lifecycle(t *testing.T) {
	testStoreLifecycle(t, NewLocalStore(t.TempDir()))
}

func TestLocalStore_WithController(t *testing.T) {
	rc := resource.NewController(resource.Config{MaxOpenFiles: 2, IOLimitBytesPerSec: 1 << 20})
	store := NewLocalStore(t.TempDir(), WithController(rc))
	testStoreLifecycle(t, store)
	assert.Equal(t, int64(0), rc.OpenFiles())
}

func TestLocalStore_PutIsAtomic(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir, WithFileMode(0o600))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "entry.json", []byte("data")))

	// No temp files are left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "entry.json", entries[0].Name())

	fi, err := os.Stat(filepath.Join(dir, "entry.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
	assert.Equal(t, dir, store.Root())
}

func TestLocalStore_PutMissingDir(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	err := store.Put(context.Background(), "no/such/dir/entry.json", []byte("x"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	testStoreLifecycle(t, NewMemoryStore())
}

func TestMemoryStore_CopiesData(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	data := []byte("abc")
	require.NoError(t, store.Put(ctx, "x", data))
	data[0] = 'z'

	got, err := store.Get(ctx, "x")
	require.NoError(t, err)
	require.Equal(t, "abc", string(got))
	got[1] = 'z'

	got, err = store.Get(ctx, "x")
	require.NoError(t, err)
	require.Equal(t, "abc", string(got))
	require.Equal(t, 1, store.Len())
}

func TestClean(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{".", ""},
		{"/", ""},
		{"a/b/../c", "a/c"},
		{"/a//b/", "a/b"},
		{`a\b`, "a/b"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
	assert.Equal(t, "a/b/c.json", Join("a", "", "b", "c.json"))
}
