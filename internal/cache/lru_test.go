package cache

import (
	"strings"
	"testing"

	"github.com/hupe1980/catdb/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_EdgeCases(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 100})
	c := NewLRU(50, rc)
	k := "ab/abcdef.json"

	// Item larger than capacity
	c.Set(k, make([]byte, 60))
	_, ok := c.Get(k)
	assert.False(t, ok, "item > capacity should not be cached")

	c.Set(k, make([]byte, 10))
	assert.Equal(t, int64(10), c.Size())

	c.Set(k, make([]byte, 20))
	assert.Equal(t, int64(20), c.Size())

	c.Set(k, make([]byte, 5))
	assert.Equal(t, int64(5), c.Size())
	assert.Equal(t, int64(5), rc.MemoryUsage())

	// Growth denied by the controller drops the stale value.
	rc2 := resource.NewController(resource.Config{MemoryLimitBytes: 10})
	c2 := NewLRU(50, rc2)
	c2.Set(k, make([]byte, 8))
	c2.Set(k, make([]byte, 12))
	_, ok = c2.Get(k)
	assert.False(t, ok)
	assert.Equal(t, int64(0), rc2.MemoryUsage())
}

func TestLRU_Eviction(t *testing.T) {
	c := NewLRU(30, nil)
	c.Set("a", make([]byte, 10))
	c.Set("b", make([]byte, 10))
	c.Set("c", make([]byte, 10))

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("d", make([]byte, 10))
	_, ok = c.Get("b")
	assert.False(t, ok)
	for _, k := range []string{"a", "c", "d"} {
		_, ok := c.Get(k)
		assert.True(t, ok, k)
	}
	assert.Equal(t, 3, c.Len())
}

func TestLRU_InvalidateAndRemove(t *testing.T) {
	c := NewLRU(100, nil)
	c.Set("00/x_members", []byte("1"))
	c.Set("00/x.json", []byte("2"))
	c.Set("01/y.json", []byte("3"))

	c.Invalidate(func(key string) bool { return strings.HasPrefix(key, "00/") })
	assert.Equal(t, 1, c.Len())

	c.Remove("01/y.json")
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(0), c.Size())
}

func TestLRU_Stats(t *testing.T) {
	c := NewLRU(100, nil)
	c.Set("k", []byte("v"))
	_, _ = c.Get("k")
	_, _ = c.Get("missing")
	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}
