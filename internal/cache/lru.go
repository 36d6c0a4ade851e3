package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/catdb/internal/resource"
)

// LRU is a byte-budgeted LRU cache of whole blobs keyed by blob name.
type LRU struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[string]*list.Element
	evictList *list.List
	rc        *resource.Controller

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	key   string
	value []byte
}

// NewLRU creates a new LRU cache with the given capacity in bytes.
// If rc is provided, it will be used to track memory usage.
func NewLRU(capacity int64, rc *resource.Controller) *LRU {
	return &LRU{
		capacity:  capacity,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
		rc:        rc,
	}
}

// Get returns a cached blob. The returned slice must be treated as read-only.
func (c *LRU) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*entry).value, true
	}
	c.misses.Add(1)
	return nil, false
}

// Set caches a blob. The caller must not mutate b afterwards.
func (c *LRU) Set(key string, b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.evictList.MoveToFront(ent)
		oldSize := int64(len(ent.Value.(*entry).value))
		newSize := int64(len(b))
		if newSize > c.capacity {
			c.removeElement(ent)
			return
		}
		if c.rc != nil && newSize > oldSize {
			// If the controller denies the growth, drop the stale value.
			if !c.rc.TryAcquireMemory(newSize - oldSize) {
				c.removeElement(ent)
				return
			}
		}
		c.size += newSize - oldSize
		if c.rc != nil && newSize < oldSize {
			c.rc.ReleaseMemory(oldSize - newSize)
		}
		ent.Value.(*entry).value = b
		c.evict()
		return
	}

	itemSize := int64(len(b))
	if itemSize > c.capacity {
		return
	}

	// Evict locally first so memory is released to the controller before we ask for more.
	for c.size+itemSize > c.capacity {
		ent := c.evictList.Back()
		if ent == nil {
			break
		}
		c.removeElement(ent)
	}

	if c.rc != nil && !c.rc.TryAcquireMemory(itemSize) {
		return
	}

	element := c.evictList.PushFront(&entry{key, b})
	c.items[key] = element
	c.size += itemSize
}

// Remove drops a single key.
func (c *LRU) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ent, ok := c.items[key]; ok {
		c.removeElement(ent)
	}
}

// Invalidate removes entries matching the predicate.
func (c *LRU) Invalidate(predicate func(key string) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toRemove []*list.Element
	for key, element := range c.items {
		if predicate(key) {
			toRemove = append(toRemove, element)
		}
	}
	for _, e := range toRemove {
		c.removeElement(e)
	}
}

func (c *LRU) evict() {
	for c.size > c.capacity {
		element := c.evictList.Back()
		if element == nil {
			break
		}
		c.removeElement(element)
	}
}

func (c *LRU) removeElement(e *list.Element) {
	c.evictList.Remove(e)
	kv := e.Value.(*entry)
	delete(c.items, kv.key)
	itemSize := int64(len(kv.value))
	c.size -= itemSize
	if c.rc != nil {
		c.rc.ReleaseMemory(itemSize)
	}
}

// Stats returns hit and miss counters.
func (c *LRU) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Size returns the current size of the cache in bytes.
func (c *LRU) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Len returns the number of cached blobs.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
