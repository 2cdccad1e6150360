package ensobj

import (
	"sync"
)

// cacheFlushThreshold matches the engine-side proxy budget: past a million
// live handles the whole table is dropped rather than evicted piecemeal.
const cacheFlushThreshold = 1_000_000

// Cache interns handles by object id. It is session-scoped and safe for
// concurrent use.
type Cache struct {
	mu      sync.Mutex
	limit   int
	entries map[int64]*Handle
}

// NewCache builds a cache with the standard flush threshold.
func NewCache() *Cache {
	return NewCacheWithLimit(cacheFlushThreshold)
}

// NewCacheWithLimit builds a cache flushing past the given entry count.
func NewCacheWithLimit(limit int) *Cache {
	return &Cache{limit: limit, entries: make(map[int64]*Handle)}
}

// Lookup returns the interned handle for id, if any.
func (c *Cache) Lookup(id int64) (*Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.entries[id]
	return h, ok
}

// Intern stores h unless a handle for the same id already exists, in which
// case the existing one wins and is returned. Identity is never reassigned
// for a live id.
func (c *Cache) Intern(h *Handle) *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[h.ID]; ok {
		return existing
	}
	c.entries[h.ID] = h
	return h
}

// Len reports the number of interned handles.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Prune flushes the cache wholesale once it exceeds its limit. Called
// before each marshalling pass.
func (c *Cache) Prune() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) > c.limit {
		c.entries = make(map[int64]*Handle)
	}
}

// Flush drops every interned handle.
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[int64]*Handle)
}
