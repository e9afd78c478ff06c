package registry

import (
	"path/filepath"
	"sync"
	"time"
)

// DefaultTTL is how long a cached registry stays fresh.
const DefaultTTL = 5 * time.Minute

// Cache holds one registry snapshot per source root. Entries are replaced
// whole, never mutated, so a reader racing with Invalidate sees either the
// old snapshot or none.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*Registry
}

// NewCache creates a cache whose entries expire after ttl. A non-positive
// ttl selects DefaultTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*Registry),
	}
}

// SetClock replaces the time source. Used by tests.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// TTL returns the configured expiry.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached registry for root if it is valid and younger than
// the TTL.
func (c *Cache) Get(root string) (*Registry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	reg, ok := c.entries[cacheKey(root)]
	if !ok || !reg.Valid {
		return nil, false
	}
	if c.now().Sub(reg.LastScan) >= c.ttl {
		return nil, false
	}
	return reg, true
}

// Put stores reg as the snapshot for root.
func (c *Cache) Put(root string, reg *Registry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(root)] = reg
}

// Invalidate drops the entry for root.
func (c *Cache) Invalidate(root string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey(root))
}

// InvalidateAll drops every entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Registry)
}

// Len returns the number of cached roots, fresh or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) clock() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now()
}

func cacheKey(root string) string {
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return filepath.Clean(root)
}
