package cache

import (
	"sync"
	"time"
)

type item struct {
	value     interface{}
	expiresAt int64 // unix nanos
}

// TTLCache is a small in-process cache with per-entry TTL. Expiration is
// lazy: stale entries are dropped on the next Get for their key.
type TTLCache struct {
	mu      sync.RWMutex
	entries map[string]item
}

func NewTTL() *TTLCache {
	return &TTLCache{entries: make(map[string]item)}
}

func (c *TTLCache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = item{
		value:     value,
		expiresAt: time.Now().Add(ttl).UnixNano(),
	}
}

func (c *TTLCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	it, found := c.entries[key]
	c.mu.RUnlock()
	if !found {
		return nil, false
	}
	if time.Now().UnixNano() > it.expiresAt {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have refreshed it.
		if cur, ok := c.entries[key]; ok && time.Now().UnixNano() > cur.expiresAt {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return it.value, true
}

func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
