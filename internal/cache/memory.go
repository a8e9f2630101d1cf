package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MaxMemoryEntryBytes caps a single in-memory entry; larger bodies are
// left to the disk layer
const MaxMemoryEntryBytes = 1 << 20

// MemoryCache is a process-local cache with per-entry expiry
type MemoryCache struct {
	items *gocache.Cache
}

// NewMemoryCache creates a memory cache. A zero ttl means entries never expire.
func NewMemoryCache(ttl, cleanupInterval time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &MemoryCache{items: gocache.New(ttl, cleanupInterval)}
}

func (c *MemoryCache) Get(key string) ([]byte, bool) {
	val, found := c.items.Get(key)
	if !found {
		return nil, false
	}
	body, ok := val.([]byte)
	return body, ok
}

// Set stores value; ttl 0 uses the cache default. Values over
// MaxMemoryEntryBytes are not stored.
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	if len(value) > MaxMemoryEntryBytes {
		return nil
	}
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.items.Set(key, value, ttl)
	return nil
}

func (c *MemoryCache) Delete(key string) error {
	c.items.Delete(key)
	return nil
}

func (c *MemoryCache) Clear() error {
	c.items.Flush()
	return nil
}

// Len reports the number of live entries
func (c *MemoryCache) Len() int {
	return c.items.ItemCount()
}
