package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ppiankov/lexharvest/internal/model"
)

const keyPrefix = "lexharvest:v1:"

// Cache stores fetched bodies keyed by Key(url)
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives the cache key for a URL
func Key(url string) string {
	hash := sha256.Sum256([]byte(url))
	return keyPrefix + hex.EncodeToString(hash[:])
}

// New builds the cache described by cfg. A disabled cache is a Noop.
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return Noop{}
	}
	if cfg.Dir == "" {
		return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
	}
	return NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL)
}

type bulkCache interface {
	GetBulk(key string) ([]byte, bool)
	SetBulk(key string, value []byte, ttl time.Duration) error
}

// GetBulk is the read side of SetBulk
func GetBulk(c Cache, key string) ([]byte, bool) {
	if b, ok := c.(bulkCache); ok {
		return b.GetBulk(key)
	}
	return c.Get(key)
}

// SetBulk stores a large body such as a PDF outside any memory layer. A
// memory-only cache keeps nothing.
func SetBulk(c Cache, key string, value []byte, ttl time.Duration) error {
	switch c := c.(type) {
	case bulkCache:
		return c.SetBulk(key, value, ttl)
	case *MemoryCache:
		return nil
	default:
		return c.Set(key, value, ttl)
	}
}

// Noop never stores anything
type Noop struct{}

func (Noop) Get(string) ([]byte, bool) { return nil, false }
func (Noop) Set(string, []byte, time.Duration) error { return nil }
func (Noop) Delete(string) error { return nil }
func (Noop) Clear() error { return nil }
