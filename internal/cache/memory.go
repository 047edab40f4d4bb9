package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryCache is a bounded in-process LRU with a cache-wide TTL.
type MemoryCache struct {
	lru    *expirable.LRU[string, []byte]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemoryCache creates a cache holding at most maxItems entries, each
// expiring ttl after insertion.
func NewMemoryCache(maxItems int, ttl time.Duration) (*MemoryCache, error) {
	if maxItems <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", maxItems)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache TTL must be positive, got %s", ttl)
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, []byte](maxItems, nil, ttl),
	}, nil
}

// Get returns a copy of the cached value.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.lru.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false, nil
	}
	c.hits.Add(1)
	return append([]byte(nil), v...), true, nil
}

// Set stores a copy of value. The per-call ttl is ignored; entries use the
// cache-wide TTL.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.lru.Add(key, append([]byte(nil), value...))
	return nil
}

// Delete removes key.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

// Purge drops every entry.
func (c *MemoryCache) Purge() {
	c.lru.Purge()
}

// Len returns the number of live entries.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

// Stats returns hit/miss counters.
func (c *MemoryCache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   c.lru.Len(),
	}
}

// Close is a no-op.
func (c *MemoryCache) Close() error {
	return nil
}
