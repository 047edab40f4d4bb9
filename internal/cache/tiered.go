package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pneumonia-risk-mcp-server/internal/domain"
)

// New builds the configured cache: the memory tier alone, or the memory tier
// in front of Redis when cfg.RedisURL is set. An unreachable Redis degrades
// to memory only.
func New(ctx context.Context, cfg domain.CacheConfig, logger *logrus.Logger) (*TieredCache, error) {
	memory, err := NewMemoryCache(cfg.MaxItems, cfg.DefaultTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	if cfg.RedisURL == "" {
		return NewTieredCache(memory, nil, logger), nil
	}

	remote, err := NewRedisCache(ctx, cfg)
	if err != nil {
		logger.WithError(err).Warn("Redis cache unavailable, using memory cache only")
		return NewTieredCache(memory, nil, logger), nil
	}
	logger.Info("Posterior cache using memory and Redis tiers")
	return NewTieredCache(memory, remote, logger), nil
}

// TieredCache checks the memory tier first and falls back to a remote tier.
// Remote errors are logged and treated as misses.
type TieredCache struct {
	memory *MemoryCache
	remote Cache
	logger *logrus.Logger
}

// NewTieredCache combines a memory tier with an optional remote tier.
func NewTieredCache(memory *MemoryCache, remote Cache, logger *logrus.Logger) *TieredCache {
	return &TieredCache{
		memory: memory,
		remote: remote,
		logger: logger,
	}
}

// Get returns the first hit, back-filling the memory tier from the remote one.
func (c *TieredCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok, _ := c.memory.Get(ctx, key); ok {
		return v, true, nil
	}
	if c.remote == nil {
		return nil, false, nil
	}

	v, ok, err := c.remote.Get(ctx, key)
	if err != nil {
		c.logger.WithError(err).WithField("cache_tier", "remote").Warn("Cache read failed")
		return nil, false, nil
	}
	if ok {
		_ = c.memory.Set(ctx, key, v, 0)
	}
	return v, ok, nil
}

// Set writes both tiers.
func (c *TieredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_ = c.memory.Set(ctx, key, value, ttl)
	if c.remote == nil {
		return nil
	}
	if err := c.remote.Set(ctx, key, value, ttl); err != nil {
		c.logger.WithError(err).WithField("cache_tier", "remote").Warn("Cache write failed")
	}
	return nil
}

// Delete removes key from both tiers.
func (c *TieredCache) Delete(ctx context.Context, key string) error {
	_ = c.memory.Delete(ctx, key)
	if c.remote == nil {
		return nil
	}
	return c.remote.Delete(ctx, key)
}

// Stats reports the memory tier counters.
func (c *TieredCache) Stats() Stats {
	return c.memory.Stats()
}

// Close closes both tiers.
func (c *TieredCache) Close() error {
	err := c.memory.Close()
	if c.remote != nil {
		err = errors.Join(err, c.remote.Close())
	}
	return err
}
