package mfa

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// CacheConfig sizes a [Cached] gate.
type CacheConfig struct {
	// TTL bounds how stale a cached answer may be. A principal who enables
	// MFA is seen by the authority at most TTL later unless Invalidate is
	// called.
	TTL         time.Duration
	NumCounters int64
	MaxEntries  int64
}

// Cached keeps recent answers of an inner gate in a ristretto cache. Errors
// are never cached.
type Cached struct {
	inner Gate
	ttl   time.Duration
	cache *ristretto.Cache[string, bool]
}

// NewCached builds the cache. Zero sizes fall back to 10k entries.
func NewCached(inner Gate, cfg CacheConfig) (*Cached, error) {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 10_000
	}
	if cfg.NumCounters <= 0 {
		cfg.NumCounters = cfg.MaxEntries * 10
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, bool]{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, ttl: cfg.TTL, cache: cache}, nil
}

func (c *Cached) IsMFAEnabled(ctx context.Context, principalID string) (bool, error) {
	if enabled, ok := c.cache.Get(principalID); ok {
		return enabled, nil
	}
	enabled, err := c.inner.IsMFAEnabled(ctx, principalID)
	if err != nil {
		return false, err
	}
	c.cache.SetWithTTL(principalID, enabled, 1, c.ttl)
	return enabled, nil
}

// Invalidate drops the cached answer for principalID.
func (c *Cached) Invalidate(principalID string) {
	c.cache.Del(principalID)
}

// Close releases the cache's background goroutines.
func (c *Cached) Close() {
	c.cache.Close()
}
