// Package cache provides caching implementations for motordiag.
package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/domain"
)

// MemoryCache is an in-process cache with per-entry TTL.
// Used as the Community tier cache and as L1 in two-phase caching.
type MemoryCache struct {
	cache *gocache.Cache

	// counterMu makes the add-or-increment sequence atomic.
	counterMu sync.Mutex
}

// NewMemoryCache creates a memory cache. Expired entries are purged every cleanup interval.
func NewMemoryCache(defaultTTL, cleanupInterval time.Duration) *MemoryCache {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	return &MemoryCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a value from cache.
func (c *MemoryCache) Get(ctx context.Context, motorID string, key string) ([]byte, error) {
	k, err := entryKey(motorID, key)
	if err != nil {
		return nil, err
	}

	val, found := c.cache.Get(k)
	if !found {
		return nil, nil
	}
	data, _ := val.([]byte)
	return data, nil
}

// Set stores a value with TTL. A zero TTL uses the cache default.
func (c *MemoryCache) Set(ctx context.Context, motorID string, key string, value []byte, ttl time.Duration) error {
	k, err := entryKey(motorID, key)
	if err != nil {
		return err
	}

	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	c.cache.Set(k, value, ttl)
	return nil
}

// Delete removes a value from cache.
func (c *MemoryCache) Delete(ctx context.Context, motorID string, key string) error {
	k, err := entryKey(motorID, key)
	if err != nil {
		return err
	}
	c.cache.Delete(k)
	return nil
}

// GetPrediction retrieves a cached health prediction.
func (c *MemoryCache) GetPrediction(ctx context.Context, motorID string) (*domain.HealthPrediction, error) {
	data, err := c.Get(ctx, motorID, predictionKey)
	if err != nil {
		return nil, err
	}
	return decodePrediction(data)
}

// SetPrediction caches a health prediction.
func (c *MemoryCache) SetPrediction(ctx context.Context, motorID string, p *domain.HealthPrediction, ttl time.Duration) error {
	data, err := encodePrediction(p)
	if err != nil {
		return err
	}
	return c.Set(ctx, motorID, predictionKey, data, ttl)
}

// IncrementCounter increments a counter that expires window after its first increment.
func (c *MemoryCache) IncrementCounter(ctx context.Context, motorID string, key string, window time.Duration) (int64, error) {
	k, err := counterKey(motorID, key)
	if err != nil {
		return 0, err
	}

	c.counterMu.Lock()
	defer c.counterMu.Unlock()

	if err := c.cache.Add(k, int64(1), window); err == nil {
		return 1, nil
	}
	n, err := c.cache.IncrementInt64(k, 1)
	if err != nil {
		// Expired between Add and IncrementInt64.
		c.cache.Set(k, int64(1), window)
		return 1, nil
	}
	return n, nil
}

// ResetCounter drops a counter.
func (c *MemoryCache) ResetCounter(ctx context.Context, motorID string, key string) error {
	k, err := counterKey(motorID, key)
	if err != nil {
		return err
	}

	c.counterMu.Lock()
	c.cache.Delete(k)
	c.counterMu.Unlock()
	return nil
}

// Ping always succeeds for the in-process cache.
func (c *MemoryCache) Ping(ctx context.Context) error {
	return nil
}

// Close clears the cache.
func (c *MemoryCache) Close() error {
	c.cache.Flush()
	return nil
}

// Stats returns the number of entries, expired ones included until cleanup runs.
func (c *MemoryCache) Stats() int {
	return c.cache.ItemCount()
}
