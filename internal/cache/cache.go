package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/domain"
)

// predictionKey is the cache key of the latest health prediction of a motor.
const predictionKey = "prediction"

// ErrMotorRequired is returned when a cache call has no motor id.
var ErrMotorRequired = errors.New("motor id is required")

// entryKey scopes a key to its motor.
func entryKey(motorID, key string) (string, error) {
	if motorID == "" {
		return "", ErrMotorRequired
	}
	return motorID + ":" + key, nil
}

func counterKey(motorID, key string) (string, error) {
	return entryKey(motorID, "counter:"+key)
}

func encodePrediction(p *domain.HealthPrediction) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode prediction: %w", err)
	}
	return data, nil
}

// decodePrediction treats a missing entry as a miss.
func decodePrediction(data []byte) (*domain.HealthPrediction, error) {
	if data == nil {
		return nil, nil
	}
	var p domain.HealthPrediction
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode cached prediction: %w", err)
	}
	return &p, nil
}

// New creates a new cache based on configuration.
// For Community tier: returns MemoryCache.
// For Pro tier with two-phase: returns TwoPhaseCache wrapping MemoryCache + Redis.
// For Pro tier without two-phase: returns Redis cache.
func New(cfg domain.CacheConfig) (domain.Cache, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryCache(cfg.LocalTTL, cfg.LocalCleanup), nil

	case "redis":
		if cfg.EnableTwoPhase {
			return NewTwoPhaseCache(cfg)
		}
		return NewRedisCache(cfg)

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// TwoPhaseCache implements the two-phase caching strategy.
// L1: Local memory cache for fast reads
// L2: Redis for distributed caching and persistence
type TwoPhaseCache struct {
	local  *MemoryCache
	remote *RedisCache
	l1TTL  time.Duration
}

// NewTwoPhaseCache creates a two-phase cache with memory + Redis.
func NewTwoPhaseCache(cfg domain.CacheConfig) (*TwoPhaseCache, error) {
	local := NewMemoryCache(cfg.LocalTTL, cfg.LocalCleanup)

	remote, err := NewRedisCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis cache: %w", err)
	}

	l1TTL := cfg.LocalTTL
	if l1TTL == 0 {
		l1TTL = 5 * time.Minute
	}

	return &TwoPhaseCache{
		local:  local,
		remote: remote,
		l1TTL:  l1TTL,
	}, nil
}

// Get retrieves from L1 first, then L2. Populates L1 on L2 hit.
func (c *TwoPhaseCache) Get(ctx context.Context, motorID string, key string) ([]byte, error) {
	// Check L1 first
	val, err := c.local.Get(ctx, motorID, key)
	if err != nil {
		return nil, err
	}
	if val != nil {
		return val, nil
	}

	// Check L2
	val, err = c.remote.Get(ctx, motorID, key)
	if err != nil {
		return nil, err
	}
	if val != nil {
		// Populate L1 for future reads
		_ = c.local.Set(ctx, motorID, key, val, c.l1TTL)
	}

	return val, nil
}

// Set writes to both L1 and L2.
func (c *TwoPhaseCache) Set(ctx context.Context, motorID string, key string, value []byte, ttl time.Duration) error {
	// Write to L1 with shorter TTL
	l1TTL := c.l1TTL
	if ttl < l1TTL {
		l1TTL = ttl
	}
	if err := c.local.Set(ctx, motorID, key, value, l1TTL); err != nil {
		return err
	}

	// Write to L2 with full TTL
	return c.remote.Set(ctx, motorID, key, value, ttl)
}

// Delete removes from both L1 and L2.
func (c *TwoPhaseCache) Delete(ctx context.Context, motorID string, key string) error {
	if err := c.local.Delete(ctx, motorID, key); err != nil {
		return err
	}
	return c.remote.Delete(ctx, motorID, key)
}

// GetPrediction retrieves a cached prediction from L1, then L2.
func (c *TwoPhaseCache) GetPrediction(ctx context.Context, motorID string) (*domain.HealthPrediction, error) {
	p, err := c.local.GetPrediction(ctx, motorID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}

	p, err = c.remote.GetPrediction(ctx, motorID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		_ = c.local.SetPrediction(ctx, motorID, p, c.l1TTL)
	}

	return p, nil
}

// SetPrediction caches a prediction in both L1 and L2.
func (c *TwoPhaseCache) SetPrediction(ctx context.Context, motorID string, p *domain.HealthPrediction, ttl time.Duration) error {
	l1TTL := c.l1TTL
	if ttl < l1TTL {
		l1TTL = ttl
	}
	if err := c.local.SetPrediction(ctx, motorID, p, l1TTL); err != nil {
		return err
	}
	return c.remote.SetPrediction(ctx, motorID, p, ttl)
}

// IncrementCounter counts in Redis only, so every replica sees one count per motor.
func (c *TwoPhaseCache) IncrementCounter(ctx context.Context, motorID string, key string, window time.Duration) (int64, error) {
	return c.remote.IncrementCounter(ctx, motorID, key, window)
}

// ResetCounter drops the Redis counter.
func (c *TwoPhaseCache) ResetCounter(ctx context.Context, motorID string, key string) error {
	return c.remote.ResetCounter(ctx, motorID, key)
}

// Ping checks both L1 and L2 health.
func (c *TwoPhaseCache) Ping(ctx context.Context) error {
	if err := c.local.Ping(ctx); err != nil {
		return fmt.Errorf("L1 ping failed: %w", err)
	}
	if err := c.remote.Ping(ctx); err != nil {
		return fmt.Errorf("L2 ping failed: %w", err)
	}
	return nil
}

// Close closes both L1 and L2.
func (c *TwoPhaseCache) Close() error {
	_ = c.local.Close()
	return c.remote.Close()
}

// Stats returns the number of L1 entries.
func (c *TwoPhaseCache) Stats() int {
	return c.local.Stats()
}
