package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations.
// Supports two-phase caching: local memory (Community) + Redis (Pro).
// Keys are scoped per motor. Diagnoses are never cached.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, motorID string, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, motorID string, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, motorID string, key string) error

	// GetPrediction retrieves a cached health prediction.
	GetPrediction(ctx context.Context, motorID string) (*HealthPrediction, error)

	// SetPrediction caches a health prediction.
	SetPrediction(ctx context.Context, motorID string, p *HealthPrediction, ttl time.Duration) error

	// IncrementCounter atomically increments a counter and returns new value.
	// Used for alert persistence (how often a rule fired within a window).
	IncrementCounter(ctx context.Context, motorID string, key string, window time.Duration) (int64, error)

	// ResetCounter drops a counter so the next increment starts from one.
	ResetCounter(ctx context.Context, motorID string, key string) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string `mapstructure:"type"`

	// Local memory cache settings (Community tier)
	LocalTTL     time.Duration `mapstructure:"localTtl"`
	LocalCleanup time.Duration `mapstructure:"localCleanup"`

	// Redis settings (Pro tier)
	RedisAddr     string `mapstructure:"redisAddr"`
	RedisPassword string `mapstructure:"redisPassword"`
	RedisDB       int    `mapstructure:"redisDb"`

	// RedisKeyPrefix namespaces keys when several deployments share a Redis
	RedisKeyPrefix string `mapstructure:"redisKeyPrefix"`

	// Two-phase settings
	EnableTwoPhase bool `mapstructure:"enableTwoPhase"` // If true, check local first, then Redis
}
