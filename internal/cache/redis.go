package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/domain"
)

// incrWindow increments KEYS[1] and starts its expiry on the first hit, so
// the window is anchored at the first firing.
var incrWindow = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return current
`)

// RedisCache implements Cache using Redis.
// Used as the Pro tier cache and as L2 in two-phase caching.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(cfg domain.CacheConfig) (*RedisCache, error) {
	addr := cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}
	prefix := cfg.RedisKeyPrefix
	if prefix == "" {
		prefix = "motordiag"
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		ClientName:   "motordiag",
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisCache{client: client, prefix: prefix}, nil
}

// Get retrieves a value from Redis.
func (c *RedisCache) Get(ctx context.Context, motorID string, key string) ([]byte, error) {
	k, err := c.key(entryKey(motorID, key))
	if err != nil {
		return nil, err
	}

	val, err := c.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", k, err)
	}
	return val, nil
}

// Set stores a value in Redis with TTL. A zero TTL never expires.
func (c *RedisCache) Set(ctx context.Context, motorID string, key string, value []byte, ttl time.Duration) error {
	k, err := c.key(entryKey(motorID, key))
	if err != nil {
		return err
	}
	return c.client.Set(ctx, k, value, ttl).Err()
}

// Delete removes a value from Redis.
func (c *RedisCache) Delete(ctx context.Context, motorID string, key string) error {
	k, err := c.key(entryKey(motorID, key))
	if err != nil {
		return err
	}
	return c.client.Del(ctx, k).Err()
}

// GetPrediction retrieves a cached health prediction.
func (c *RedisCache) GetPrediction(ctx context.Context, motorID string) (*domain.HealthPrediction, error) {
	data, err := c.Get(ctx, motorID, predictionKey)
	if err != nil {
		return nil, err
	}
	return decodePrediction(data)
}

// SetPrediction caches a health prediction.
func (c *RedisCache) SetPrediction(ctx context.Context, motorID string, p *domain.HealthPrediction, ttl time.Duration) error {
	data, err := encodePrediction(p)
	if err != nil {
		return err
	}
	return c.Set(ctx, motorID, predictionKey, data, ttl)
}

// IncrementCounter atomically increments a windowed counter.
func (c *RedisCache) IncrementCounter(ctx context.Context, motorID string, key string, window time.Duration) (int64, error) {
	k, err := c.key(counterKey(motorID, key))
	if err != nil {
		return 0, err
	}

	n, err := incrWindow.Run(ctx, c.client, []string{k}, window.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", k, err)
	}
	return n, nil
}

// ResetCounter deletes a counter.
func (c *RedisCache) ResetCounter(ctx context.Context, motorID string, key string) error {
	k, err := c.key(counterKey(motorID, key))
	if err != nil {
		return err
	}
	return c.client.Del(ctx, k).Err()
}

// Ping checks Redis connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) key(k string, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return c.prefix + ":" + k, nil
}
