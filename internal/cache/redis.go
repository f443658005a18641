// Package cache provides an optional Redis-backed cache for the public
// site-configuration reads. The database stays authoritative; the cache is
// invalidated on every save.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kinesite/backend/internal/config"
)

// ErrCacheMiss is returned when the key is not present
var ErrCacheMiss = errors.New("cache miss")

// Cache is a thin wrapper around the Redis client
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a new Cache from configuration. Returns nil when Redis is not
// configured; callers treat a nil Cache as disabled.
func New(cfg config.RedisConfig) *Cache {
	if !cfg.Enabled() {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &Cache{
		client: client,
		ttl:    cfg.TTL,
	}
}

// Client returns the underlying Redis client for health probes
func (c *Cache) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.client
}

// Get returns the cached value for key, or ErrCacheMiss
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	if c == nil {
		return nil, ErrCacheMiss
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return data, nil
}

// Set stores a value under key with the configured TTL
func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	if c == nil {
		return nil
	}
	return c.client.Set(ctx, key, value, c.ttl).Err()
}

// Delete removes a key; missing keys are not an error
func (c *Cache) Delete(ctx context.Context, key string) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, key).Err()
}

// Close releases the client
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
