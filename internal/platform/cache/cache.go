// Package cache manages the Redis client backing the distributed dedup guard.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/grammarhour/bookbot/internal/platform/config"
)

// Guard lookups are on the hot path of every inbound action, so the client
// runs with short read/write deadlines; a slow Redis must degrade to the
// fail-open path quickly instead of stalling the user.
const (
	defaultDialTimeout = 5 * time.Second
	opTimeout          = 2 * time.Second
)

// Cache wraps a Redis client.
type Cache struct {
	Client *redis.Client
}

// ParseURL validates a Redis connection URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	return opts, nil
}

// New creates a cache client from the app's cache settings and verifies it
// with a ping. A nonpositive dial timeout falls back to the default.
func New(ctx context.Context, cfg config.CacheConfig) (*Cache, error) {
	opts, err := ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	dialTimeout := defaultDialTimeout
	if cfg.DialTimeoutSeconds > 0 {
		dialTimeout = time.Duration(cfg.DialTimeoutSeconds) * time.Second
	}
	opts.DialTimeout = dialTimeout
	opts.ReadTimeout = opTimeout
	opts.WriteTimeout = opTimeout

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging cache: %w", err)
	}

	return &Cache{Client: client}, nil
}

// Close shuts down the cache client.
func (c *Cache) Close() error {
	return c.Client.Close()
}

// HealthCheck verifies the cache connection is alive.
func (c *Cache) HealthCheck(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}
