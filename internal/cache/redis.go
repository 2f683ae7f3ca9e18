// Package cache provides the Redis-backed session store.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultPoolSize     = 10
	defaultMinIdleConns = 2
	defaultPingTimeout  = 5 * time.Second

	// DefaultKeyPrefix namespaces session records.
	DefaultKeyPrefix = "session:"
)

// Options tunes the Redis client and the session key layout.
// Zero fields take their defaults.
type Options struct {
	PoolSize     int
	MinIdleConns int
	// KeyPrefix lets several deployments share one Redis database.
	KeyPrefix string
	// PingTimeout bounds the connectivity check in New.
	PingTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.PoolSize <= 0 {
		o.PoolSize = defaultPoolSize
	}
	if o.MinIdleConns <= 0 {
		o.MinIdleConns = defaultMinIdleConns
	}
	if o.MinIdleConns > o.PoolSize {
		o.MinIdleConns = o.PoolSize
	}
	if o.KeyPrefix == "" {
		o.KeyPrefix = DefaultKeyPrefix
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = defaultPingTimeout
	}
	return o
}

// Cache is the session store.
type Cache struct {
	client *redis.Client
	prefix string
}

// New connects to Redis and verifies the connection within opts.PingTimeout.
func New(ctx context.Context, redisURL string, opts Options) (*Cache, error) {
	opts = opts.withDefaults()

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.PoolSize = opts.PoolSize
	opt.MinIdleConns = opts.MinIdleConns
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis at %s: %w", opt.Addr, err)
	}

	return &Cache{client: client, prefix: opts.KeyPrefix}, nil
}

// Ping checks Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client, for test setup.
func (c *Cache) Client() *redis.Client {
	return c.client
}

func (c *Cache) sessionKey(id string) string {
	return c.prefix + id
}
