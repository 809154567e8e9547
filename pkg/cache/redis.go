package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig locates a Redis server.
type RedisConfig struct {
	// URL is a redis:// or rediss:// URL. It takes precedence over Addr.
	URL      string `toml:"url"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	// Prefix namespaces every key written by this cache.
	Prefix string `toml:"prefix"`
}

// DefaultRedisAddr is used when neither URL nor Addr is set.
const DefaultRedisAddr = "localhost:6379"

// DefaultRedisDialTimeout bounds a single connection attempt.
const DefaultRedisDialTimeout = time.Second

// RedisCache shares tile results between routing hosts.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	var opts *redis.Options
	if cfg.URL != "" {
		o, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = o
	} else {
		addr := cfg.Addr
		if addr == "" {
			addr = DefaultRedisAddr
		}
		opts = &redis.Options{Addr: addr, Password: cfg.Password, DB: cfg.DB}
	}
	// RetryWithBackoff owns retries; the client makes a single attempt.
	opts.MaxRetries = -1
	opts.DialerRetries = 1
	if opts.DialTimeout == 0 {
		opts.DialTimeout = DefaultRedisDialTimeout
	}
	c := NewRedisCacheFromClient(redis.NewClient(opts), cfg.Prefix)
	err := RetryWithBackoff(ctx, func() error {
		return c.wrap(ctx, c.client.Ping(ctx).Err())
	})
	if err != nil {
		c.client.Close()
		return nil, err
	}
	return c, nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client redis.UniversalClient, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

// Get retrieves a value. Transient failures are retried.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	hit := false
	err := RetryWithBackoff(ctx, func() error {
		b, err := c.client.Get(ctx, c.prefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return c.wrap(ctx, err)
		}
		data, hit = b, true
		return nil
	})
	return data, hit, err
}

// Set stores a value. A zero ttl keeps the key until it is deleted.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return RetryWithBackoff(ctx, func() error {
		return c.wrap(ctx, c.client.Set(ctx, c.prefix+key, data, ttl).Err())
	})
}

// Delete removes a value.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return RetryWithBackoff(ctx, func() error {
		return c.wrap(ctx, c.client.Del(ctx, c.prefix+key).Err())
	})
}

// Clear removes every key under the cache prefix and returns how many
// were removed. An empty prefix clears the tile and check key spaces only.
func (c *RedisCache) Clear(ctx context.Context) (int, error) {
	patterns := []string{c.prefix + "*"}
	if c.prefix == "" {
		patterns = []string{KeyTypeTile + ":*", KeyTypeCheck + ":*"}
	}
	n := 0
	for _, pattern := range patterns {
		iter := c.client.Scan(ctx, 0, pattern, 256).Iterator()
		var batch []string
		for iter.Next(ctx) {
			batch = append(batch, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return n, c.wrap(ctx, err)
		}
		if len(batch) == 0 {
			continue
		}
		removed, err := c.client.Del(ctx, batch...).Result()
		if err != nil {
			return n, c.wrap(ctx, err)
		}
		n += int(removed)
	}
	return n, nil
}

// Close closes the client.
func (c *RedisCache) Close() error { return c.client.Close() }

// wrap marks backend failures as retryable. Once ctx is done its error is
// returned instead; a timeout inside the client with ctx still live is a
// backend failure like any other.
func (c *RedisCache) wrap(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return Retryable(fmt.Errorf("%w: %w", ErrUnavailable, err))
}

var _ Cache = (*RedisCache)(nil)
