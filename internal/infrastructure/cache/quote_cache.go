package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// QuoteCache stores serialized checkout rate lists keyed by the stable
// quote cache key. A hit short-circuits the whole aggregation pipeline.
type QuoteCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

// InMemoryQuoteCache is a QuoteCache backed by the bounded TTL cache.
// Suitable for single-instance deployments and testing.
type InMemoryQuoteCache struct {
	cache *TTLCache
}

// NewInMemoryQuoteCache creates an in-memory quote cache bounded to maxSize
// entries.
func NewInMemoryQuoteCache(maxSize int) *InMemoryQuoteCache {
	return &InMemoryQuoteCache{cache: NewTTLCache(maxSize)}
}

// Get returns the cached payload for key.
func (c *InMemoryQuoteCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	return v.([]byte), true, nil
}

// Set stores payload under key for ttl.
func (c *InMemoryQuoteCache) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	c.cache.Set(key, payload, ttl)
	return nil
}

// RedisQuoteCache is a QuoteCache backed by Redis, for deployments where
// multiple instances should share quote results.
type RedisQuoteCache struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisQuoteCache creates a Redis-based quote cache and verifies the
// connection.
func NewRedisQuoteCache(cfg RedisConfig) (*RedisQuoteCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisQuoteCache{
		client:    client,
		keyPrefix: "quote:rates:",
	}, nil
}

// NewRedisQuoteCacheWithClient creates a cache reusing an existing client.
func NewRedisQuoteCacheWithClient(client *redis.Client) *RedisQuoteCache {
	return &RedisQuoteCache{client: client, keyPrefix: "quote:rates:"}
}

// Get returns the cached payload for key.
func (c *RedisQuoteCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis quote cache get: %w", err)
	}
	return payload, true, nil
}

// Set stores payload under key for ttl.
func (c *RedisQuoteCache) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.keyPrefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis quote cache set: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (c *RedisQuoteCache) Close() error {
	return c.client.Close()
}

var (
	_ QuoteCache = (*InMemoryQuoteCache)(nil)
	_ QuoteCache = (*RedisQuoteCache)(nil)
)
