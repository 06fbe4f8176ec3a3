package cache

import (
	"go.uber.org/zap"

	"github.com/marketship/backend/internal/infrastructure/config"
)

// QuoteCacheFactory creates quote caches based on configuration
type QuoteCacheFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	maxInMemoryEntries    int
	allowInMemoryFallback bool
}

// QuoteCacheFactoryOption is a functional option for configuring the factory
type QuoteCacheFactoryOption func(*QuoteCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) QuoteCacheFactoryOption {
	return func(f *QuoteCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory cache
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) QuoteCacheFactoryOption {
	return func(f *QuoteCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// WithMaxInMemoryEntries bounds the in-memory cache size.
func WithMaxInMemoryEntries(n int) QuoteCacheFactoryOption {
	return func(f *QuoteCacheFactory) {
		f.maxInMemoryEntries = n
	}
}

// NewQuoteCacheFactory creates a new factory
func NewQuoteCacheFactory(cfg config.RedisConfig, opts ...QuoteCacheFactoryOption) *QuoteCacheFactory {
	f := &QuoteCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		maxInMemoryEntries:    1024,
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Create returns a Redis-backed quote cache when Redis is enabled, falling
// back to the in-memory cache when allowed.
func (f *QuoteCacheFactory) Create() (QuoteCache, error) {
	if !f.redisConfig.Enabled {
		return NewInMemoryQuoteCache(f.maxInMemoryEntries), nil
	}

	store, err := NewRedisQuoteCache(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		if !f.allowInMemoryFallback {
			return nil, err
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory quote cache",
			zap.Error(err))
		return NewInMemoryQuoteCache(f.maxInMemoryEntries), nil
	}

	f.logger.Info("Using Redis quote cache",
		zap.String("host", f.redisConfig.Host))
	return store, nil
}
