package cache

import (
	"context"
	"fmt"
	"time"

	appshared "github.com/erp/construction/internal/application/shared"
	"github.com/erp/construction/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stores bundles the cumulative cache and the idempotency store built from
// one configuration
type Stores struct {
	Cumulative  appshared.CumulativeCache
	Idempotency appshared.IdempotencyStore

	closers []func() error
	ping    func(context.Context) error
}

// Ping checks the backing Redis server; in-memory stores are always ready
func (s *Stores) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases the Redis client or stops the in-memory cleanup goroutines
func (s *Stores) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory stores when Redis is unavailable
// Default is false
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// Factory creates cache stores based on configuration
type Factory struct {
	redisConfig           config.RedisConfig
	cacheConfig           config.CacheConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// NewFactory creates a new factory
func NewFactory(redisCfg config.RedisConfig, cacheCfg config.CacheConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig: redisCfg,
		cacheConfig: cacheCfg,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// CreateStores builds the stores for the configured backend
func (f *Factory) CreateStores() (*Stores, error) {
	if f.cacheConfig.Backend == "redis" {
		client, err := NewRedisClient(f.redisConfig)
		if err == nil {
			f.logger.Info("Using Redis cache stores",
				zap.String("addr", client.Options().Addr))
			return f.redisStores(client), nil
		}
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("redis required for cache stores but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory cache stores. "+
			"Idempotency keys will not be shared across instances.",
			zap.Error(err),
		)
	}
	return f.inMemoryStores(), nil
}

func (f *Factory) redisStores(client redis.UniversalClient) *Stores {
	return &Stores{
		Cumulative: NewRedisCumulativeCache(client, f.cacheConfig.KeyPrefix,
			WithCumulativeTTL(f.cacheConfig.CumulativeTTL), WithCacheLogger(f.logger)),
		Idempotency: NewRedisIdempotencyStore(client, f.cacheConfig.KeyPrefix),
		closers:     []func() error{client.Close},
		ping:        func(ctx context.Context) error { return client.Ping(ctx).Err() },
	}
}

func (f *Factory) inMemoryStores() *Stores {
	cumulative := NewInMemoryCumulativeCache(
		WithCumulativeTTL(f.cacheConfig.CumulativeTTL), WithCacheLogger(f.logger))
	idempotency := NewInMemoryIdempotencyStore()
	return &Stores{
		Cumulative:  cumulative,
		Idempotency: idempotency,
		closers:     []func() error{cumulative.Close, idempotency.Close},
	}
}
