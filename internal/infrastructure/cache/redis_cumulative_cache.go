package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	appshared "github.com/erp/construction/internal/application/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RedisCumulativeCache implements CumulativeCache using Redis. Quantities are
// stored as decimal strings so no precision is lost.
type RedisCumulativeCache struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

var errStaleFill = errors.New("cumulative fill is older than the last invalidation")

// CumulativeCacheOption is a functional option for configuring the caches
type CumulativeCacheOption func(*cumulativeOptions)

type cumulativeOptions struct {
	ttl    time.Duration
	logger *zap.Logger
}

// WithCumulativeTTL sets how long a cached quantity lives
func WithCumulativeTTL(ttl time.Duration) CumulativeCacheOption {
	return func(o *cumulativeOptions) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithCacheLogger sets the logger for the cache
func WithCacheLogger(logger *zap.Logger) CumulativeCacheOption {
	return func(o *cumulativeOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func applyOptions(opts []CumulativeCacheOption) cumulativeOptions {
	o := cumulativeOptions{ttl: 5 * time.Minute, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewRedisCumulativeCache creates a cache on an existing Redis client.
// The caller retains ownership of the client.
func NewRedisCumulativeCache(client redis.UniversalClient, keyPrefix string, opts ...CumulativeCacheOption) *RedisCumulativeCache {
	o := applyOptions(opts)
	return &RedisCumulativeCache{
		client:    client,
		keyPrefix: keyPrefix + ":cumulative:",
		ttl:       o.ttl,
		logger:    o.logger,
	}
}

// generationTTL bounds how long an untouched line's generation is kept
const generationTTL = 24 * time.Hour

// keys returns the value and generation keys of a line. The hash tag keeps
// both in one cluster slot so Set can watch one and write the other.
func (c *RedisCumulativeCache) keys(tenantID, budgetLineID uuid.UUID) (value, generation string) {
	base := c.keyPrefix + "{" + tenantID.String() + ":" + budgetLineID.String() + "}"
	return base, base + ":gen"
}

// Get returns the cached quantity and the line's generation
func (c *RedisCumulativeCache) Get(ctx context.Context, tenantID, budgetLineID uuid.UUID) (decimal.Decimal, uint64, bool, error) {
	valueKey, genKey := c.keys(tenantID, budgetLineID)
	vals, err := c.client.MGet(ctx, valueKey, genKey).Result()
	if err != nil {
		return decimal.Zero, 0, false, fmt.Errorf("failed to get cumulative quantity: %w", err)
	}

	var generation uint64
	if raw, ok := vals[1].(string); ok {
		generation, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return decimal.Zero, 0, false, fmt.Errorf("corrupt cumulative generation %q: %w", raw, err)
		}
	}
	raw, ok := vals[0].(string)
	if !ok {
		return decimal.Zero, generation, false, nil
	}

	qty, err := decimal.NewFromString(raw)
	if err != nil {
		c.logger.Warn("Dropping corrupt cumulative cache entry",
			zap.String("budget_line_id", budgetLineID.String()),
			zap.String("value", raw))
		_ = c.client.Del(ctx, valueKey)
		return decimal.Zero, generation, false, nil
	}
	return qty, generation, true, nil
}

// Set stores quantity if the line's generation still equals generation.
// The generation key is watched so an Invalidate racing the write aborts it.
func (c *RedisCumulativeCache) Set(ctx context.Context, tenantID, budgetLineID uuid.UUID, quantity decimal.Decimal, generation uint64) error {
	valueKey, genKey := c.keys(tenantID, budgetLineID)
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Uint64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, valueKey, quantity.String(), c.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, errStaleFill) || errors.Is(err, redis.TxFailedErr) {
		c.logger.Debug("Dropping stale cumulative fill",
			zap.String("budget_line_id", budgetLineID.String()),
			zap.Uint64("generation", generation))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to set cumulative quantity: %w", err)
	}
	return nil
}

// Invalidate advances the generation of the given budget lines, then deletes
// their values. A fill that read the old generation fails its watch.
func (c *RedisCumulativeCache) Invalidate(ctx context.Context, tenantID uuid.UUID, budgetLineIDs ...uuid.UUID) error {
	if len(budgetLineIDs) == 0 {
		return nil
	}
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range budgetLineIDs {
			valueKey, genKey := c.keys(tenantID, id)
			pipe.Incr(ctx, genKey)
			pipe.Expire(ctx, genKey, generationTTL)
			pipe.Del(ctx, valueKey)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate cumulative quantities: %w", err)
	}
	c.logger.Debug("Invalidated cumulative quantities",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("count", len(budgetLineIDs)))
	return nil
}

var _ appshared.CumulativeCache = (*RedisCumulativeCache)(nil)
