package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	appshared "github.com/erp/construction/internal/application/shared"
	"github.com/redis/go-redis/v9"
)

// pendingMarker is stored while the owner of a key is still running.
// Completed keys hold the command result, which is never empty.
const pendingMarker = ""

// RedisIdempotencyStore implements IdempotencyStore using Redis
// This is suitable for distributed deployments where multiple instances
// need to share idempotency state
type RedisIdempotencyStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisIdempotencyStore creates a store on an existing Redis client.
// The caller retains ownership of the client.
func NewRedisIdempotencyStore(client redis.UniversalClient, keyPrefix string) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: keyPrefix + ":idempotency:",
	}
}

// Reserve claims key with SETNX. A losing caller reads the stored value,
// which is the pending marker until the owner calls Complete.
func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, string, error) {
	redisKey := s.keyPrefix + key

	for attempt := 0; attempt < 2; attempt++ {
		claimed, err := s.client.SetNX(ctx, redisKey, pendingMarker, ttl).Result()
		if err != nil {
			return false, "", fmt.Errorf("failed to reserve idempotency key: %w", err)
		}
		if claimed {
			return true, "", nil
		}

		result, err := s.client.Get(ctx, redisKey).Result()
		if errors.Is(err, redis.Nil) {
			// expired or released between SETNX and GET
			continue
		}
		if err != nil {
			return false, "", fmt.Errorf("failed to read idempotency key: %w", err)
		}
		return false, result, nil
	}
	return false, pendingMarker, nil
}

// Complete stores result under key
func (s *RedisIdempotencyStore) Complete(ctx context.Context, key, result string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.keyPrefix+key, result, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency result: %w", err)
	}
	return nil
}

// Release deletes key
func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

var _ appshared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
