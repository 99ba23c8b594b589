package cache

import (
	"context"
	"testing"
	"time"

	"github.com/erp/construction/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachableRedis() config.RedisConfig {
	// port 1 is never a Redis server
	return config.RedisConfig{Host: "127.0.0.1", Port: 1}
}

func TestFactory_MemoryBackend(t *testing.T) {
	f := NewFactory(unreachableRedis(), config.CacheConfig{Backend: "memory", CumulativeTTL: time.Minute, KeyPrefix: "erp"})

	stores, err := f.CreateStores()
	require.NoError(t, err)
	defer stores.Close()

	assert.IsType(t, &InMemoryCumulativeCache{}, stores.Cumulative)
	assert.IsType(t, &InMemoryIdempotencyStore{}, stores.Idempotency)
	assert.NoError(t, stores.Ping(context.Background()))
}

func TestFactory_RedisUnavailable(t *testing.T) {
	cfg := config.CacheConfig{Backend: "redis", KeyPrefix: "erp"}

	_, err := NewFactory(unreachableRedis(), cfg).CreateStores()
	assert.Error(t, err)

	stores, err := NewFactory(unreachableRedis(), cfg, WithInMemoryFallback(true)).CreateStores()
	require.NoError(t, err)
	defer stores.Close()
	assert.IsType(t, &InMemoryIdempotencyStore{}, stores.Idempotency)
}
