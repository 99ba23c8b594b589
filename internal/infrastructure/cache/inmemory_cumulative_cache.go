package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	appshared "github.com/erp/construction/internal/application/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultCleanupInterval = 30 * time.Second

type lineKey struct {
	tenantID     uuid.UUID
	budgetLineID uuid.UUID
}

// cacheEntry wraps a cached value with expiration time. Invalidate leaves
// an entry without a value that carries the line's new generation.
type cacheEntry struct {
	value      decimal.Decimal
	present    bool
	generation uint64
	expiresAt  time.Time
}

func (e *cacheEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// InMemoryCumulativeCache implements CumulativeCache in process memory.
// Entries are immutable once stored; mu serializes Set against Invalidate.
type InMemoryCumulativeCache struct {
	entries sync.Map // map[lineKey]*cacheEntry
	mu      sync.Mutex
	clock   uint64
	floor   uint64 // generation of lines without an entry
	ttl     time.Duration
	logger  *zap.Logger
	stopCh  chan struct{}
	stopped int32

	hits   int64
	misses int64
}

// NewInMemoryCumulativeCache creates the cache and starts its cleanup goroutine
func NewInMemoryCumulativeCache(opts ...CumulativeCacheOption) *InMemoryCumulativeCache {
	o := applyOptions(opts)
	c := &InMemoryCumulativeCache{
		ttl:    o.ttl,
		logger: o.logger,
		stopCh: make(chan struct{}),
	}
	go c.cleanupExpired()
	return c
}

// Get returns the cached quantity and the line's generation
func (c *InMemoryCumulativeCache) Get(_ context.Context, tenantID, budgetLineID uuid.UUID) (decimal.Decimal, uint64, bool, error) {
	generation := atomic.LoadUint64(&c.floor)
	if v, ok := c.entries.Load(lineKey{tenantID, budgetLineID}); ok {
		e := v.(*cacheEntry)
		if e.present && !e.isExpired() {
			atomic.AddInt64(&c.hits, 1)
			return e.value, e.generation, true, nil
		}
		generation = e.generation
	}
	atomic.AddInt64(&c.misses, 1)
	return decimal.Zero, generation, false, nil
}

// Set stores quantity if the line was not invalidated since generation was read
func (c *InMemoryCumulativeCache) Set(_ context.Context, tenantID, budgetLineID uuid.UUID, quantity decimal.Decimal, generation uint64) error {
	key := lineKey{tenantID, budgetLineID}

	c.mu.Lock()
	defer c.mu.Unlock()
	current := c.floor
	if v, ok := c.entries.Load(key); ok {
		current = v.(*cacheEntry).generation
	}
	if current != generation {
		c.logger.Debug("Dropping stale cumulative fill",
			zap.String("budget_line_id", budgetLineID.String()),
			zap.Uint64("generation", generation),
			zap.Uint64("current", current))
		return nil
	}
	c.entries.Store(key, &cacheEntry{
		value:      quantity,
		present:    true,
		generation: generation,
		expiresAt:  time.Now().Add(c.ttl),
	})
	return nil
}

// Invalidate drops the values of the given budget lines and advances their
// generation
func (c *InMemoryCumulativeCache) Invalidate(_ context.Context, tenantID uuid.UUID, budgetLineIDs ...uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range budgetLineIDs {
		c.clock++
		c.entries.Store(lineKey{tenantID, id}, &cacheEntry{
			generation: c.clock,
			expiresAt:  time.Now().Add(c.ttl),
		})
	}
	return nil
}

// Stats returns the hit and miss counters
func (c *InMemoryCumulativeCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (c *InMemoryCumulativeCache) Close() error {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

func (c *InMemoryCumulativeCache) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.doCleanup()
		}
	}
}

// doCleanup drops expired entries. Dropping a line's entry forgets its
// generation, so the floor moves up to refuse fills that started earlier.
func (c *InMemoryCumulativeCache) doCleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	c.entries.Range(func(key, value any) bool {
		if value.(*cacheEntry).isExpired() && c.entries.CompareAndDelete(key, value) {
			removed++
		}
		return true
	})
	if removed > 0 {
		atomic.StoreUint64(&c.floor, c.clock)
		c.logger.Debug("Cumulative cache cleanup", zap.Int("removed", removed))
	}
}

var _ appshared.CumulativeCache = (*InMemoryCumulativeCache)(nil)
