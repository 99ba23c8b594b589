package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CumulativeCache caches the billed-to-date quantity of budget lines.
// Entries must be invalidated after any commit that changes billing lines
// of the budget line.
//
// Every Invalidate advances the line's generation. A reader that misses
// passes the generation it got from Get to Set, and Set drops the value when
// the line was invalidated in between, since the value was read from the
// database before that commit.
type CumulativeCache interface {
	// Get returns the cached quantity, the line's generation and whether a
	// quantity was present
	Get(ctx context.Context, tenantID, budgetLineID uuid.UUID) (quantity decimal.Decimal, generation uint64, found bool, err error)
	// Set stores quantity unless the line's generation moved past generation
	Set(ctx context.Context, tenantID, budgetLineID uuid.UUID, quantity decimal.Decimal, generation uint64) error
	Invalidate(ctx context.Context, tenantID uuid.UUID, budgetLineIDs ...uuid.UUID) error
}

// IdempotencyStore deduplicates client retries of non-idempotent commands
type IdempotencyStore interface {
	// Reserve claims key. It returns claimed=true when the caller now owns the
	// key. Otherwise result holds the value stored by Complete, or is empty
	// while the owner is still running.
	Reserve(ctx context.Context, key string, ttl time.Duration) (claimed bool, result string, err error)

	// Complete stores the command result for later retries
	Complete(ctx context.Context, key, result string, ttl time.Duration) error

	// Release drops a reservation after a failed command
	Release(ctx context.Context, key string) error
}

// NoopCumulativeCache never caches
type NoopCumulativeCache struct{}

func (NoopCumulativeCache) Get(context.Context, uuid.UUID, uuid.UUID) (decimal.Decimal, uint64, bool, error) {
	return decimal.Zero, 0, false, nil
}

func (NoopCumulativeCache) Set(context.Context, uuid.UUID, uuid.UUID, decimal.Decimal, uint64) error {
	return nil
}

func (NoopCumulativeCache) Invalidate(context.Context, uuid.UUID, ...uuid.UUID) error {
	return nil
}
