package billing

import (
	"context"

	"github.com/erp/construction/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillingPeriodRepository defines persistence operations for billing periods
type BillingPeriodRepository interface {
	// FindByID loads a period with its lines
	FindByID(ctx context.Context, id uuid.UUID) (*BillingPeriod, error)

	// FindByIDForUpdate loads a period with its lines and locks the period row
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*BillingPeriod, error)

	// FindByWorkOrder lists periods of a work order ordered by number
	FindByWorkOrder(ctx context.Context, tenantID, workOrderID uuid.UUID, filter shared.Filter) ([]BillingPeriod, int64, error)

	// NextNumber returns max(number)+1 for the work order.
	// Callers must hold the work order lock.
	NextNumber(ctx context.Context, workOrderID uuid.UUID) (int, error)

	// PriorCumulative sums executed quantity per budget line over the
	// non-cancelled periods of workOrderID numbered below beforeNumber.
	// Budget lines with no history are absent from the map.
	PriorCumulative(ctx context.Context, workOrderID uuid.UUID, beforeNumber int, budgetLineIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)

	// CommittedQuantity sums executed quantity of a budget line over every
	// non-cancelled period except excludePeriodID
	CommittedQuantity(ctx context.Context, budgetLineID, excludePeriodID uuid.UUID) (decimal.Decimal, error)

	// CountByBudgetLine counts billing lines referencing a budget line, in any period
	CountByBudgetLine(ctx context.Context, budgetLineID uuid.UUID) (int64, error)

	// Save creates or updates a period with an optimistic version check and
	// synchronizes its lines
	Save(ctx context.Context, p *BillingPeriod) error

	// Delete removes a period and its lines
	Delete(ctx context.Context, p *BillingPeriod) error
}
