package budget

import (
	"context"

	"github.com/erp/construction/internal/domain/shared"
	"github.com/google/uuid"
)

// WorkOrderRepository defines persistence operations for work orders
type WorkOrderRepository interface {
	// FindByID loads a work order regardless of tenant; callers check ownership
	FindByID(ctx context.Context, id uuid.UUID) (*WorkOrder, error)

	// FindByIDForUpdate loads a work order and locks its row until the
	// surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*WorkOrder, error)

	// FindAllForTenant lists work orders with pagination
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]WorkOrder, int64, error)

	// ExistsByCode checks code uniqueness within a tenant
	ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error)

	// Save creates or updates a work order with an optimistic version check
	Save(ctx context.Context, wo *WorkOrder) error
}

// BudgetVersionRepository defines persistence operations for budget versions and their lines
type BudgetVersionRepository interface {
	// FindByID loads a version with its lines
	FindByID(ctx context.Context, id uuid.UUID) (*BudgetVersion, error)

	// FindByIDForUpdate loads a version with its lines and locks the version row
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*BudgetVersion, error)

	// FindByWorkOrder lists all versions of a work order, newest first
	FindByWorkOrder(ctx context.Context, tenantID, workOrderID uuid.UUID) ([]BudgetVersion, error)

	// FindCurrent returns the current version of a work order or ErrNotFound
	FindCurrent(ctx context.Context, tenantID, workOrderID uuid.UUID) (*BudgetVersion, error)

	// NextVersionNumber returns max(version_number)+1 for the work order.
	// Callers must hold the work order lock.
	NextVersionNumber(ctx context.Context, workOrderID uuid.UUID) (int, error)

	// Save creates or updates a version and synchronizes its lines
	Save(ctx context.Context, v *BudgetVersion) error

	// SetCurrent clears the current flag on every sibling of v and sets it on v.
	// Must run inside a transaction that holds the work order lock.
	SetCurrent(ctx context.Context, v *BudgetVersion) error

	// FindLineByID loads a single budget line
	FindLineByID(ctx context.Context, lineID uuid.UUID) (*BudgetLine, error)

	// FindLineByIDForUpdate loads a budget line and locks its row so that
	// billing allocations against it serialize
	FindLineByIDForUpdate(ctx context.Context, lineID uuid.UUID) (*BudgetLine, error)
}
