package procurement

import (
	"context"

	"github.com/erp/construction/internal/domain/shared"
	"github.com/google/uuid"
)

// PurchaseOrderRepository defines persistence operations for purchase orders
type PurchaseOrderRepository interface {
	// FindByID loads an order with its lines
	FindByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)

	// FindByIDForUpdate loads an order with its lines and locks the order row
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)

	// FindAllForTenant lists orders, optionally filtered by "status" and "supplier_id"
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]PurchaseOrder, int64, error)

	// NextFolio allocates the next folio for the tenant. The sequence row
	// stays locked until the surrounding transaction ends.
	NextFolio(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// Save creates or updates an order with an optimistic version check
	// and synchronizes its lines
	Save(ctx context.Context, o *PurchaseOrder) error
}
