package inventory

import (
	"context"

	"github.com/google/uuid"
)

// StockItemRepository defines persistence operations for stock items
type StockItemRepository interface {
	// FindByProductForUpdate returns the tenant's stock item for a product with
	// its row locked, or shared.ErrNotFound
	FindByProductForUpdate(ctx context.Context, tenantID, productID uuid.UUID) (*StockItem, error)

	// FindByProduct returns the tenant's stock item for a product
	FindByProduct(ctx context.Context, tenantID, productID uuid.UUID) (*StockItem, error)

	// CreateIfAbsent inserts item unless the tenant already has a stock item
	// for its product, in which case it does nothing
	CreateIfAbsent(ctx context.Context, item *StockItem) error

	// Save creates or updates a stock item with an optimistic version check
	Save(ctx context.Context, item *StockItem) error
}
