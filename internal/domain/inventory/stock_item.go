package inventory

import (
	"time"

	"github.com/erp/construction/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockItem holds the on-hand quantity of one product for a tenant.
// Products are opaque here; the catalog lives elsewhere.
type StockItem struct {
	shared.TenantAggregateRoot
	ProductID      uuid.UUID
	QuantityOnHand decimal.Decimal
	LastReceivedAt *time.Time
}

// NewStockItem creates an empty stock item for a product
func NewStockItem(tenantID, productID uuid.UUID) (*StockItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewValidationError("product ID cannot be empty")
	}
	return &StockItem{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ProductID:           productID,
		QuantityOnHand:      decimal.Zero,
	}, nil
}

// IncreaseStock adds received quantity. sourceID identifies the document
// that caused the movement (usually a purchase order).
func (i *StockItem) IncreaseStock(quantity decimal.Decimal, sourceType string, sourceID uuid.UUID) error {
	if !quantity.IsPositive() {
		return shared.NewValidationError("stock increase must be positive")
	}
	now := time.Now()
	i.QuantityOnHand = i.QuantityOnHand.Add(quantity)
	i.LastReceivedAt = &now
	i.IncrementVersion()
	i.AddDomainEvent(NewStockIncreasedEvent(i, quantity, sourceType, sourceID))
	return nil
}
