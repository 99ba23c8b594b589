package inventory

import (
	"github.com/erp/construction/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeStockItem = "StockItem"

// Event type constants
const (
	EventTypeStockIncreased = "StockIncreased"
)

// StockIncreasedEvent is raised when goods enter stock
type StockIncreasedEvent struct {
	shared.BaseDomainEvent
	ProductID      uuid.UUID       `json:"product_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	QuantityOnHand decimal.Decimal `json:"quantity_on_hand"`
	SourceType     string          `json:"source_type"`
	SourceID       uuid.UUID       `json:"source_id"`
}

// NewStockIncreasedEvent creates a new StockIncreasedEvent
func NewStockIncreasedEvent(item *StockItem, quantity decimal.Decimal, sourceType string, sourceID uuid.UUID) *StockIncreasedEvent {
	return &StockIncreasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockIncreased, AggregateTypeStockItem, item.ID, item.TenantID),
		ProductID:       item.ProductID,
		Quantity:        quantity,
		QuantityOnHand:  item.QuantityOnHand,
		SourceType:      sourceType,
		SourceID:        sourceID,
	}
}
