package models

import (
	"time"

	"github.com/erp/construction/internal/domain/inventory"
	"github.com/google/uuid"
)

// StockItemModel is the persistence model for the StockItem aggregate root.
type StockItemModel struct {
	TenantAggregateModel
	ProductID      uuid.UUID `gorm:"type:uuid;not null;index"`
	QuantityOnHand Numeric   `gorm:"not null;default:0"`
	LastReceivedAt *time.Time
}

// TableName returns the table name for GORM
func (StockItemModel) TableName() string {
	return "stock_items"
}

// ToDomain converts the persistence model to a domain StockItem.
func (m *StockItemModel) ToDomain() *inventory.StockItem {
	return &inventory.StockItem{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		ProductID:           m.ProductID,
		QuantityOnHand:      m.QuantityOnHand.Decimal,
		LastReceivedAt:      m.LastReceivedAt,
	}
}

// FromDomain populates the persistence model from a domain StockItem.
func (m *StockItemModel) FromDomain(s *inventory.StockItem) {
	m.FromDomainTenantAggregateRoot(s.TenantAggregateRoot)
	m.ProductID = s.ProductID
	m.QuantityOnHand = NewNumeric(s.QuantityOnHand)
	m.LastReceivedAt = s.LastReceivedAt
}

// StockItemModelFromDomain creates a new persistence model from a domain StockItem.
func StockItemModelFromDomain(s *inventory.StockItem) *StockItemModel {
	m := &StockItemModel{}
	m.FromDomain(s)
	return m
}
