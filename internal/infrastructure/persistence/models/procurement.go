package models

import (
	"time"

	"github.com/erp/construction/internal/domain/procurement"
	"github.com/google/uuid"
)

// PurchaseOrderModel is the persistence model for the PurchaseOrder aggregate root.
type PurchaseOrderModel struct {
	TenantAggregateModel
	Folio        int64     `gorm:"not null;index"`
	SupplierID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Status       string    `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	Subtotal     Numeric   `gorm:"not null;default:0"`
	Tax          Numeric   `gorm:"not null;default:0"`
	Total        Numeric   `gorm:"not null;default:0"`
	Paid         Numeric   `gorm:"not null;default:0"`
	Notes        string    `gorm:"type:text"`
	SentAt       *time.Time
	CompletedAt  *time.Time
	CancelledAt  *time.Time
	CancelReason string                   `gorm:"type:varchar(500)"`
	Lines        []PurchaseOrderLineModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (PurchaseOrderModel) TableName() string {
	return "purchase_orders"
}

// ToDomain converts the persistence model to a domain PurchaseOrder.
func (m *PurchaseOrderModel) ToDomain() *procurement.PurchaseOrder {
	o := &procurement.PurchaseOrder{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Folio:               m.Folio,
		SupplierID:          m.SupplierID,
		Status:              procurement.OrderStatus(m.Status),
		Subtotal:            m.Subtotal.Decimal,
		Tax:                 m.Tax.Decimal,
		Total:               m.Total.Decimal,
		Paid:                m.Paid.Decimal,
		Notes:               m.Notes,
		SentAt:              m.SentAt,
		CompletedAt:         m.CompletedAt,
		CancelledAt:         m.CancelledAt,
		CancelReason:        m.CancelReason,
		Lines:               make([]procurement.PurchaseOrderLine, len(m.Lines)),
	}
	for i := range m.Lines {
		o.Lines[i] = *m.Lines[i].ToDomain()
	}
	return o
}

// FromDomain populates the persistence model from a domain PurchaseOrder.
func (m *PurchaseOrderModel) FromDomain(o *procurement.PurchaseOrder) {
	m.FromDomainTenantAggregateRoot(o.TenantAggregateRoot)
	m.Folio = o.Folio
	m.SupplierID = o.SupplierID
	m.Status = string(o.Status)
	m.Subtotal = NewNumeric(o.Subtotal)
	m.Tax = NewNumeric(o.Tax)
	m.Total = NewNumeric(o.Total)
	m.Paid = NewNumeric(o.Paid)
	m.Notes = o.Notes
	m.SentAt = o.SentAt
	m.CompletedAt = o.CompletedAt
	m.CancelledAt = o.CancelledAt
	m.CancelReason = o.CancelReason
	m.Lines = make([]PurchaseOrderLineModel, len(o.Lines))
	for i := range o.Lines {
		m.Lines[i] = *PurchaseOrderLineModelFromDomain(o.TenantID, &o.Lines[i])
	}
}

// PurchaseOrderModelFromDomain creates a new persistence model from a domain PurchaseOrder.
func PurchaseOrderModelFromDomain(o *procurement.PurchaseOrder) *PurchaseOrderModel {
	m := &PurchaseOrderModel{}
	m.FromDomain(o)
	return m
}

// PurchaseOrderLineModel is the persistence model for the PurchaseOrderLine entity.
type PurchaseOrderLineModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID         uuid.UUID `gorm:"type:uuid;not null;index"`
	OrderID          uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Description      string    `gorm:"type:varchar(500)"`
	Unit             string    `gorm:"type:varchar(20)"`
	QuantityOrdered  Numeric   `gorm:"not null"`
	QuantityReceived Numeric   `gorm:"not null;default:0"`
	UnitPrice        Numeric   `gorm:"not null"`
	Amount           Numeric   `gorm:"not null"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PurchaseOrderLineModel) TableName() string {
	return "purchase_order_lines"
}

// ToDomain converts the persistence model to a domain PurchaseOrderLine.
func (m *PurchaseOrderLineModel) ToDomain() *procurement.PurchaseOrderLine {
	return &procurement.PurchaseOrderLine{
		ID:               m.ID,
		OrderID:          m.OrderID,
		ProductID:        m.ProductID,
		Description:      m.Description,
		Unit:             m.Unit,
		QuantityOrdered:  m.QuantityOrdered.Decimal,
		QuantityReceived: m.QuantityReceived.Decimal,
		UnitPrice:        m.UnitPrice.Decimal,
		Amount:           m.Amount.Decimal,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// PurchaseOrderLineModelFromDomain creates a new persistence model from a domain PurchaseOrderLine.
func PurchaseOrderLineModelFromDomain(tenantID uuid.UUID, l *procurement.PurchaseOrderLine) *PurchaseOrderLineModel {
	return &PurchaseOrderLineModel{
		ID:               l.ID,
		TenantID:         tenantID,
		OrderID:          l.OrderID,
		ProductID:        l.ProductID,
		Description:      l.Description,
		Unit:             l.Unit,
		QuantityOrdered:  NewNumeric(l.QuantityOrdered),
		QuantityReceived: NewNumeric(l.QuantityReceived),
		UnitPrice:        NewNumeric(l.UnitPrice),
		Amount:           NewNumeric(l.Amount),
		CreatedAt:        l.CreatedAt,
		UpdatedAt:        l.UpdatedAt,
	}
}
