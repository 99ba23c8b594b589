package models

import (
	"time"

	"github.com/erp/construction/internal/domain/billing"
	"github.com/google/uuid"
)

// BillingPeriodModel is the persistence model for the BillingPeriod aggregate root.
type BillingPeriodModel struct {
	TenantAggregateModel
	WorkOrderID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_billing_period_number,priority:1"`
	BudgetVersionID uuid.UUID `gorm:"type:uuid;not null;index"`
	Number          int       `gorm:"not null;uniqueIndex:idx_billing_period_number,priority:2"`
	Period          string    `gorm:"type:varchar(50);not null"`
	CutoffDate      time.Time `gorm:"type:date;not null"`
	Status          string    `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	AdvancePct      Numeric   `gorm:"not null;default:0"`
	RetentionPct    Numeric   `gorm:"not null;default:0"`
	GrossAmount     Numeric   `gorm:"not null;default:0"`
	Amortization    Numeric   `gorm:"not null;default:0"`
	Retention       Numeric   `gorm:"not null;default:0"`
	NetAmount       Numeric   `gorm:"not null;default:0"`
	Paid            Numeric   `gorm:"not null;default:0"`
	SubmittedAt     *time.Time
	ApprovedAt      *time.Time
	InvoicedAt      *time.Time
	CancelledAt     *time.Time
	CancelReason    string             `gorm:"type:varchar(500)"`
	Lines           []BillingLineModel `gorm:"foreignKey:BillingPeriodID;references:ID"`
}

// TableName returns the table name for GORM
func (BillingPeriodModel) TableName() string {
	return "billing_periods"
}

// ToDomain converts the persistence model to a domain BillingPeriod.
// CumulativeQuantity of each line is left zero; it is derived by query.
func (m *BillingPeriodModel) ToDomain() *billing.BillingPeriod {
	p := &billing.BillingPeriod{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		WorkOrderID:         m.WorkOrderID,
		BudgetVersionID:     m.BudgetVersionID,
		Number:              m.Number,
		Period:              m.Period,
		CutoffDate:          m.CutoffDate,
		Status:              billing.PeriodStatus(m.Status),
		AdvancePct:          m.AdvancePct.Decimal,
		RetentionPct:        m.RetentionPct.Decimal,
		GrossAmount:         m.GrossAmount.Decimal,
		Amortization:        m.Amortization.Decimal,
		Retention:           m.Retention.Decimal,
		NetAmount:           m.NetAmount.Decimal,
		Paid:                m.Paid.Decimal,
		SubmittedAt:         m.SubmittedAt,
		ApprovedAt:          m.ApprovedAt,
		InvoicedAt:          m.InvoicedAt,
		CancelledAt:         m.CancelledAt,
		CancelReason:        m.CancelReason,
		Lines:               make([]billing.BillingLine, len(m.Lines)),
	}
	for i := range m.Lines {
		p.Lines[i] = *m.Lines[i].ToDomain()
	}
	return p
}

// FromDomain populates the persistence model from a domain BillingPeriod.
func (m *BillingPeriodModel) FromDomain(p *billing.BillingPeriod) {
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	m.WorkOrderID = p.WorkOrderID
	m.BudgetVersionID = p.BudgetVersionID
	m.Number = p.Number
	m.Period = p.Period
	m.CutoffDate = p.CutoffDate
	m.Status = string(p.Status)
	m.AdvancePct = NewNumeric(p.AdvancePct)
	m.RetentionPct = NewNumeric(p.RetentionPct)
	m.GrossAmount = NewNumeric(p.GrossAmount)
	m.Amortization = NewNumeric(p.Amortization)
	m.Retention = NewNumeric(p.Retention)
	m.NetAmount = NewNumeric(p.NetAmount)
	m.Paid = NewNumeric(p.Paid)
	m.SubmittedAt = p.SubmittedAt
	m.ApprovedAt = p.ApprovedAt
	m.InvoicedAt = p.InvoicedAt
	m.CancelledAt = p.CancelledAt
	m.CancelReason = p.CancelReason
	m.Lines = make([]BillingLineModel, len(p.Lines))
	for i := range p.Lines {
		m.Lines[i] = *BillingLineModelFromDomain(p.TenantID, &p.Lines[i])
	}
}

// BillingPeriodModelFromDomain creates a new persistence model from a domain BillingPeriod.
func BillingPeriodModelFromDomain(p *billing.BillingPeriod) *BillingPeriodModel {
	m := &BillingPeriodModel{}
	m.FromDomain(p)
	return m
}

// BillingLineModel is the persistence model for the BillingLine entity.
type BillingLineModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID         uuid.UUID `gorm:"type:uuid;not null;index"`
	BillingPeriodID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_billing_line_budget_line,priority:1"`
	BudgetLineID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_billing_line_budget_line,priority:2;index"`
	BudgetLineKey    string    `gorm:"type:varchar(50);not null"`
	ExecutedQuantity Numeric   `gorm:"not null"`
	UnitPrice        Numeric   `gorm:"not null"`
	Amount           Numeric   `gorm:"not null"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BillingLineModel) TableName() string {
	return "billing_lines"
}

// ToDomain converts the persistence model to a domain BillingLine.
func (m *BillingLineModel) ToDomain() *billing.BillingLine {
	return &billing.BillingLine{
		ID:               m.ID,
		BillingPeriodID:  m.BillingPeriodID,
		BudgetLineID:     m.BudgetLineID,
		BudgetLineKey:    m.BudgetLineKey,
		ExecutedQuantity: m.ExecutedQuantity.Decimal,
		UnitPrice:        m.UnitPrice.Decimal,
		Amount:           m.Amount.Decimal,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// BillingLineModelFromDomain creates a new persistence model from a domain BillingLine.
func BillingLineModelFromDomain(tenantID uuid.UUID, l *billing.BillingLine) *BillingLineModel {
	return &BillingLineModel{
		ID:               l.ID,
		TenantID:         tenantID,
		BillingPeriodID:  l.BillingPeriodID,
		BudgetLineID:     l.BudgetLineID,
		BudgetLineKey:    l.BudgetLineKey,
		ExecutedQuantity: NewNumeric(l.ExecutedQuantity),
		UnitPrice:        NewNumeric(l.UnitPrice),
		Amount:           NewNumeric(l.Amount),
		CreatedAt:        l.CreatedAt,
		UpdatedAt:        l.UpdatedAt,
	}
}
