package models

import (
	"time"

	"github.com/erp/construction/internal/domain/budget"
	"github.com/google/uuid"
)

// WorkOrderModel is the persistence model for the WorkOrder aggregate root.
type WorkOrderModel struct {
	TenantAggregateModel
	Code           string  `gorm:"type:varchar(50);not null;index"`
	Name           string  `gorm:"type:varchar(200);not null"`
	ClientName     string  `gorm:"type:varchar(200)"`
	AdvancePct     Numeric `gorm:"not null;default:0"`
	RetentionPct   Numeric `gorm:"not null;default:0"`
	ContractAmount Numeric `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (WorkOrderModel) TableName() string {
	return "work_orders"
}

// ToDomain converts the persistence model to a domain WorkOrder.
func (m *WorkOrderModel) ToDomain() *budget.WorkOrder {
	return &budget.WorkOrder{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Code:                m.Code,
		Name:                m.Name,
		ClientName:          m.ClientName,
		AdvancePct:          m.AdvancePct.Decimal,
		RetentionPct:        m.RetentionPct.Decimal,
		ContractAmount:      m.ContractAmount.Decimal,
	}
}

// FromDomain populates the persistence model from a domain WorkOrder.
func (m *WorkOrderModel) FromDomain(w *budget.WorkOrder) {
	m.FromDomainTenantAggregateRoot(w.TenantAggregateRoot)
	m.Code = w.Code
	m.Name = w.Name
	m.ClientName = w.ClientName
	m.AdvancePct = NewNumeric(w.AdvancePct)
	m.RetentionPct = NewNumeric(w.RetentionPct)
	m.ContractAmount = NewNumeric(w.ContractAmount)
}

// WorkOrderModelFromDomain creates a new persistence model from a domain WorkOrder.
func WorkOrderModelFromDomain(w *budget.WorkOrder) *WorkOrderModel {
	m := &WorkOrderModel{}
	m.FromDomain(w)
	return m
}

// BudgetVersionModel is the persistence model for the BudgetVersion aggregate root.
type BudgetVersionModel struct {
	TenantAggregateModel
	WorkOrderID   uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_budget_version_number,priority:1"`
	VersionNumber int               `gorm:"not null;uniqueIndex:idx_budget_version_number,priority:2"`
	IsCurrent     bool              `gorm:"not null;default:false"`
	Description   string            `gorm:"type:varchar(500)"`
	Lines         []BudgetLineModel `gorm:"foreignKey:BudgetVersionID;references:ID"`
}

// TableName returns the table name for GORM
func (BudgetVersionModel) TableName() string {
	return "budget_versions"
}

// ToDomain converts the persistence model to a domain BudgetVersion.
func (m *BudgetVersionModel) ToDomain() *budget.BudgetVersion {
	v := &budget.BudgetVersion{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		WorkOrderID:         m.WorkOrderID,
		VersionNumber:       m.VersionNumber,
		IsCurrent:           m.IsCurrent,
		Description:         m.Description,
		Lines:               make([]budget.BudgetLine, len(m.Lines)),
	}
	for i := range m.Lines {
		v.Lines[i] = *m.Lines[i].ToDomain()
	}
	return v
}

// FromDomain populates the persistence model from a domain BudgetVersion.
func (m *BudgetVersionModel) FromDomain(v *budget.BudgetVersion) {
	m.FromDomainTenantAggregateRoot(v.TenantAggregateRoot)
	m.WorkOrderID = v.WorkOrderID
	m.VersionNumber = v.VersionNumber
	m.IsCurrent = v.IsCurrent
	m.Description = v.Description
	m.Lines = make([]BudgetLineModel, len(v.Lines))
	for i := range v.Lines {
		m.Lines[i] = *BudgetLineModelFromDomain(&v.Lines[i])
	}
}

// BudgetVersionModelFromDomain creates a new persistence model from a domain BudgetVersion.
func BudgetVersionModelFromDomain(v *budget.BudgetVersion) *BudgetVersionModel {
	m := &BudgetVersionModel{}
	m.FromDomain(v)
	return m
}

// BudgetLineModel is the persistence model for the BudgetLine entity.
type BudgetLineModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID        uuid.UUID `gorm:"type:uuid;not null;index"`
	BudgetVersionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_budget_line_key,priority:1"`
	Key             string    `gorm:"column:line_key;type:varchar(50);not null;uniqueIndex:idx_budget_line_key,priority:2"`
	Description     string    `gorm:"type:varchar(500)"`
	Unit            string    `gorm:"type:varchar(20)"`
	Quantity        Numeric   `gorm:"not null"`
	UnitPrice       Numeric   `gorm:"not null"`
	Amount          Numeric   `gorm:"not null"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BudgetLineModel) TableName() string {
	return "budget_lines"
}

// ToDomain converts the persistence model to a domain BudgetLine.
func (m *BudgetLineModel) ToDomain() *budget.BudgetLine {
	return &budget.BudgetLine{
		ID:              m.ID,
		TenantID:        m.TenantID,
		BudgetVersionID: m.BudgetVersionID,
		Key:             m.Key,
		Description:     m.Description,
		Unit:            m.Unit,
		Quantity:        m.Quantity.Decimal,
		UnitPrice:       m.UnitPrice.Decimal,
		Amount:          m.Amount.Decimal,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// BudgetLineModelFromDomain creates a new persistence model from a domain BudgetLine.
func BudgetLineModelFromDomain(l *budget.BudgetLine) *BudgetLineModel {
	return &BudgetLineModel{
		ID:              l.ID,
		TenantID:        l.TenantID,
		BudgetVersionID: l.BudgetVersionID,
		Key:             l.Key,
		Description:     l.Description,
		Unit:            l.Unit,
		Quantity:        NewNumeric(l.Quantity),
		UnitPrice:       NewNumeric(l.UnitPrice),
		Amount:          NewNumeric(l.Amount),
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
}
