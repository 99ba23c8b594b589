package budget

import (
	"github.com/erp/construction/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypeWorkOrder     = "WorkOrder"
	AggregateTypeBudgetVersion = "BudgetVersion"
)

// Event type constants
const (
	EventTypeWorkOrderCreated           = "WorkOrderCreated"
	EventTypeBudgetVersionCreated       = "BudgetVersionCreated"
	EventTypeBudgetLineAdded            = "BudgetLineAdded"
	EventTypeBudgetVersionMarkedCurrent = "BudgetVersionMarkedCurrent"
)

// WorkOrderCreatedEvent is raised when a work order is registered
type WorkOrderCreatedEvent struct {
	shared.BaseDomainEvent
	Code string `json:"code"`
	Name string `json:"name"`
}

// NewWorkOrderCreatedEvent creates a WorkOrderCreatedEvent
func NewWorkOrderCreatedEvent(wo *WorkOrder) *WorkOrderCreatedEvent {
	return &WorkOrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeWorkOrderCreated, AggregateTypeWorkOrder, wo.ID, wo.TenantID),
		Code:            wo.Code,
		Name:            wo.Name,
	}
}

// BudgetVersionCreatedEvent is raised when a new version is opened
type BudgetVersionCreatedEvent struct {
	shared.BaseDomainEvent
	WorkOrderID   uuid.UUID `json:"work_order_id"`
	VersionNumber int       `json:"version_number"`
}

// NewBudgetVersionCreatedEvent creates a BudgetVersionCreatedEvent
func NewBudgetVersionCreatedEvent(v *BudgetVersion) *BudgetVersionCreatedEvent {
	return &BudgetVersionCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBudgetVersionCreated, AggregateTypeBudgetVersion, v.ID, v.TenantID),
		WorkOrderID:     v.WorkOrderID,
		VersionNumber:   v.VersionNumber,
	}
}

// BudgetLineAddedEvent is raised for each priced concept
type BudgetLineAddedEvent struct {
	shared.BaseDomainEvent
	BudgetLineID uuid.UUID       `json:"budget_line_id"`
	Key          string          `json:"key"`
	Amount       decimal.Decimal `json:"amount"`
}

// NewBudgetLineAddedEvent creates a BudgetLineAddedEvent
func NewBudgetLineAddedEvent(v *BudgetVersion, line *BudgetLine) *BudgetLineAddedEvent {
	return &BudgetLineAddedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBudgetLineAdded, AggregateTypeBudgetVersion, v.ID, v.TenantID),
		BudgetLineID:    line.ID,
		Key:             line.Key,
		Amount:          line.Amount,
	}
}

// BudgetVersionMarkedCurrentEvent is raised when a version becomes the current budget
type BudgetVersionMarkedCurrentEvent struct {
	shared.BaseDomainEvent
	WorkOrderID   uuid.UUID `json:"work_order_id"`
	VersionNumber int       `json:"version_number"`
}

// NewBudgetVersionMarkedCurrentEvent creates a BudgetVersionMarkedCurrentEvent
func NewBudgetVersionMarkedCurrentEvent(v *BudgetVersion) *BudgetVersionMarkedCurrentEvent {
	return &BudgetVersionMarkedCurrentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBudgetVersionMarkedCurrent, AggregateTypeBudgetVersion, v.ID, v.TenantID),
		WorkOrderID:     v.WorkOrderID,
		VersionNumber:   v.VersionNumber,
	}
}
