package billing

import (
	"github.com/erp/construction/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeBillingPeriod is the aggregate type for billing period events
const AggregateTypeBillingPeriod = "BillingPeriod"

// Event type constants
const (
	EventTypeBillingPeriodCreated   = "BillingPeriodCreated"
	EventTypeBillingLineAdded       = "BillingLineAdded"
	EventTypeBillingPeriodSubmitted = "BillingPeriodSubmitted"
	EventTypeBillingPeriodApproved  = "BillingPeriodApproved"
	EventTypeBillingPeriodInvoiced  = "BillingPeriodInvoiced"
	EventTypeBillingPeriodCancelled = "BillingPeriodCancelled"
)

// BillingPeriodCreatedEvent is raised when a period is opened
type BillingPeriodCreatedEvent struct {
	shared.BaseDomainEvent
	WorkOrderID uuid.UUID `json:"work_order_id"`
	Number      int       `json:"number"`
}

// NewBillingPeriodCreatedEvent creates a BillingPeriodCreatedEvent
func NewBillingPeriodCreatedEvent(p *BillingPeriod) *BillingPeriodCreatedEvent {
	return &BillingPeriodCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillingPeriodCreated, AggregateTypeBillingPeriod, p.ID, p.TenantID),
		WorkOrderID:     p.WorkOrderID,
		Number:          p.Number,
	}
}

// BillingLineAddedEvent is raised when executed quantity is billed
type BillingLineAddedEvent struct {
	shared.BaseDomainEvent
	BudgetLineID       uuid.UUID       `json:"budget_line_id"`
	ExecutedQuantity   decimal.Decimal `json:"executed_quantity"`
	CumulativeQuantity decimal.Decimal `json:"cumulative_quantity"`
	Amount             decimal.Decimal `json:"amount"`
}

// NewBillingLineAddedEvent creates a BillingLineAddedEvent
func NewBillingLineAddedEvent(p *BillingPeriod, line *BillingLine) *BillingLineAddedEvent {
	return &BillingLineAddedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeBillingLineAdded, AggregateTypeBillingPeriod, p.ID, p.TenantID),
		BudgetLineID:       line.BudgetLineID,
		ExecutedQuantity:   line.ExecutedQuantity,
		CumulativeQuantity: line.CumulativeQuantity,
		Amount:             line.Amount,
	}
}

// BillingPeriodStatusChangedEvent is raised on every status transition
type BillingPeriodStatusChangedEvent struct {
	shared.BaseDomainEvent
	FromStatus PeriodStatus    `json:"from_status"`
	ToStatus   PeriodStatus    `json:"to_status"`
	NetAmount  decimal.Decimal `json:"net_amount"`
}

// NewBillingPeriodStatusChangedEvent creates a status change event of the given type
func NewBillingPeriodStatusChangedEvent(p *BillingPeriod, from PeriodStatus, eventType string) *BillingPeriodStatusChangedEvent {
	return &BillingPeriodStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeBillingPeriod, p.ID, p.TenantID),
		FromStatus:      from,
		ToStatus:        p.Status,
		NetAmount:       p.NetAmount,
	}
}
