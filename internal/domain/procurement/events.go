package procurement

import (
	"github.com/erp/construction/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypePurchaseOrder is the aggregate type for purchase order events
const AggregateTypePurchaseOrder = "PurchaseOrder"

// Event type constants
const (
	EventTypePurchaseOrderCreated   = "PurchaseOrderCreated"
	EventTypePurchaseOrderSent      = "PurchaseOrderSent"
	EventTypePurchaseOrderReceived  = "PurchaseOrderReceived"
	EventTypePurchaseOrderCancelled = "PurchaseOrderCancelled"
)

// PurchaseOrderCreatedEvent is raised when a draft order is created
type PurchaseOrderCreatedEvent struct {
	shared.BaseDomainEvent
	Folio      int64     `json:"folio"`
	SupplierID uuid.UUID `json:"supplier_id"`
}

// NewPurchaseOrderCreatedEvent creates a PurchaseOrderCreatedEvent
func NewPurchaseOrderCreatedEvent(o *PurchaseOrder) *PurchaseOrderCreatedEvent {
	return &PurchaseOrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderCreated, AggregateTypePurchaseOrder, o.ID, o.TenantID),
		Folio:           o.Folio,
		SupplierID:      o.SupplierID,
	}
}

// PurchaseOrderSentEvent is raised when an order is sent to the supplier
type PurchaseOrderSentEvent struct {
	shared.BaseDomainEvent
	Folio int64           `json:"folio"`
	Total decimal.Decimal `json:"total"`
}

// NewPurchaseOrderSentEvent creates a PurchaseOrderSentEvent
func NewPurchaseOrderSentEvent(o *PurchaseOrder) *PurchaseOrderSentEvent {
	return &PurchaseOrderSentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderSent, AggregateTypePurchaseOrder, o.ID, o.TenantID),
		Folio:           o.Folio,
		Total:           o.Total,
	}
}

// PurchaseOrderReceivedEvent is raised for every goods receipt
type PurchaseOrderReceivedEvent struct {
	shared.BaseDomainEvent
	Folio     int64           `json:"folio"`
	Status    OrderStatus     `json:"status"`
	Movements []StockMovement `json:"movements"`
}

// NewPurchaseOrderReceivedEvent creates a PurchaseOrderReceivedEvent
func NewPurchaseOrderReceivedEvent(o *PurchaseOrder, movements []StockMovement) *PurchaseOrderReceivedEvent {
	return &PurchaseOrderReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderReceived, AggregateTypePurchaseOrder, o.ID, o.TenantID),
		Folio:           o.Folio,
		Status:          o.Status,
		Movements:       movements,
	}
}

// PurchaseOrderCancelledEvent is raised when a draft order is cancelled
type PurchaseOrderCancelledEvent struct {
	shared.BaseDomainEvent
	Folio  int64  `json:"folio"`
	Reason string `json:"reason"`
}

// NewPurchaseOrderCancelledEvent creates a PurchaseOrderCancelledEvent
func NewPurchaseOrderCancelledEvent(o *PurchaseOrder) *PurchaseOrderCancelledEvent {
	return &PurchaseOrderCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderCancelled, AggregateTypePurchaseOrder, o.ID, o.TenantID),
		Folio:           o.Folio,
		Reason:          o.CancelReason,
	}
}
