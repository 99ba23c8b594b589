package procurement

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/construction/internal/domain/shared"
	"github.com/erp/construction/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the status of a purchase order
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "DRAFT"
	OrderStatusSent      OrderStatus = "SENT"
	OrderStatusPartial   OrderStatus = "PARTIAL"
	OrderStatusComplete  OrderStatus = "COMPLETE"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusDraft, OrderStatusSent, OrderStatusPartial, OrderStatusComplete, OrderStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusDraft:
		return target == OrderStatusSent || target == OrderStatusCancelled
	case OrderStatusSent, OrderStatusPartial:
		return target == OrderStatusPartial || target == OrderStatusComplete
	case OrderStatusComplete, OrderStatusCancelled:
		return false
	}
	return false
}

// CanReceive returns true if receiving goods is allowed in this status
func (s OrderStatus) CanReceive() bool {
	return s == OrderStatusSent || s == OrderStatusPartial
}

// CanPay returns true if supplier payments may be applied in this status
func (s OrderStatus) CanPay() bool {
	return s == OrderStatusSent || s == OrderStatusPartial || s == OrderStatusComplete
}

// PurchaseOrderLine represents a line item of a purchase order
type PurchaseOrderLine struct {
	ID               uuid.UUID
	OrderID          uuid.UUID
	ProductID        uuid.UUID
	Description      string
	Unit             string
	QuantityOrdered  decimal.Decimal
	QuantityReceived decimal.Decimal
	UnitPrice        decimal.Decimal
	Amount           decimal.Decimal
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RemainingQuantity returns the quantity still to be received
func (l *PurchaseOrderLine) RemainingQuantity() decimal.Decimal {
	return l.QuantityOrdered.Sub(l.QuantityReceived)
}

// IsFullyReceived returns true if all ordered quantity has been received
func (l *PurchaseOrderLine) IsFullyReceived() bool {
	return l.QuantityReceived.Equal(l.QuantityOrdered)
}

// ReceiptItem is one line of a receiving request
type ReceiptItem struct {
	LineID   uuid.UUID
	Quantity decimal.Decimal
}

// StockMovement is the inventory effect of a receipt on one product
type StockMovement struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
}

// PurchaseOrder is a procurement order (orden de compra) with partial-receipt tracking
type PurchaseOrder struct {
	shared.TenantAggregateRoot
	Folio        int64
	SupplierID   uuid.UUID
	Status       OrderStatus
	Subtotal     decimal.Decimal
	Tax          decimal.Decimal
	Total        decimal.Decimal
	Paid         decimal.Decimal
	Notes        string
	Lines        []PurchaseOrderLine
	SentAt       *time.Time
	CompletedAt  *time.Time
	CancelledAt  *time.Time
	CancelReason string
}

// NewPurchaseOrder creates a draft order
func NewPurchaseOrder(tenantID uuid.UUID, folio int64, supplierID uuid.UUID, notes string) (*PurchaseOrder, error) {
	if folio < 1 {
		return nil, shared.NewValidationError("folio must be positive")
	}
	if supplierID == uuid.Nil {
		return nil, shared.NewValidationError("supplier ID cannot be empty")
	}

	order := &PurchaseOrder{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Folio:               folio,
		SupplierID:          supplierID,
		Status:              OrderStatusDraft,
		Subtotal:            decimal.Zero,
		Tax:                 decimal.Zero,
		Total:               decimal.Zero,
		Paid:                decimal.Zero,
		Notes:               notes,
		Lines:               make([]PurchaseOrderLine, 0),
	}
	order.AddDomainEvent(NewPurchaseOrderCreatedEvent(order))
	return order, nil
}

// AddLine adds a product line. Only allowed in DRAFT, one line per product.
func (o *PurchaseOrder) AddLine(productID uuid.UUID, description, unit string, quantity, unitPrice decimal.Decimal) (*PurchaseOrderLine, error) {
	if o.Status != OrderStatusDraft {
		return nil, shared.NewInvalidTransitionError("purchase order lines", o.Status.String(), "edited")
	}
	if productID == uuid.Nil {
		return nil, shared.NewValidationError("product ID cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, shared.NewValidationError("ordered quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewValidationError("unit price cannot be negative")
	}
	for _, line := range o.Lines {
		if line.ProductID == productID {
			return nil, shared.NewDomainError(shared.CodeDuplicateLine, "product already exists in order")
		}
	}

	now := time.Now()
	line := PurchaseOrderLine{
		ID:               uuid.New(),
		OrderID:          o.ID,
		ProductID:        productID,
		Description:      strings.TrimSpace(description),
		Unit:             unit,
		QuantityOrdered:  quantity,
		QuantityReceived: decimal.Zero,
		UnitPrice:        unitPrice,
		Amount:           valueobject.LineAmount(quantity, unitPrice),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	o.Lines = append(o.Lines, line)
	o.recalculateTotals()
	o.IncrementVersion()
	return &line, nil
}

// Send moves a draft with at least one line to SENT
func (o *PurchaseOrder) Send() error {
	if !o.Status.CanTransitionTo(OrderStatusSent) {
		return shared.NewInvalidTransitionError("purchase order", o.Status.String(), OrderStatusSent.String())
	}
	if len(o.Lines) == 0 {
		return shared.NewValidationError("cannot send a purchase order without lines")
	}
	now := time.Now()
	o.Status = OrderStatusSent
	o.SentAt = &now
	o.IncrementVersion()
	o.AddDomainEvent(NewPurchaseOrderSentEvent(o))
	return nil
}

// Cancel cancels a draft order
func (o *PurchaseOrder) Cancel(reason string) error {
	if !o.Status.CanTransitionTo(OrderStatusCancelled) {
		return shared.NewInvalidTransitionError("purchase order", o.Status.String(), OrderStatusCancelled.String())
	}
	now := time.Now()
	o.Status = OrderStatusCancelled
	o.CancelledAt = &now
	o.CancelReason = reason
	o.IncrementVersion()
	o.AddDomainEvent(NewPurchaseOrderCancelledEvent(o))
	return nil
}

// Receive records a goods receipt across one or more lines.
//
// Every item is validated before any line is touched, so a request that
// over-receives any line leaves the order unchanged. Items naming the same
// line are summed. The returned movements are the stock increases to apply,
// one per product.
func (o *PurchaseOrder) Receive(items []ReceiptItem) ([]StockMovement, error) {
	if o.Status == OrderStatusComplete {
		// every line is at its ordered quantity, so any receipt exceeds it
		return nil, shared.NewDomainError(shared.CodeOverReceipt,
			fmt.Sprintf("purchase order %d is already fully received", o.Folio))
	}
	if !o.Status.CanReceive() {
		return nil, shared.NewInvalidTransitionError("purchase order", o.Status.String(), "received")
	}
	if len(items) == 0 {
		return nil, shared.NewValidationError("at least one receipt item is required")
	}

	requested := make(map[uuid.UUID]decimal.Decimal, len(items))
	order := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if !item.Quantity.IsPositive() {
			return nil, shared.NewValidationError("receipt quantity must be positive")
		}
		if o.findLine(item.LineID) == nil {
			return nil, shared.NewValidationError("line %s does not belong to purchase order %d", item.LineID, o.Folio)
		}
		if _, seen := requested[item.LineID]; !seen {
			order = append(order, item.LineID)
			requested[item.LineID] = decimal.Zero
		}
		requested[item.LineID] = requested[item.LineID].Add(item.Quantity)
	}

	for _, lineID := range order {
		line := o.findLine(lineID)
		qty := requested[lineID]
		if line.QuantityReceived.Add(qty).GreaterThan(line.QuantityOrdered) {
			return nil, shared.NewDomainError(shared.CodeOverReceipt,
				fmt.Sprintf("cannot receive %s of %q: ordered %s, already received %s",
					qty.String(), line.Description, line.QuantityOrdered.String(), line.QuantityReceived.String()))
		}
	}

	now := time.Now()
	movements := make([]StockMovement, 0, len(order))
	for _, lineID := range order {
		line := o.findLine(lineID)
		qty := requested[lineID]
		line.QuantityReceived = line.QuantityReceived.Add(qty)
		line.UpdatedAt = now
		movements = append(movements, StockMovement{ProductID: line.ProductID, Quantity: qty})
	}

	if o.isAllLinesReceived() {
		o.Status = OrderStatusComplete
		o.CompletedAt = &now
	} else {
		o.Status = OrderStatusPartial
	}
	o.IncrementVersion()
	o.AddDomainEvent(NewPurchaseOrderReceivedEvent(o, movements))
	return movements, nil
}

// OutstandingBalance is total minus supplier payments
func (o *PurchaseOrder) OutstandingBalance() decimal.Decimal {
	return o.Total.Sub(o.Paid)
}

// ApplyPayment records a supplier payment against the order
func (o *PurchaseOrder) ApplyPayment(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.ErrNegativeAmount
	}
	if !o.Status.CanPay() {
		return shared.NewInvalidTransitionError("purchase order", o.Status.String(), "paid")
	}
	if amount.GreaterThan(o.OutstandingBalance()) {
		return shared.NewDomainError(shared.CodeOverpayment,
			fmt.Sprintf("payment %s exceeds outstanding balance %s of purchase order %d",
				amount.StringFixed(2), o.OutstandingBalance().StringFixed(2), o.Folio))
	}
	o.Paid = o.Paid.Add(amount)
	o.IncrementVersion()
	return nil
}

// FindLine returns the line with the given ID, or nil
func (o *PurchaseOrder) FindLine(lineID uuid.UUID) *PurchaseOrderLine {
	return o.findLine(lineID)
}

func (o *PurchaseOrder) findLine(lineID uuid.UUID) *PurchaseOrderLine {
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			return &o.Lines[i]
		}
	}
	return nil
}

func (o *PurchaseOrder) isAllLinesReceived() bool {
	for i := range o.Lines {
		if !o.Lines[i].IsFullyReceived() {
			return false
		}
	}
	return len(o.Lines) > 0
}

// recalculateTotals derives subtotal, 16% tax and total from the lines
func (o *PurchaseOrder) recalculateTotals() {
	amounts := make([]decimal.Decimal, len(o.Lines))
	for i, line := range o.Lines {
		amounts[i] = line.Amount
	}
	o.Subtotal = valueobject.Sum(amounts...)
	o.Tax = valueobject.ApplyTax(o.Subtotal)
	o.Total = o.Subtotal.Add(o.Tax)
}
