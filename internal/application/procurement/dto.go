package procurement

import (
	"time"

	"github.com/erp/construction/internal/domain/procurement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreatePurchaseOrderRequest represents a request to create a purchase order
type CreatePurchaseOrderRequest struct {
	SupplierID uuid.UUID                  `json:"supplier_id" binding:"required"`
	Notes      string                     `json:"notes" binding:"max=1000"`
	Lines      []PurchaseOrderLineRequest `json:"lines" binding:"dive"`
	CreatedBy  *uuid.UUID                 `json:"-"`
}

// PurchaseOrderLineRequest represents one ordered product
type PurchaseOrderLineRequest struct {
	ProductID   uuid.UUID       `json:"product_id" binding:"required"`
	Description string          `json:"description" binding:"max=500"`
	Unit        string          `json:"unit" binding:"max=20"`
	Quantity    decimal.Decimal `json:"quantity" binding:"decimal_gt0,decimal_scale=6"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"decimal_gte0,decimal_scale=6"`
}

// ReceiveItemInput represents a quantity received on one line
type ReceiveItemInput struct {
	LineID   uuid.UUID       `json:"line_id" binding:"required"`
	Quantity decimal.Decimal `json:"quantity" binding:"decimal_gt0,decimal_scale=6"`
}

// ReceivePurchaseOrderRequest represents a goods receipt
type ReceivePurchaseOrderRequest struct {
	Items []ReceiveItemInput `json:"items" binding:"required,min=1,dive"`
}

// CancelPurchaseOrderRequest carries the cancellation reason
type CancelPurchaseOrderRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// PurchaseOrderListFilter filters the order list
type PurchaseOrderListFilter struct {
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string     `form:"order_by" binding:"omitempty,oneof=created_at updated_at folio total"`
	OrderDir   string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Status     string     `form:"status" binding:"omitempty,oneof=DRAFT SENT PARTIAL COMPLETE CANCELLED"`
	SupplierID *uuid.UUID `form:"supplier_id"`
}

// PurchaseOrderLineResponse represents an order line in API responses
type PurchaseOrderLineResponse struct {
	ID                uuid.UUID       `json:"id"`
	ProductID         uuid.UUID       `json:"product_id"`
	Description       string          `json:"description"`
	Unit              string          `json:"unit"`
	QuantityOrdered   decimal.Decimal `json:"quantity_ordered"`
	QuantityReceived  decimal.Decimal `json:"quantity_received"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	Amount            decimal.Decimal `json:"amount"`
}

// PurchaseOrderResponse represents a purchase order in API responses
type PurchaseOrderResponse struct {
	ID           uuid.UUID                   `json:"id"`
	Folio        int64                       `json:"folio"`
	SupplierID   uuid.UUID                   `json:"supplier_id"`
	Status       string                      `json:"status"`
	Subtotal     decimal.Decimal             `json:"subtotal"`
	Tax          decimal.Decimal             `json:"tax"`
	Total        decimal.Decimal             `json:"total"`
	Paid         decimal.Decimal             `json:"paid"`
	Outstanding  decimal.Decimal             `json:"outstanding"`
	Notes        string                      `json:"notes"`
	Lines        []PurchaseOrderLineResponse `json:"lines"`
	SentAt       *time.Time                  `json:"sent_at,omitempty"`
	CompletedAt  *time.Time                  `json:"completed_at,omitempty"`
	CancelledAt  *time.Time                  `json:"cancelled_at,omitempty"`
	CancelReason string                      `json:"cancel_reason,omitempty"`
	Version      int                         `json:"version"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
}

// StockMovementResponse is the stock increase produced by a receipt
type StockMovementResponse struct {
	ProductID      uuid.UUID       `json:"product_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	QuantityOnHand decimal.Decimal `json:"quantity_on_hand"`
}

// ReceiveResultResponse represents the result of a goods receipt
type ReceiveResultResponse struct {
	Order           PurchaseOrderResponse   `json:"order"`
	Movements       []StockMovementResponse `json:"movements"`
	IsFullyReceived bool                    `json:"is_fully_received"`
}

// ToPurchaseOrderResponse converts a domain purchase order
func ToPurchaseOrderResponse(o *procurement.PurchaseOrder) PurchaseOrderResponse {
	lines := make([]PurchaseOrderLineResponse, len(o.Lines))
	for i := range o.Lines {
		l := &o.Lines[i]
		lines[i] = PurchaseOrderLineResponse{
			ID:                l.ID,
			ProductID:         l.ProductID,
			Description:       l.Description,
			Unit:              l.Unit,
			QuantityOrdered:   l.QuantityOrdered,
			QuantityReceived:  l.QuantityReceived,
			RemainingQuantity: l.RemainingQuantity(),
			UnitPrice:         l.UnitPrice,
			Amount:            l.Amount,
		}
	}
	return PurchaseOrderResponse{
		ID:           o.ID,
		Folio:        o.Folio,
		SupplierID:   o.SupplierID,
		Status:       o.Status.String(),
		Subtotal:     o.Subtotal,
		Tax:          o.Tax,
		Total:        o.Total,
		Paid:         o.Paid,
		Outstanding:  o.OutstandingBalance(),
		Notes:        o.Notes,
		Lines:        lines,
		SentAt:       o.SentAt,
		CompletedAt:  o.CompletedAt,
		CancelledAt:  o.CancelledAt,
		CancelReason: o.CancelReason,
		Version:      o.Version,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

// ToPurchaseOrderResponses converts a slice of purchase orders
func ToPurchaseOrderResponses(orders []procurement.PurchaseOrder) []PurchaseOrderResponse {
	out := make([]PurchaseOrderResponse, len(orders))
	for i := range orders {
		out[i] = ToPurchaseOrderResponse(&orders[i])
	}
	return out
}
