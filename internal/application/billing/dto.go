package billing

import (
	"time"

	"github.com/erp/construction/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreatePeriodRequest represents a request to open a billing period
type CreatePeriodRequest struct {
	Period     string     `json:"period" binding:"required,min=1,max=50"`
	CutoffDate time.Time  `json:"cutoff_date" binding:"required"`
	CreatedBy  *uuid.UUID `json:"-"`
}

// AddBillingLineRequest represents executed work on one budget line
type AddBillingLineRequest struct {
	BudgetLineID     uuid.UUID       `json:"budget_line_id" binding:"required"`
	ExecutedQuantity decimal.Decimal `json:"executed_quantity" binding:"decimal_gt0,decimal_scale=6"`
}

// CancelPeriodRequest carries the cancellation reason
type CancelPeriodRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// BillingLineResponse represents a billing line in API responses
type BillingLineResponse struct {
	ID                 uuid.UUID       `json:"id"`
	BudgetLineID       uuid.UUID       `json:"budget_line_id"`
	BudgetLineKey      string          `json:"budget_line_key"`
	ExecutedQuantity   decimal.Decimal `json:"executed_quantity"`
	CumulativeQuantity decimal.Decimal `json:"cumulative_quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	Amount             decimal.Decimal `json:"amount"`
}

// BillingPeriodResponse represents a billing period in API responses
type BillingPeriodResponse struct {
	ID              uuid.UUID             `json:"id"`
	WorkOrderID     uuid.UUID             `json:"work_order_id"`
	BudgetVersionID uuid.UUID             `json:"budget_version_id"`
	Number          int                   `json:"number"`
	Period          string                `json:"period"`
	CutoffDate      time.Time             `json:"cutoff_date"`
	Status          string                `json:"status"`
	AdvancePct      decimal.Decimal       `json:"advance_pct"`
	RetentionPct    decimal.Decimal       `json:"retention_pct"`
	GrossAmount     decimal.Decimal       `json:"gross_amount"`
	Amortization    decimal.Decimal       `json:"amortization"`
	Retention       decimal.Decimal       `json:"retention"`
	NetAmount       decimal.Decimal       `json:"net_amount"`
	Paid            decimal.Decimal       `json:"paid"`
	Outstanding     decimal.Decimal       `json:"outstanding"`
	Lines           []BillingLineResponse `json:"lines"`
	SubmittedAt     *time.Time            `json:"submitted_at,omitempty"`
	ApprovedAt      *time.Time            `json:"approved_at,omitempty"`
	InvoicedAt      *time.Time            `json:"invoiced_at,omitempty"`
	CancelledAt     *time.Time            `json:"cancelled_at,omitempty"`
	CancelReason    string                `json:"cancel_reason,omitempty"`
	Version         int                   `json:"version"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// CumulativeResponse is the quantity of a budget line billed to date
type CumulativeResponse struct {
	BudgetLineID       uuid.UUID       `json:"budget_line_id"`
	BudgetedQuantity   decimal.Decimal `json:"budgeted_quantity"`
	CumulativeQuantity decimal.Decimal `json:"cumulative_quantity"`
	RemainingQuantity  decimal.Decimal `json:"remaining_quantity"`
}

// ToBillingPeriodResponse converts a domain billing period
func ToBillingPeriodResponse(p *billing.BillingPeriod) BillingPeriodResponse {
	lines := make([]BillingLineResponse, len(p.Lines))
	for i, l := range p.Lines {
		lines[i] = BillingLineResponse{
			ID:                 l.ID,
			BudgetLineID:       l.BudgetLineID,
			BudgetLineKey:      l.BudgetLineKey,
			ExecutedQuantity:   l.ExecutedQuantity,
			CumulativeQuantity: l.CumulativeQuantity,
			UnitPrice:          l.UnitPrice,
			Amount:             l.Amount,
		}
	}
	return BillingPeriodResponse{
		ID:              p.ID,
		WorkOrderID:     p.WorkOrderID,
		BudgetVersionID: p.BudgetVersionID,
		Number:          p.Number,
		Period:          p.Period,
		CutoffDate:      p.CutoffDate,
		Status:          p.Status.String(),
		AdvancePct:      p.AdvancePct,
		RetentionPct:    p.RetentionPct,
		GrossAmount:     p.GrossAmount,
		Amortization:    p.Amortization,
		Retention:       p.Retention,
		NetAmount:       p.NetAmount,
		Paid:            p.Paid,
		Outstanding:     p.OutstandingBalance(),
		Lines:           lines,
		SubmittedAt:     p.SubmittedAt,
		ApprovedAt:      p.ApprovedAt,
		InvoicedAt:      p.InvoicedAt,
		CancelledAt:     p.CancelledAt,
		CancelReason:    p.CancelReason,
		Version:         p.Version,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

// ToBillingPeriodResponses converts a slice of billing periods
func ToBillingPeriodResponses(periods []billing.BillingPeriod) []BillingPeriodResponse {
	out := make([]BillingPeriodResponse, len(periods))
	for i := range periods {
		out[i] = ToBillingPeriodResponse(&periods[i])
	}
	return out
}
