package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/construction/internal/domain/budget"
	"github.com/erp/construction/internal/domain/shared"
	"github.com/erp/construction/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillingLine is the executed quantity of one budget line within a period
type BillingLine struct {
	ID                 uuid.UUID
	BillingPeriodID    uuid.UUID
	BudgetLineID       uuid.UUID
	BudgetLineKey      string
	ExecutedQuantity   decimal.Decimal
	CumulativeQuantity decimal.Decimal
	UnitPrice          decimal.Decimal
	Amount             decimal.Decimal
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Allocation is what other periods have already drawn from a budget line.
type Allocation struct {
	// Prior is executed quantity in non-cancelled periods numbered before this one
	Prior decimal.Decimal
	// Committed is executed quantity in every other non-cancelled period
	Committed decimal.Decimal
}

// BillingPeriod is a progress-billing claim (estimación) against one budget version
type BillingPeriod struct {
	shared.TenantAggregateRoot
	WorkOrderID     uuid.UUID
	BudgetVersionID uuid.UUID
	Number          int
	Period          string
	CutoffDate      time.Time
	Status          PeriodStatus
	AdvancePct      decimal.Decimal
	RetentionPct    decimal.Decimal
	GrossAmount     decimal.Decimal
	Amortization    decimal.Decimal
	Retention       decimal.Decimal
	NetAmount       decimal.Decimal
	Paid            decimal.Decimal
	Lines           []BillingLine
	SubmittedAt     *time.Time
	ApprovedAt      *time.Time
	InvoicedAt      *time.Time
	CancelledAt     *time.Time
	CancelReason    string
}

// NewBillingPeriod opens a draft period. The work order percentages are
// snapshotted so later contract edits do not rewrite issued claims.
func NewBillingPeriod(tenantID uuid.UUID, wo *budget.WorkOrder, budgetVersionID uuid.UUID, number int, period string, cutoff time.Time) (*BillingPeriod, error) {
	if wo == nil {
		return nil, shared.NewValidationError("work order is required")
	}
	if budgetVersionID == uuid.Nil {
		return nil, shared.NewValidationError("budget version is required")
	}
	if number < 1 {
		return nil, shared.NewValidationError("period number must be positive")
	}
	if strings.TrimSpace(period) == "" {
		return nil, shared.NewValidationError("period label cannot be empty")
	}
	if cutoff.IsZero() {
		return nil, shared.NewValidationError("cutoff date is required")
	}

	p := &BillingPeriod{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		WorkOrderID:         wo.ID,
		BudgetVersionID:     budgetVersionID,
		Number:              number,
		Period:              period,
		CutoffDate:          cutoff,
		Status:              PeriodStatusDraft,
		AdvancePct:          wo.AdvancePct,
		RetentionPct:        wo.RetentionPct,
		GrossAmount:         decimal.Zero,
		Amortization:        decimal.Zero,
		Retention:           decimal.Zero,
		NetAmount:           decimal.Zero,
		Paid:                decimal.Zero,
		Lines:               make([]BillingLine, 0),
	}
	p.AddDomainEvent(NewBillingPeriodCreatedEvent(p))
	return p, nil
}

// AddLine bills executedQuantity of a budget line in this period.
//
// The line is rejected when the budget line is already in the period, or when
// the quantity already drawn by other periods plus this one exceeds the
// budgeted quantity.
func (p *BillingPeriod) AddLine(bl *budget.BudgetLine, executed decimal.Decimal, alloc Allocation) (*BillingLine, error) {
	if !p.Status.CanEditLines() {
		return nil, shared.NewInvalidTransitionError("billing period lines", p.Status.String(), "edited")
	}
	if bl == nil {
		return nil, shared.NewValidationError("budget line is required")
	}
	if bl.BudgetVersionID != p.BudgetVersionID {
		return nil, shared.NewValidationError("budget line %s does not belong to the period's budget version", bl.Key)
	}
	if !executed.IsPositive() {
		return nil, shared.NewValidationError("executed quantity must be positive")
	}
	for _, existing := range p.Lines {
		if existing.BudgetLineID == bl.ID {
			return nil, shared.NewDomainError(shared.CodeDuplicateLine,
				fmt.Sprintf("budget line %s is already billed in period %d", bl.Key, p.Number))
		}
	}
	if alloc.Committed.Add(executed).GreaterThan(bl.Quantity) {
		available := bl.Quantity.Sub(alloc.Committed)
		if available.IsNegative() {
			available = decimal.Zero
		}
		return nil, shared.NewDomainError(shared.CodeOverAllocation,
			fmt.Sprintf("budget line %s: executing %s exceeds budgeted quantity %s (already billed %s, available %s)",
				bl.Key, executed.String(), bl.Quantity.String(), alloc.Committed.String(), available.String()))
	}

	now := time.Now()
	line := BillingLine{
		ID:                 uuid.New(),
		BillingPeriodID:    p.ID,
		BudgetLineID:       bl.ID,
		BudgetLineKey:      bl.Key,
		ExecutedQuantity:   executed,
		CumulativeQuantity: alloc.Prior.Add(executed),
		UnitPrice:          bl.UnitPrice,
		Amount:             valueobject.LineAmount(executed, bl.UnitPrice),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	p.Lines = append(p.Lines, line)
	p.RecomputeTotals()
	p.IncrementVersion()
	p.AddDomainEvent(NewBillingLineAddedEvent(p, &line))
	return &line, nil
}

// RemoveLine drops a billing line from a draft period
func (p *BillingPeriod) RemoveLine(lineID uuid.UUID) (*BillingLine, error) {
	if !p.Status.CanEditLines() {
		return nil, shared.NewInvalidTransitionError("billing period lines", p.Status.String(), "edited")
	}
	for i, line := range p.Lines {
		if line.ID == lineID {
			p.Lines = append(p.Lines[:i], p.Lines[i+1:]...)
			p.RecomputeTotals()
			p.IncrementVersion()
			return &line, nil
		}
	}
	return nil, shared.NewNotFoundError("billing line")
}

// RecomputeTotals derives every amount from the lines:
// gross = Σ amount, amortization = gross × advance%, retention = gross × retention%,
// net = gross − amortization − retention.
func (p *BillingPeriod) RecomputeTotals() {
	amounts := make([]decimal.Decimal, len(p.Lines))
	for i, line := range p.Lines {
		amounts[i] = line.Amount
	}
	gross := valueobject.Sum(amounts...)
	p.GrossAmount = gross
	p.Amortization = valueobject.ApplyPercent(gross, valueobject.MustPercent(p.AdvancePct))
	p.Retention = valueobject.ApplyPercent(gross, valueobject.MustPercent(p.RetentionPct))
	p.NetAmount = gross.Sub(p.Amortization).Sub(p.Retention)
}

// RefreshCumulative re-derives each line's cumulative quantity from the prior
// quantities of earlier non-cancelled periods, keyed by budget line.
func (p *BillingPeriod) RefreshCumulative(prior map[uuid.UUID]decimal.Decimal) {
	for i := range p.Lines {
		p.Lines[i].CumulativeQuantity = prior[p.Lines[i].BudgetLineID].Add(p.Lines[i].ExecutedQuantity)
	}
}

// BudgetLineIDs returns the budget lines billed in this period
func (p *BillingPeriod) BudgetLineIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(p.Lines))
	for i, line := range p.Lines {
		ids[i] = line.BudgetLineID
	}
	return ids
}

// Submit moves a draft with at least one line to PENDING
func (p *BillingPeriod) Submit() error {
	if len(p.Lines) == 0 {
		return shared.NewValidationError("cannot submit a billing period without lines")
	}
	if err := p.transition(PeriodStatusPending); err != nil {
		return err
	}
	now := time.Now()
	p.SubmittedAt = &now
	p.AddDomainEvent(NewBillingPeriodStatusChangedEvent(p, PeriodStatusDraft, EventTypeBillingPeriodSubmitted))
	return nil
}

// Approve moves a pending period to APPROVED
func (p *BillingPeriod) Approve() error {
	if err := p.transition(PeriodStatusApproved); err != nil {
		return err
	}
	now := time.Now()
	p.ApprovedAt = &now
	p.AddDomainEvent(NewBillingPeriodStatusChangedEvent(p, PeriodStatusPending, EventTypeBillingPeriodApproved))
	return nil
}

// Invoice moves an approved period to INVOICED
func (p *BillingPeriod) Invoice() error {
	if err := p.transition(PeriodStatusInvoiced); err != nil {
		return err
	}
	now := time.Now()
	p.InvoicedAt = &now
	p.AddDomainEvent(NewBillingPeriodStatusChangedEvent(p, PeriodStatusApproved, EventTypeBillingPeriodInvoiced))
	return nil
}

// Cancel cancels a DRAFT, PENDING or APPROVED period. A period with applied
// collections cannot be cancelled.
func (p *BillingPeriod) Cancel(reason string) error {
	from := p.Status
	if !from.CanTransitionTo(PeriodStatusCancelled) {
		return shared.NewInvalidTransitionError("billing period", from.String(), PeriodStatusCancelled.String())
	}
	if p.Paid.IsPositive() {
		return shared.NewInvalidTransitionError("billing period with collections", from.String(), PeriodStatusCancelled.String())
	}
	p.Status = PeriodStatusCancelled
	now := time.Now()
	p.CancelledAt = &now
	p.CancelReason = reason
	p.IncrementVersion()
	p.AddDomainEvent(NewBillingPeriodStatusChangedEvent(p, from, EventTypeBillingPeriodCancelled))
	return nil
}

// EnsureCurrentVersion refuses new lines once the work order has moved to
// another budget version. Budget lines of a superseded version keep their own
// cumulative totals, so billing them would draw the same concept twice.
func (p *BillingPeriod) EnsureCurrentVersion(currentVersionID uuid.UUID) error {
	if p.BudgetVersionID != currentVersionID {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("billing period %d was opened against a budget version that is no longer current", p.Number))
	}
	return nil
}

// EnsureDeletable refuses deletion once invoiced or collected
func (p *BillingPeriod) EnsureDeletable() error {
	if p.Status == PeriodStatusInvoiced {
		return shared.NewInvalidTransitionError("billing period", p.Status.String(), "deleted")
	}
	if p.Paid.IsPositive() {
		return shared.NewInvalidTransitionError("billing period with collections", p.Status.String(), "deleted")
	}
	return nil
}

// OutstandingBalance is net amount minus collections
func (p *BillingPeriod) OutstandingBalance() decimal.Decimal {
	return p.NetAmount.Sub(p.Paid)
}

// ApplyPayment records a client collection against the period
func (p *BillingPeriod) ApplyPayment(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.ErrNegativeAmount
	}
	if !p.Status.CanCollect() {
		return shared.NewInvalidTransitionError("billing period", p.Status.String(), "collected")
	}
	if amount.GreaterThan(p.OutstandingBalance()) {
		return shared.NewDomainError(shared.CodeOverpayment,
			fmt.Sprintf("collection %s exceeds outstanding balance %s of billing period %d",
				amount.StringFixed(2), p.OutstandingBalance().StringFixed(2), p.Number))
	}
	p.Paid = p.Paid.Add(amount)
	p.IncrementVersion()
	return nil
}

func (p *BillingPeriod) transition(target PeriodStatus) error {
	if !p.Status.CanTransitionTo(target) {
		return shared.NewInvalidTransitionError("billing period", p.Status.String(), target.String())
	}
	p.Status = target
	p.IncrementVersion()
	return nil
}
