package budget

import (
	"strings"

	"github.com/erp/construction/internal/domain/shared"
	"github.com/erp/construction/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WorkOrder is a construction contract (obra). It carries the contractual
// percentages that every billing period of the contract applies.
type WorkOrder struct {
	shared.TenantAggregateRoot
	Code           string
	Name           string
	ClientName     string
	AdvancePct     decimal.Decimal
	RetentionPct   decimal.Decimal
	ContractAmount decimal.Decimal
}

// NewWorkOrder creates a new work order
func NewWorkOrder(tenantID uuid.UUID, code, name, clientName string, advancePct, retentionPct, contractAmount decimal.Decimal) (*WorkOrder, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewValidationError("work order code cannot be empty")
	}
	if len(code) > 50 {
		return nil, shared.NewValidationError("work order code cannot exceed 50 characters")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewValidationError("work order name cannot be empty")
	}
	if _, err := valueobject.NewPercent(advancePct); err != nil {
		return nil, shared.NewValidationError("advance_pct: %s", err.Error())
	}
	if _, err := valueobject.NewPercent(retentionPct); err != nil {
		return nil, shared.NewValidationError("retention_pct: %s", err.Error())
	}
	if advancePct.Add(retentionPct).GreaterThan(decimal.NewFromInt(100)) {
		return nil, shared.NewValidationError("advance_pct plus retention_pct cannot exceed 100")
	}
	if contractAmount.IsNegative() {
		return nil, shared.NewValidationError("contract amount cannot be negative")
	}

	wo := &WorkOrder{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                name,
		ClientName:          clientName,
		AdvancePct:          advancePct,
		RetentionPct:        retentionPct,
		ContractAmount:      contractAmount,
	}
	wo.AddDomainEvent(NewWorkOrderCreatedEvent(wo))
	return wo, nil
}

// AdvancePercent returns the advance-payment recoupment rate
func (w *WorkOrder) AdvancePercent() valueobject.Percent {
	return valueobject.MustPercent(w.AdvancePct)
}

// RetentionPercent returns the guarantee retention rate
func (w *WorkOrder) RetentionPercent() valueobject.Percent {
	return valueobject.MustPercent(w.RetentionPct)
}
