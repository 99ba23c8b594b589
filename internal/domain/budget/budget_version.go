package budget

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/construction/internal/domain/shared"
	"github.com/erp/construction/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BudgetLine is a priced concept (concepto) of a budget version
type BudgetLine struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	BudgetVersionID uuid.UUID
	Key             string
	Description     string
	Unit            string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	Amount          decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewBudgetLine validates and prices a line. Amount is quantity × unitPrice, unrounded.
func NewBudgetLine(tenantID, versionID uuid.UUID, key, description, unit string, quantity, unitPrice decimal.Decimal) (*BudgetLine, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, shared.NewValidationError("budget line key cannot be empty")
	}
	if len(key) > 50 {
		return nil, shared.NewValidationError("budget line key cannot exceed 50 characters")
	}
	if quantity.IsNegative() {
		return nil, shared.NewValidationError("quantity cannot be negative")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewValidationError("unit price cannot be negative")
	}

	now := time.Now()
	return &BudgetLine{
		ID:              uuid.New(),
		TenantID:        tenantID,
		BudgetVersionID: versionID,
		Key:             key,
		Description:     description,
		Unit:            unit,
		Quantity:        quantity,
		UnitPrice:       unitPrice,
		Amount:          valueobject.LineAmount(quantity, unitPrice),
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// BudgetVersion is a priced bill-of-quantities snapshot (presupuesto) of a work
// order. At most one version per work order is current.
type BudgetVersion struct {
	shared.TenantAggregateRoot
	WorkOrderID   uuid.UUID
	VersionNumber int
	IsCurrent     bool
	Description   string
	Lines         []BudgetLine
}

// NewBudgetVersion creates a non-current version with the given sequence number
func NewBudgetVersion(tenantID, workOrderID uuid.UUID, number int, description string) (*BudgetVersion, error) {
	if workOrderID == uuid.Nil {
		return nil, shared.NewValidationError("work order ID cannot be empty")
	}
	if number < 1 {
		return nil, shared.NewValidationError("version number must be positive")
	}
	v := &BudgetVersion{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		WorkOrderID:         workOrderID,
		VersionNumber:       number,
		Description:         description,
		Lines:               make([]BudgetLine, 0),
	}
	v.AddDomainEvent(NewBudgetVersionCreatedEvent(v))
	return v, nil
}

// AddLine appends a line. Keys are unique within the version.
func (v *BudgetVersion) AddLine(key, description, unit string, quantity, unitPrice decimal.Decimal) (*BudgetLine, error) {
	line, err := NewBudgetLine(v.TenantID, v.ID, key, description, unit, quantity, unitPrice)
	if err != nil {
		return nil, err
	}
	for _, existing := range v.Lines {
		if strings.EqualFold(existing.Key, line.Key) {
			return nil, shared.NewValidationError("budget line key %q already exists in version %d", line.Key, v.VersionNumber)
		}
	}

	v.Lines = append(v.Lines, *line)
	v.IncrementVersion()
	v.AddDomainEvent(NewBudgetLineAddedEvent(v, line))
	return line, nil
}

// RemoveLine drops a line. Callers must first check that no billing line
// references it.
func (v *BudgetVersion) RemoveLine(lineID uuid.UUID) error {
	for i, line := range v.Lines {
		if line.ID == lineID {
			v.Lines = append(v.Lines[:i], v.Lines[i+1:]...)
			v.IncrementVersion()
			return nil
		}
	}
	return shared.NewNotFoundError("budget line")
}

// FindLine returns the line with the given ID, or nil
func (v *BudgetVersion) FindLine(lineID uuid.UUID) *BudgetLine {
	for i := range v.Lines {
		if v.Lines[i].ID == lineID {
			return &v.Lines[i]
		}
	}
	return nil
}

// TotalAmount is the exact sum of line amounts
func (v *BudgetVersion) TotalAmount() decimal.Decimal {
	amounts := make([]decimal.Decimal, len(v.Lines))
	for i, line := range v.Lines {
		amounts[i] = line.Amount
	}
	return valueobject.Sum(amounts...)
}

// MarkCurrent flags this version as the current one. Clearing the sibling
// flag is the repository's job and must happen in the same transaction.
func (v *BudgetVersion) MarkCurrent(workOrderID uuid.UUID) error {
	if v.WorkOrderID != workOrderID {
		return shared.NewValidationError("budget version does not belong to work order %s", workOrderID)
	}
	if v.IsCurrent {
		return nil
	}
	v.IsCurrent = true
	v.IncrementVersion()
	v.AddDomainEvent(NewBudgetVersionMarkedCurrentEvent(v))
	return nil
}

// Label renders e.g. "v3"
func (v *BudgetVersion) Label() string {
	return fmt.Sprintf("v%d", v.VersionNumber)
}
