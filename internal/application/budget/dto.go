package budget

import (
	"time"

	"github.com/erp/construction/internal/domain/budget"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Work Order DTOs ====================

// CreateWorkOrderRequest represents a request to register a work order
type CreateWorkOrderRequest struct {
	Code           string          `json:"code" binding:"required,min=1,max=50"`
	Name           string          `json:"name" binding:"required,min=1,max=200"`
	ClientName     string          `json:"client_name" binding:"max=200"`
	AdvancePct     decimal.Decimal `json:"advance_pct" binding:"decimal_pct,decimal_scale=4"`
	RetentionPct   decimal.Decimal `json:"retention_pct" binding:"decimal_pct,decimal_scale=4"`
	ContractAmount decimal.Decimal `json:"contract_amount" binding:"decimal_gte0,decimal_scale=6"`
	CreatedBy      *uuid.UUID      `json:"-"`
}

// WorkOrderResponse represents a work order in API responses
type WorkOrderResponse struct {
	ID             uuid.UUID       `json:"id"`
	TenantID       uuid.UUID       `json:"tenant_id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	ClientName     string          `json:"client_name"`
	AdvancePct     decimal.Decimal `json:"advance_pct"`
	RetentionPct   decimal.Decimal `json:"retention_pct"`
	ContractAmount decimal.Decimal `json:"contract_amount"`
	Version        int             `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ToWorkOrderResponse converts a domain work order
func ToWorkOrderResponse(wo *budget.WorkOrder) WorkOrderResponse {
	return WorkOrderResponse{
		ID:             wo.ID,
		TenantID:       wo.TenantID,
		Code:           wo.Code,
		Name:           wo.Name,
		ClientName:     wo.ClientName,
		AdvancePct:     wo.AdvancePct,
		RetentionPct:   wo.RetentionPct,
		ContractAmount: wo.ContractAmount,
		Version:        wo.Version,
		CreatedAt:      wo.CreatedAt,
		UpdatedAt:      wo.UpdatedAt,
	}
}

// ToWorkOrderResponses converts a slice of work orders
func ToWorkOrderResponses(orders []budget.WorkOrder) []WorkOrderResponse {
	out := make([]WorkOrderResponse, len(orders))
	for i := range orders {
		out[i] = ToWorkOrderResponse(&orders[i])
	}
	return out
}

// ==================== Budget Version DTOs ====================

// CreateVersionRequest represents a request to open a new budget version
type CreateVersionRequest struct {
	Description string     `json:"description" binding:"max=500"`
	CreatedBy   *uuid.UUID `json:"-"`
}

// AddLineRequest represents a request to add a priced concept
type AddLineRequest struct {
	Key         string          `json:"key" binding:"required,min=1,max=50"`
	Description string          `json:"description" binding:"max=500"`
	Unit        string          `json:"unit" binding:"max=20"`
	Quantity    decimal.Decimal `json:"quantity" binding:"decimal_gte0,decimal_scale=6"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"decimal_gte0,decimal_scale=6"`
}

// BudgetLineResponse represents a budget line in API responses
type BudgetLineResponse struct {
	ID              uuid.UUID       `json:"id"`
	BudgetVersionID uuid.UUID       `json:"budget_version_id"`
	Key             string          `json:"key"`
	Description     string          `json:"description"`
	Unit            string          `json:"unit"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Amount          decimal.Decimal `json:"amount"`
}

// BudgetVersionResponse represents a budget version in API responses
type BudgetVersionResponse struct {
	ID            uuid.UUID            `json:"id"`
	WorkOrderID   uuid.UUID            `json:"work_order_id"`
	VersionNumber int                  `json:"version_number"`
	Label         string               `json:"label"`
	IsCurrent     bool                 `json:"is_current"`
	Description   string               `json:"description"`
	TotalAmount   decimal.Decimal      `json:"total_amount"`
	Lines         []BudgetLineResponse `json:"lines"`
	Version       int                  `json:"version"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// TotalAmountResponse is the sum of a version's line amounts
type TotalAmountResponse struct {
	BudgetVersionID uuid.UUID       `json:"budget_version_id"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
}

// MaxBatchLines caps the rows of one AddLines call
const MaxBatchLines = 5000

// AddLinesRequest adds several concepts to a version at once
type AddLinesRequest struct {
	Lines []AddLineRequest `json:"lines" binding:"required,min=1,max=5000,dive"`
}

// LineError is one row of a batch the domain rejected. Row is 1-based.
type LineError struct {
	Row     int    `json:"row"`
	Key     string `json:"key"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AddLinesResponse reports a batch insert. When Errors is non-empty no line
// was saved.
type AddLinesResponse struct {
	BudgetVersionID uuid.UUID            `json:"budget_version_id"`
	Added           int                  `json:"added"`
	Lines           []BudgetLineResponse `json:"lines,omitempty"`
	TotalAmount     decimal.Decimal      `json:"total_amount"`
	Errors          []LineError          `json:"errors,omitempty"`
}

// ToBudgetLineResponse converts a domain budget line
func ToBudgetLineResponse(l *budget.BudgetLine) BudgetLineResponse {
	return BudgetLineResponse{
		ID:              l.ID,
		BudgetVersionID: l.BudgetVersionID,
		Key:             l.Key,
		Description:     l.Description,
		Unit:            l.Unit,
		Quantity:        l.Quantity,
		UnitPrice:       l.UnitPrice,
		Amount:          l.Amount,
	}
}

// ToBudgetVersionResponse converts a domain budget version with its lines
func ToBudgetVersionResponse(v *budget.BudgetVersion) BudgetVersionResponse {
	lines := make([]BudgetLineResponse, len(v.Lines))
	for i := range v.Lines {
		lines[i] = ToBudgetLineResponse(&v.Lines[i])
	}
	return BudgetVersionResponse{
		ID:            v.ID,
		WorkOrderID:   v.WorkOrderID,
		VersionNumber: v.VersionNumber,
		Label:         v.Label(),
		IsCurrent:     v.IsCurrent,
		Description:   v.Description,
		TotalAmount:   v.TotalAmount(),
		Lines:         lines,
		Version:       v.Version,
		CreatedAt:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,
	}
}
