package treasury

import (
	"time"

	"github.com/erp/construction/internal/domain/treasury"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OpenAccountRequest represents a request to open a bank account
type OpenAccountRequest struct {
	Name           string          `json:"name" binding:"required,min=1,max=100"`
	BankName       string          `json:"bank_name" binding:"max=100"`
	AccountNumber  string          `json:"account_number" binding:"max=50"`
	Currency       string          `json:"currency" binding:"omitempty,oneof=MXN USD"`
	OpeningBalance decimal.Decimal `json:"opening_balance" binding:"decimal_gte0,decimal_scale=6"`
	CreatedBy      *uuid.UUID      `json:"-"`
}

// ApplyTransactionRequest represents a cash movement, optionally settling a document.
// Amount is validated by the domain so that non-positive values surface as
// NEGATIVE_AMOUNT rather than a generic validation error. Its scale is wide
// enough to settle computed document amounts exactly.
type ApplyTransactionRequest struct {
	Kind           string          `json:"kind" binding:"required,oneof=INCOME EXPENSE"`
	Amount         decimal.Decimal `json:"amount" binding:"decimal_scale=18"`
	TargetType     string          `json:"target_type" binding:"omitempty,oneof=BILLING_PERIOD PURCHASE_ORDER"`
	TargetID       *uuid.UUID      `json:"target_id"`
	Reference      string          `json:"reference" binding:"max=100"`
	Description    string          `json:"description" binding:"max=500"`
	IdempotencyKey string          `json:"-"`
	CreatedBy      *uuid.UUID      `json:"-"`
}

// TransactionListFilter filters an account's journal
type TransactionListFilter struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Kind     string `form:"kind" binding:"omitempty,oneof=INCOME EXPENSE"`
}

// BankAccountResponse represents a bank account in API responses
type BankAccountResponse struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	BankName      string          `json:"bank_name"`
	AccountNumber string          `json:"account_number"`
	Currency      string          `json:"currency"`
	Balance       decimal.Decimal `json:"balance"`
	Version       int             `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CashTransactionResponse represents a journal entry in API responses
type CashTransactionResponse struct {
	ID            uuid.UUID       `json:"id"`
	BankAccountID uuid.UUID       `json:"bank_account_id"`
	Kind          string          `json:"kind"`
	Amount        decimal.Decimal `json:"amount" binding:"decimal_scale=18"`
	TargetType    *string         `json:"target_type,omitempty"`
	TargetID      *uuid.UUID      `json:"target_id,omitempty"`
	Reference     string          `json:"reference"`
	Description   string          `json:"description"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ApplyTransactionResponse is the outcome of ApplyTransaction
type ApplyTransactionResponse struct {
	Transaction CashTransactionResponse `json:"transaction"`
	Account     BankAccountResponse     `json:"account"`
	Target      *OutstandingResponse    `json:"target,omitempty"`
	Replayed    bool                    `json:"replayed"`
}

// OutstandingResponse is the unpaid balance of a settleable document
type OutstandingResponse struct {
	TargetType  string          `json:"target_type"`
	TargetID    uuid.UUID       `json:"target_id"`
	Status      string          `json:"status"`
	Total       decimal.Decimal `json:"total"`
	Paid        decimal.Decimal `json:"paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// ToBankAccountResponse converts a domain bank account
func ToBankAccountResponse(a *treasury.BankAccount) BankAccountResponse {
	return BankAccountResponse{
		ID:            a.ID,
		Name:          a.Name,
		BankName:      a.BankName,
		AccountNumber: a.AccountNumber,
		Currency:      string(a.Currency),
		Balance:       a.Balance,
		Version:       a.Version,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// ToCashTransactionResponse converts a domain cash transaction
func ToCashTransactionResponse(t *treasury.CashTransaction) CashTransactionResponse {
	resp := CashTransactionResponse{
		ID:            t.ID,
		BankAccountID: t.BankAccountID,
		Kind:          t.Kind.String(),
		Amount:        t.Amount,
		TargetID:      t.TargetID,
		Reference:     t.Reference,
		Description:   t.Description,
		BalanceAfter:  t.BalanceAfter,
		CreatedAt:     t.CreatedAt,
	}
	if t.TargetType != nil {
		tt := string(*t.TargetType)
		resp.TargetType = &tt
	}
	return resp
}

// ToCashTransactionResponses converts a slice of cash transactions
func ToCashTransactionResponses(txs []treasury.CashTransaction) []CashTransactionResponse {
	out := make([]CashTransactionResponse, len(txs))
	for i := range txs {
		out[i] = ToCashTransactionResponse(&txs[i])
	}
	return out
}
