package treasury

import (
	"github.com/erp/construction/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeBankAccount = "BankAccount"

// Event type constants
const (
	EventTypeBankAccountOpened      = "BankAccountOpened"
	EventTypeCashTransactionApplied = "CashTransactionApplied"
)

// BankAccountOpenedEvent is raised when an account is opened
type BankAccountOpenedEvent struct {
	shared.BaseDomainEvent
	Name           string          `json:"name"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// NewBankAccountOpenedEvent creates a BankAccountOpenedEvent
func NewBankAccountOpenedEvent(a *BankAccount) *BankAccountOpenedEvent {
	return &BankAccountOpenedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBankAccountOpened, AggregateTypeBankAccount, a.ID, a.TenantID),
		Name:            a.Name,
		OpeningBalance:  a.Balance,
	}
}

// CashTransactionAppliedEvent is raised for every recorded movement
type CashTransactionAppliedEvent struct {
	shared.BaseDomainEvent
	TransactionID uuid.UUID       `json:"transaction_id"`
	Kind          TransactionKind `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	TargetType    *TargetType     `json:"target_type,omitempty"`
	TargetID      *uuid.UUID      `json:"target_id,omitempty"`
}

// NewCashTransactionAppliedEvent creates a CashTransactionAppliedEvent
func NewCashTransactionAppliedEvent(a *BankAccount, tx *CashTransaction) *CashTransactionAppliedEvent {
	return &CashTransactionAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCashTransactionApplied, AggregateTypeBankAccount, a.ID, a.TenantID),
		TransactionID:   tx.ID,
		Kind:            tx.Kind,
		Amount:          tx.Amount,
		BalanceAfter:    tx.BalanceAfter,
		TargetType:      tx.TargetType,
		TargetID:        tx.TargetID,
	}
}
