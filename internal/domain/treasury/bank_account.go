package treasury

import (
	"strings"
	"time"

	"github.com/erp/construction/internal/domain/shared"
	"github.com/erp/construction/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind is the direction of a cash movement
type TransactionKind string

const (
	TransactionKindIncome  TransactionKind = "INCOME"
	TransactionKindExpense TransactionKind = "EXPENSE"
)

// IsValid checks if the kind is a valid TransactionKind
func (k TransactionKind) IsValid() bool {
	return k == TransactionKindIncome || k == TransactionKindExpense
}

// String returns the string representation of TransactionKind
func (k TransactionKind) String() string {
	return string(k)
}

// TargetType identifies the kind of document a transaction settles
type TargetType string

const (
	TargetTypeBillingPeriod TargetType = "BILLING_PERIOD"
	TargetTypePurchaseOrder TargetType = "PURCHASE_ORDER"
)

// IsValid checks if the target type is known
func (t TargetType) IsValid() bool {
	return t == TargetTypeBillingPeriod || t == TargetTypePurchaseOrder
}

// ExpectedKind returns the only transaction kind allowed against the target:
// billing periods are collected, purchase orders are paid.
func (t TargetType) ExpectedKind() TransactionKind {
	if t == TargetTypeBillingPeriod {
		return TransactionKindIncome
	}
	return TransactionKindExpense
}

// TargetRef points at the document a transaction settles
type TargetRef struct {
	Type TargetType
	ID   uuid.UUID
}

// Validate checks the reference and its pairing with the transaction kind
func (r TargetRef) Validate(kind TransactionKind) error {
	if !r.Type.IsValid() {
		return shared.NewValidationError("unknown target type %q", string(r.Type))
	}
	if r.ID == uuid.Nil {
		return shared.NewValidationError("target ID cannot be empty")
	}
	if r.Type.ExpectedKind() != kind {
		return shared.NewValidationError("%s targets require %s transactions, got %s",
			string(r.Type), r.Type.ExpectedKind(), kind)
	}
	return nil
}

// Settleable is a document with an outstanding balance that cash can be applied to.
// Billing periods and purchase orders implement it.
type Settleable interface {
	OutstandingBalance() decimal.Decimal
	ApplyPayment(amount decimal.Decimal) error
}

// BankAccount is a tenant's bank or cash account
type BankAccount struct {
	shared.TenantAggregateRoot
	Name          string
	BankName      string
	AccountNumber string
	Currency      valueobject.Currency
	Balance       decimal.Decimal
}

// NewBankAccount opens an account with an opening balance
func NewBankAccount(tenantID uuid.UUID, name, bankName, accountNumber string, currency valueobject.Currency, openingBalance decimal.Decimal) (*BankAccount, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("account name cannot be empty")
	}
	if len(name) > 100 {
		return nil, shared.NewValidationError("account name cannot exceed 100 characters")
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	if openingBalance.IsNegative() {
		return nil, shared.NewValidationError("opening balance cannot be negative")
	}

	account := &BankAccount{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		BankName:            strings.TrimSpace(bankName),
		AccountNumber:       strings.TrimSpace(accountNumber),
		Currency:            currency,
		Balance:             openingBalance,
	}
	account.AddDomainEvent(NewBankAccountOpenedEvent(account))
	return account, nil
}

// ApplyTransaction records a cash movement on the account.
//
// When target is set, settle must be the loaded target document; the payment is
// applied to it first so that an overpayment leaves the account untouched.
// Nothing is mutated when an error is returned.
func (a *BankAccount) ApplyTransaction(kind TransactionKind, amount decimal.Decimal, target *TargetRef, settle Settleable, reference, description string) (*CashTransaction, error) {
	if !amount.IsPositive() {
		return nil, shared.ErrNegativeAmount
	}
	if !kind.IsValid() {
		return nil, shared.NewValidationError("unknown transaction kind %q", string(kind))
	}
	if target != nil {
		if err := target.Validate(kind); err != nil {
			return nil, err
		}
		if settle == nil {
			return nil, shared.NewNotFoundError(string(target.Type))
		}
		if err := settle.ApplyPayment(amount); err != nil {
			return nil, err
		}
	}

	if kind == TransactionKindIncome {
		a.Balance = a.Balance.Add(amount)
	} else {
		a.Balance = a.Balance.Sub(amount)
	}
	a.IncrementVersion()

	tx := newCashTransaction(a, kind, amount, target, reference, description)
	a.AddDomainEvent(NewCashTransactionAppliedEvent(a, tx))
	return tx, nil
}

// CashTransaction is an immutable record of a cash movement
type CashTransaction struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	BankAccountID uuid.UUID
	Kind          TransactionKind
	Amount        decimal.Decimal
	TargetType    *TargetType
	TargetID      *uuid.UUID
	Reference     string
	Description   string
	BalanceAfter  decimal.Decimal
	CreatedBy     *uuid.UUID
	CreatedAt     time.Time
}

func newCashTransaction(a *BankAccount, kind TransactionKind, amount decimal.Decimal, target *TargetRef, reference, description string) *CashTransaction {
	tx := &CashTransaction{
		ID:            uuid.New(),
		TenantID:      a.TenantID,
		BankAccountID: a.ID,
		Kind:          kind,
		Amount:        amount,
		Reference:     strings.TrimSpace(reference),
		Description:   strings.TrimSpace(description),
		BalanceAfter:  a.Balance,
		CreatedAt:     time.Now(),
	}
	if target != nil {
		t, id := target.Type, target.ID
		tx.TargetType = &t
		tx.TargetID = &id
	}
	return tx
}

// Target returns the settled document reference, if any
func (t *CashTransaction) Target() *TargetRef {
	if t.TargetType == nil || t.TargetID == nil {
		return nil
	}
	return &TargetRef{Type: *t.TargetType, ID: *t.TargetID}
}
