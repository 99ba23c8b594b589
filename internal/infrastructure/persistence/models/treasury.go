package models

import (
	"time"

	"github.com/erp/construction/internal/domain/shared/valueobject"
	"github.com/erp/construction/internal/domain/treasury"
	"github.com/google/uuid"
)

// BankAccountModel is the persistence model for the BankAccount aggregate root.
type BankAccountModel struct {
	TenantAggregateModel
	Name          string  `gorm:"type:varchar(100);not null"`
	BankName      string  `gorm:"type:varchar(100)"`
	AccountNumber string  `gorm:"type:varchar(50)"`
	Currency      string  `gorm:"type:varchar(3);not null;default:'MXN'"`
	Balance       Numeric `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (BankAccountModel) TableName() string {
	return "bank_accounts"
}

// ToDomain converts the persistence model to a domain BankAccount.
func (m *BankAccountModel) ToDomain() *treasury.BankAccount {
	return &treasury.BankAccount{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Name:                m.Name,
		BankName:            m.BankName,
		AccountNumber:       m.AccountNumber,
		Currency:            valueobject.Currency(m.Currency),
		Balance:             m.Balance.Decimal,
	}
}

// FromDomain populates the persistence model from a domain BankAccount.
func (m *BankAccountModel) FromDomain(a *treasury.BankAccount) {
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	m.Name = a.Name
	m.BankName = a.BankName
	m.AccountNumber = a.AccountNumber
	m.Currency = string(a.Currency)
	m.Balance = NewNumeric(a.Balance)
}

// BankAccountModelFromDomain creates a new persistence model from a domain BankAccount.
func BankAccountModelFromDomain(a *treasury.BankAccount) *BankAccountModel {
	m := &BankAccountModel{}
	m.FromDomain(a)
	return m
}

// CashTransactionModel is the persistence model for the append-only cash journal.
type CashTransactionModel struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key"`
	TenantID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	BankAccountID uuid.UUID  `gorm:"type:uuid;not null;index"`
	Kind          string     `gorm:"type:varchar(10);not null"`
	Amount        Numeric    `gorm:"not null"`
	TargetType    *string    `gorm:"type:varchar(20)"`
	TargetID      *uuid.UUID `gorm:"type:uuid;index"`
	Reference     string     `gorm:"type:varchar(100)"`
	Description   string     `gorm:"type:varchar(500)"`
	BalanceAfter  Numeric    `gorm:"not null"`
	CreatedBy     *uuid.UUID `gorm:"type:uuid"`
	CreatedAt     time.Time  `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (CashTransactionModel) TableName() string {
	return "cash_transactions"
}

// ToDomain converts the persistence model to a domain CashTransaction.
func (m *CashTransactionModel) ToDomain() *treasury.CashTransaction {
	tx := &treasury.CashTransaction{
		ID:            m.ID,
		TenantID:      m.TenantID,
		BankAccountID: m.BankAccountID,
		Kind:          treasury.TransactionKind(m.Kind),
		Amount:        m.Amount.Decimal,
		TargetID:      m.TargetID,
		Reference:     m.Reference,
		Description:   m.Description,
		BalanceAfter:  m.BalanceAfter.Decimal,
		CreatedBy:     m.CreatedBy,
		CreatedAt:     m.CreatedAt,
	}
	if m.TargetType != nil {
		t := treasury.TargetType(*m.TargetType)
		tx.TargetType = &t
	}
	return tx
}

// CashTransactionModelFromDomain creates a new persistence model from a domain CashTransaction.
func CashTransactionModelFromDomain(tx *treasury.CashTransaction) *CashTransactionModel {
	m := &CashTransactionModel{
		ID:            tx.ID,
		TenantID:      tx.TenantID,
		BankAccountID: tx.BankAccountID,
		Kind:          string(tx.Kind),
		Amount:        NewNumeric(tx.Amount),
		TargetID:      tx.TargetID,
		Reference:     tx.Reference,
		Description:   tx.Description,
		BalanceAfter:  NewNumeric(tx.BalanceAfter),
		CreatedBy:     tx.CreatedBy,
		CreatedAt:     tx.CreatedAt,
	}
	if tx.TargetType != nil {
		t := string(*tx.TargetType)
		m.TargetType = &t
	}
	return m
}
