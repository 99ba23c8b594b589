package persistence

import (
	"context"

	appshared "github.com/erp/construction/internal/application/shared"
	"github.com/erp/construction/internal/domain/billing"
	"github.com/erp/construction/internal/domain/budget"
	"github.com/erp/construction/internal/domain/inventory"
	"github.com/erp/construction/internal/domain/procurement"
	"github.com/erp/construction/internal/domain/treasury"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appshared.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// gormRepositories hands out repositories bound to one *gorm.DB, which is a
// transaction inside Execute and the pool elsewhere.
type gormRepositories struct {
	db *gorm.DB
}

// NewRepositories returns repositories that run against db
func NewRepositories(db *gorm.DB) appshared.Repositories {
	return &gormRepositories{db: db}
}

// WorkOrders returns the work order repository
func (r *gormRepositories) WorkOrders() budget.WorkOrderRepository {
	return NewGormWorkOrderRepository(r.db)
}

// BudgetVersions returns the budget version repository
func (r *gormRepositories) BudgetVersions() budget.BudgetVersionRepository {
	return NewGormBudgetVersionRepository(r.db)
}

// BillingPeriods returns the billing period repository
func (r *gormRepositories) BillingPeriods() billing.BillingPeriodRepository {
	return NewGormBillingPeriodRepository(r.db)
}

// PurchaseOrders returns the purchase order repository
func (r *gormRepositories) PurchaseOrders() procurement.PurchaseOrderRepository {
	return NewGormPurchaseOrderRepository(r.db)
}

// StockItems returns the stock item repository
func (r *gormRepositories) StockItems() inventory.StockItemRepository {
	return NewGormStockItemRepository(r.db)
}

// BankAccounts returns the bank account repository
func (r *gormRepositories) BankAccounts() treasury.BankAccountRepository {
	return NewGormBankAccountRepository(r.db)
}

// CashTransactions returns the cash transaction repository
func (r *gormRepositories) CashTransactions() treasury.CashTransactionRepository {
	return NewGormCashTransactionRepository(r.db)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appshared.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormRepositories implements Repositories
var _ appshared.Repositories = (*gormRepositories)(nil)
