// Package shared holds the ports every application service depends on.
package shared

import (
	"context"

	"github.com/erp/construction/internal/domain/billing"
	"github.com/erp/construction/internal/domain/budget"
	"github.com/erp/construction/internal/domain/inventory"
	"github.com/erp/construction/internal/domain/procurement"
	"github.com/erp/construction/internal/domain/treasury"
)

// TransactionScope provides transactional access to repositories.
// When a function is executed within a transaction scope, all repository operations
// will be part of the same database transaction and will be committed or rolled back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories provides access to every aggregate repository. Inside
// TransactionScope.Execute all of them share the same database transaction.
type Repositories interface {
	WorkOrders() budget.WorkOrderRepository
	BudgetVersions() budget.BudgetVersionRepository
	BillingPeriods() billing.BillingPeriodRepository
	PurchaseOrders() procurement.PurchaseOrderRepository
	StockItems() inventory.StockItemRepository
	BankAccounts() treasury.BankAccountRepository
	CashTransactions() treasury.CashTransactionRepository
}

// NoOpTransactionScope runs the function against fixed repositories without
// a real transaction. Useful for tests with mocked repositories.
type NoOpTransactionScope struct {
	repos Repositories
}

// NewNoOpTransactionScope creates a NoOpTransactionScope
func NewNoOpTransactionScope(repos Repositories) *NoOpTransactionScope {
	return &NoOpTransactionScope{repos: repos}
}

// Execute runs fn directly
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos Repositories) error) error {
	return fn(s.repos)
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
