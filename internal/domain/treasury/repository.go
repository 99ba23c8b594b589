package treasury

import (
	"context"

	"github.com/erp/construction/internal/domain/shared"
	"github.com/google/uuid"
)

// BankAccountRepository defines persistence operations for bank accounts
type BankAccountRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*BankAccount, error)

	// FindByIDForUpdate loads the account and locks its row
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*BankAccount, error)

	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]BankAccount, int64, error)

	// Save creates or updates an account with an optimistic version check
	Save(ctx context.Context, a *BankAccount) error
}

// CashTransactionRepository stores the append-only transaction journal
type CashTransactionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*CashTransaction, error)

	// FindByAccount lists an account's transactions, optionally filtered by "kind"
	FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID, filter shared.Filter) ([]CashTransaction, int64, error)

	// Create inserts a transaction. Transactions are never updated.
	Create(ctx context.Context, tx *CashTransaction) error
}
