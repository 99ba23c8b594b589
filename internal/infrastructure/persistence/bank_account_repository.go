package persistence

import (
	"context"

	"github.com/erp/construction/internal/domain/shared"
	"github.com/erp/construction/internal/domain/treasury"
	"github.com/erp/construction/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBankAccountRepository implements treasury.BankAccountRepository using GORM
type GormBankAccountRepository struct {
	db *gorm.DB
}

// NewGormBankAccountRepository creates a new GormBankAccountRepository
func NewGormBankAccountRepository(db *gorm.DB) *GormBankAccountRepository {
	return &GormBankAccountRepository{db: db}
}

// FindByID finds a bank account by its ID
func (r *GormBankAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*treasury.BankAccount, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a bank account and locks its row
func (r *GormBankAccountRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*treasury.BankAccount, error) {
	return r.find(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *GormBankAccountRepository) find(db *gorm.DB, id uuid.UUID) (*treasury.BankAccount, error) {
	var model models.BankAccountModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists a tenant's bank accounts
func (r *GormBankAccountRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]treasury.BankAccount, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.BankAccountModel{}).Where("tenant_id = ?", tenantID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.BankAccountModel
	if err := applyPagination(query, filter, BankAccountSortFields, "created_at").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]treasury.BankAccount, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, total, nil
}

// Save creates or updates a bank account
func (r *GormBankAccountRepository) Save(ctx context.Context, a *treasury.BankAccount) error {
	model := models.BankAccountModelFromDomain(a)
	if err := saveVersioned(r.db.WithContext(ctx), model, a.LoadedVersion()); err != nil {
		return err
	}
	a.MarkPersisted()
	return nil
}

var _ treasury.BankAccountRepository = (*GormBankAccountRepository)(nil)

// GormCashTransactionRepository implements treasury.CashTransactionRepository using GORM
type GormCashTransactionRepository struct {
	db *gorm.DB
}

// NewGormCashTransactionRepository creates a new GormCashTransactionRepository
func NewGormCashTransactionRepository(db *gorm.DB) *GormCashTransactionRepository {
	return &GormCashTransactionRepository{db: db}
}

// FindByID finds a cash transaction by its ID
func (r *GormCashTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*treasury.CashTransaction, error) {
	var model models.CashTransactionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindByAccount lists an account's journal, newest first by default
func (r *GormCashTransactionRepository) FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID, filter shared.Filter) ([]treasury.CashTransaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.CashTransactionModel{}).
		Where("tenant_id = ? AND bank_account_id = ?", tenantID, accountID)
	if kind, ok := filter.Filters["kind"].(string); ok && kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.CashTransactionModel
	if err := applyPagination(query, filter, CashTransactionSortFields, "created_at").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]treasury.CashTransaction, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, total, nil
}

// Create appends a transaction to the journal
func (r *GormCashTransactionRepository) Create(ctx context.Context, tx *treasury.CashTransaction) error {
	return r.db.WithContext(ctx).Create(models.CashTransactionModelFromDomain(tx)).Error
}

var _ treasury.CashTransactionRepository = (*GormCashTransactionRepository)(nil)
