package persistence

import (
	"context"

	"github.com/erp/construction/internal/domain/billing"
	"github.com/erp/construction/internal/domain/shared"
	"github.com/erp/construction/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormBillingPeriodRepository implements billing.BillingPeriodRepository using GORM
type GormBillingPeriodRepository struct {
	db *gorm.DB
}

// NewGormBillingPeriodRepository creates a new GormBillingPeriodRepository
func NewGormBillingPeriodRepository(db *gorm.DB) *GormBillingPeriodRepository {
	return &GormBillingPeriodRepository{db: db}
}

func preloadBillingLines(db *gorm.DB) *gorm.DB {
	return db.Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC, id ASC")
	})
}

// FindByID finds a period with its lines
func (r *GormBillingPeriodRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.BillingPeriod, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a period with its lines and locks the period row
func (r *GormBillingPeriodRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*billing.BillingPeriod, error) {
	return r.find(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *GormBillingPeriodRepository) find(db *gorm.DB, id uuid.UUID) (*billing.BillingPeriod, error) {
	var model models.BillingPeriodModel
	if err := preloadBillingLines(db).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindByWorkOrder lists the periods of a work order
func (r *GormBillingPeriodRepository) FindByWorkOrder(ctx context.Context, tenantID, workOrderID uuid.UUID, filter shared.Filter) ([]billing.BillingPeriod, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.BillingPeriodModel{}).
		Where("tenant_id = ? AND work_order_id = ?", tenantID, workOrderID)
	if status, ok := filter.Filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.BillingPeriodModel
	if err := applyPagination(preloadBillingLines(query), filter, BillingPeriodSortFields, "number").
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]billing.BillingPeriod, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, total, nil
}

// NextNumber returns max(number)+1 for the work order, cancelled periods included
func (r *GormBillingPeriodRepository) NextNumber(ctx context.Context, workOrderID uuid.UUID) (int, error) {
	var maxNumber int
	if err := r.db.WithContext(ctx).
		Model(&models.BillingPeriodModel{}).
		Select("COALESCE(MAX(number), 0)").
		Where("work_order_id = ?", workOrderID).
		Scan(&maxNumber).Error; err != nil {
		return 0, err
	}
	return maxNumber + 1, nil
}

type lineQuantity struct {
	BudgetLineID     uuid.UUID
	ExecutedQuantity models.Numeric
}

// PriorCumulative sums executed quantity per budget line over the
// non-cancelled periods numbered below beforeNumber. Quantities are summed
// in decimal rather than with SQL SUM, which sqlite evaluates in floating point.
func (r *GormBillingPeriodRepository) PriorCumulative(ctx context.Context, workOrderID uuid.UUID, beforeNumber int, budgetLineIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	out := make(map[uuid.UUID]decimal.Decimal, len(budgetLineIDs))
	if len(budgetLineIDs) == 0 {
		return out, nil
	}

	var rows []lineQuantity
	if err := r.db.WithContext(ctx).
		Table("billing_lines AS bl").
		Select("bl.budget_line_id AS budget_line_id, bl.executed_quantity AS executed_quantity").
		Joins("JOIN billing_periods AS bp ON bp.id = bl.billing_period_id").
		Where("bp.work_order_id = ? AND bp.number < ? AND bp.status <> ?", workOrderID, beforeNumber, string(billing.PeriodStatusCancelled)).
		Where("bl.budget_line_id IN ?", budgetLineIDs).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.BudgetLineID] = out[row.BudgetLineID].Add(row.ExecutedQuantity.Decimal)
	}
	return out, nil
}

// CommittedQuantity sums executed quantity of a budget line over every
// non-cancelled period except excludePeriodID. uuid.Nil excludes nothing.
func (r *GormBillingPeriodRepository) CommittedQuantity(ctx context.Context, budgetLineID, excludePeriodID uuid.UUID) (decimal.Decimal, error) {
	var rows []lineQuantity
	query := r.db.WithContext(ctx).
		Table("billing_lines AS bl").
		Select("bl.budget_line_id AS budget_line_id, bl.executed_quantity AS executed_quantity").
		Joins("JOIN billing_periods AS bp ON bp.id = bl.billing_period_id").
		Where("bl.budget_line_id = ? AND bp.status <> ?", budgetLineID, string(billing.PeriodStatusCancelled))
	if excludePeriodID != uuid.Nil {
		query = query.Where("bp.id <> ?", excludePeriodID)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.ExecutedQuantity.Decimal)
	}
	return total, nil
}

// CountByBudgetLine counts billing lines referencing a budget line in any period
func (r *GormBillingPeriodRepository) CountByBudgetLine(ctx context.Context, budgetLineID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.BillingLineModel{}).
		Where("budget_line_id = ?", budgetLineID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a period and synchronizes its lines
func (r *GormBillingPeriodRepository) Save(ctx context.Context, p *billing.BillingPeriod) error {
	model := models.BillingPeriodModelFromDomain(p)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveVersioned(tx, model, p.LoadedVersion()); err != nil {
			return err
		}
		ids := make([]uuid.UUID, len(model.Lines))
		for i := range model.Lines {
			ids[i] = model.Lines[i].ID
		}
		return syncChildren(tx, "billing_period_id", p.ID, ids, model.Lines)
	})
	if err != nil {
		return err
	}
	p.MarkPersisted()
	return nil
}

// Delete removes a period and its lines
func (r *GormBillingPeriodRepository) Delete(ctx context.Context, p *billing.BillingPeriod) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("billing_period_id = ?", p.ID).Delete(&models.BillingLineModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ? AND version = ?", p.ID, p.LoadedVersion()).Delete(&models.BillingPeriodModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errStaleVersion
		}
		return nil
	})
}

var _ billing.BillingPeriodRepository = (*GormBillingPeriodRepository)(nil)
