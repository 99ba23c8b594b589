package persistence

import (
	"context"
	"time"

	"github.com/erp/construction/internal/domain/budget"
	"github.com/erp/construction/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBudgetVersionRepository implements budget.BudgetVersionRepository using GORM
type GormBudgetVersionRepository struct {
	db *gorm.DB
}

// NewGormBudgetVersionRepository creates a new GormBudgetVersionRepository
func NewGormBudgetVersionRepository(db *gorm.DB) *GormBudgetVersionRepository {
	return &GormBudgetVersionRepository{db: db}
}

func preloadBudgetLines(db *gorm.DB) *gorm.DB {
	return db.Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC, id ASC")
	})
}

// FindByID finds a version with its lines
func (r *GormBudgetVersionRepository) FindByID(ctx context.Context, id uuid.UUID) (*budget.BudgetVersion, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a version with its lines and locks the version row
func (r *GormBudgetVersionRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*budget.BudgetVersion, error) {
	return r.find(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *GormBudgetVersionRepository) find(db *gorm.DB, id uuid.UUID) (*budget.BudgetVersion, error) {
	var model models.BudgetVersionModel
	if err := preloadBudgetLines(db).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindByWorkOrder lists the versions of a work order, newest first
func (r *GormBudgetVersionRepository) FindByWorkOrder(ctx context.Context, tenantID, workOrderID uuid.UUID) ([]budget.BudgetVersion, error) {
	var rows []models.BudgetVersionModel
	if err := preloadBudgetLines(r.db.WithContext(ctx)).
		Where("tenant_id = ? AND work_order_id = ?", tenantID, workOrderID).
		Order("version_number DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]budget.BudgetVersion, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// FindCurrent returns the current version of a work order
func (r *GormBudgetVersionRepository) FindCurrent(ctx context.Context, tenantID, workOrderID uuid.UUID) (*budget.BudgetVersion, error) {
	var model models.BudgetVersionModel
	if err := preloadBudgetLines(r.db.WithContext(ctx)).
		Where("tenant_id = ? AND work_order_id = ? AND is_current = ?", tenantID, workOrderID, true).
		First(&model).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// NextVersionNumber returns max(version_number)+1 for the work order
func (r *GormBudgetVersionRepository) NextVersionNumber(ctx context.Context, workOrderID uuid.UUID) (int, error) {
	var maxNumber int
	if err := r.db.WithContext(ctx).
		Model(&models.BudgetVersionModel{}).
		Select("COALESCE(MAX(version_number), 0)").
		Where("work_order_id = ?", workOrderID).
		Scan(&maxNumber).Error; err != nil {
		return 0, err
	}
	return maxNumber + 1, nil
}

// Save creates or updates a version and synchronizes its lines
func (r *GormBudgetVersionRepository) Save(ctx context.Context, v *budget.BudgetVersion) error {
	model := models.BudgetVersionModelFromDomain(v)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveVersioned(tx, model, v.LoadedVersion()); err != nil {
			return err
		}
		ids := make([]uuid.UUID, len(model.Lines))
		for i := range model.Lines {
			ids[i] = model.Lines[i].ID
		}
		return syncChildren(tx, "budget_version_id", v.ID, ids, model.Lines)
	})
	if err != nil {
		return err
	}
	v.MarkPersisted()
	return nil
}

// SetCurrent clears is_current on every sibling of v and persists v as current.
// The caller holds the work order lock, so no two SetCurrent calls for the
// same work order interleave.
func (r *GormBudgetVersionRepository) SetCurrent(ctx context.Context, v *budget.BudgetVersion) error {
	now := time.Now()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.BudgetVersionModel{}).
			Where("work_order_id = ? AND id <> ? AND is_current = ?", v.WorkOrderID, v.ID, true).
			Updates(map[string]any{
				"is_current": false,
				"version":    gorm.Expr("version + 1"),
				"updated_at": now,
			}).Error; err != nil {
			return err
		}
		if v.LoadedVersion() == v.Version {
			return nil
		}
		result := tx.Model(&models.BudgetVersionModel{}).
			Where("id = ? AND version = ?", v.ID, v.LoadedVersion()).
			Updates(map[string]any{
				"is_current": v.IsCurrent,
				"version":    v.Version,
				"updated_at": v.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errStaleVersion
		}
		return nil
	})
	if err != nil {
		return err
	}
	v.MarkPersisted()
	return nil
}

// FindLineByID finds a single budget line
func (r *GormBudgetVersionRepository) FindLineByID(ctx context.Context, lineID uuid.UUID) (*budget.BudgetLine, error) {
	return r.findLine(r.db.WithContext(ctx), lineID)
}

// FindLineByIDForUpdate finds a budget line and locks its row
func (r *GormBudgetVersionRepository) FindLineByIDForUpdate(ctx context.Context, lineID uuid.UUID) (*budget.BudgetLine, error) {
	return r.findLine(forUpdate(r.db.WithContext(ctx)), lineID)
}

func (r *GormBudgetVersionRepository) findLine(db *gorm.DB, lineID uuid.UUID) (*budget.BudgetLine, error) {
	var model models.BudgetLineModel
	if err := db.First(&model, "id = ?", lineID).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

var _ budget.BudgetVersionRepository = (*GormBudgetVersionRepository)(nil)
