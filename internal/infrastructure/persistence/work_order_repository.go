package persistence

import (
	"context"

	"github.com/erp/construction/internal/domain/budget"
	"github.com/erp/construction/internal/domain/shared"
	"github.com/erp/construction/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormWorkOrderRepository implements budget.WorkOrderRepository using GORM
type GormWorkOrderRepository struct {
	db *gorm.DB
}

// NewGormWorkOrderRepository creates a new GormWorkOrderRepository
func NewGormWorkOrderRepository(db *gorm.DB) *GormWorkOrderRepository {
	return &GormWorkOrderRepository{db: db}
}

// FindByID finds a work order by its ID
func (r *GormWorkOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*budget.WorkOrder, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a work order and locks its row
func (r *GormWorkOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*budget.WorkOrder, error) {
	return r.find(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *GormWorkOrderRepository) find(db *gorm.DB, id uuid.UUID) (*budget.WorkOrder, error) {
	var model models.WorkOrderModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists a tenant's work orders
func (r *GormWorkOrderRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]budget.WorkOrder, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.WorkOrderModel{}).Where("tenant_id = ?", tenantID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.WorkOrderModel
	if err := applyPagination(query, filter, WorkOrderSortFields, "created_at").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]budget.WorkOrder, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, total, nil
}

// ExistsByCode checks whether the tenant already uses a work order code
func (r *GormWorkOrderRepository) ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.WorkOrderModel{}).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a work order
func (r *GormWorkOrderRepository) Save(ctx context.Context, wo *budget.WorkOrder) error {
	model := models.WorkOrderModelFromDomain(wo)
	if err := saveVersioned(r.db.WithContext(ctx), model, wo.LoadedVersion()); err != nil {
		return err
	}
	wo.MarkPersisted()
	return nil
}

var _ budget.WorkOrderRepository = (*GormWorkOrderRepository)(nil)
