package persistence

import (
	"context"

	"github.com/erp/construction/internal/domain/procurement"
	"github.com/erp/construction/internal/domain/shared"
	"github.com/erp/construction/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// purchaseOrderSequence names the folio series in document_sequences
const purchaseOrderSequence = "purchase_order"

// GormPurchaseOrderRepository implements procurement.PurchaseOrderRepository using GORM
type GormPurchaseOrderRepository struct {
	db *gorm.DB
}

// NewGormPurchaseOrderRepository creates a new GormPurchaseOrderRepository
func NewGormPurchaseOrderRepository(db *gorm.DB) *GormPurchaseOrderRepository {
	return &GormPurchaseOrderRepository{db: db}
}

func preloadOrderLines(db *gorm.DB) *gorm.DB {
	return db.Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC, id ASC")
	})
}

// FindByID finds an order with its lines
func (r *GormPurchaseOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*procurement.PurchaseOrder, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds an order with its lines and locks the order row
func (r *GormPurchaseOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*procurement.PurchaseOrder, error) {
	return r.find(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *GormPurchaseOrderRepository) find(db *gorm.DB, id uuid.UUID) (*procurement.PurchaseOrder, error) {
	var model models.PurchaseOrderModel
	if err := preloadOrderLines(db).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists a tenant's orders
func (r *GormPurchaseOrderRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]procurement.PurchaseOrder, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PurchaseOrderModel{}).Where("tenant_id = ?", tenantID)
	if status, ok := filter.Filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}
	if supplierID, ok := filter.Filters["supplier_id"].(uuid.UUID); ok && supplierID != uuid.Nil {
		query = query.Where("supplier_id = ?", supplierID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.PurchaseOrderModel
	if err := applyPagination(preloadOrderLines(query), filter, PurchaseOrderSortFields, "created_at").
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]procurement.PurchaseOrder, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, total, nil
}

// NextFolio increments the tenant's purchase order sequence and returns the
// new value. The upsert leaves the sequence row locked until the surrounding
// transaction ends, so folios are gap-free among committed orders.
func (r *GormPurchaseOrderRepository) NextFolio(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var folio int64
	err := r.db.WithContext(ctx).Raw(
		`INSERT INTO document_sequences (tenant_id, name, value) VALUES (?, ?, 1)
		 ON CONFLICT (tenant_id, name) DO UPDATE SET value = document_sequences.value + 1
		 RETURNING value`,
		tenantID, purchaseOrderSequence,
	).Scan(&folio).Error
	if err != nil {
		return 0, err
	}
	return folio, nil
}

// Save creates or updates an order and synchronizes its lines
func (r *GormPurchaseOrderRepository) Save(ctx context.Context, o *procurement.PurchaseOrder) error {
	model := models.PurchaseOrderModelFromDomain(o)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveVersioned(tx, model, o.LoadedVersion()); err != nil {
			return err
		}
		ids := make([]uuid.UUID, len(model.Lines))
		for i := range model.Lines {
			ids[i] = model.Lines[i].ID
		}
		return syncChildren(tx, "order_id", o.ID, ids, model.Lines)
	})
	if err != nil {
		return err
	}
	o.MarkPersisted()
	return nil
}

var _ procurement.PurchaseOrderRepository = (*GormPurchaseOrderRepository)(nil)
