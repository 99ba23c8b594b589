package persistence

import (
	"context"

	"github.com/erp/construction/internal/domain/inventory"
	"github.com/erp/construction/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockItemRepository implements inventory.StockItemRepository using GORM
type GormStockItemRepository struct {
	db *gorm.DB
}

// NewGormStockItemRepository creates a new GormStockItemRepository
func NewGormStockItemRepository(db *gorm.DB) *GormStockItemRepository {
	return &GormStockItemRepository{db: db}
}

// FindByProduct finds the tenant's stock item for a product
func (r *GormStockItemRepository) FindByProduct(ctx context.Context, tenantID, productID uuid.UUID) (*inventory.StockItem, error) {
	return r.find(r.db.WithContext(ctx), tenantID, productID)
}

// FindByProductForUpdate finds the tenant's stock item for a product and locks its row
func (r *GormStockItemRepository) FindByProductForUpdate(ctx context.Context, tenantID, productID uuid.UUID) (*inventory.StockItem, error) {
	return r.find(forUpdate(r.db.WithContext(ctx)), tenantID, productID)
}

func (r *GormStockItemRepository) find(db *gorm.DB, tenantID, productID uuid.UUID) (*inventory.StockItem, error) {
	var model models.StockItemModel
	if err := db.Where("tenant_id = ? AND product_id = ?", tenantID, productID).
		First(&model).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// Save creates or updates a stock item
func (r *GormStockItemRepository) Save(ctx context.Context, item *inventory.StockItem) error {
	model := models.StockItemModelFromDomain(item)
	if err := saveVersioned(r.db.WithContext(ctx), model, item.LoadedVersion()); err != nil {
		return err
	}
	item.MarkPersisted()
	return nil
}

// CreateIfAbsent inserts item unless the product already has a stock item.
// On postgres a concurrent uncommitted insert of the same product blocks the
// statement until that transaction ends.
func (r *GormStockItemRepository) CreateIfAbsent(ctx context.Context, item *inventory.StockItem) error {
	model := models.StockItemModelFromDomain(item)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "product_id"}},
		DoNothing: true,
	}).Create(model).Error
}

var _ inventory.StockItemRepository = (*GormStockItemRepository)(nil)
