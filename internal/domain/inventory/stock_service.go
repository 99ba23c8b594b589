package inventory

import (
	"context"
	"errors"

	"github.com/erp/construction/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SourceTypePurchaseOrder marks movements caused by goods receipts
const SourceTypePurchaseOrder = "PURCHASE_ORDER"

// StockService applies stock movements through a repository. It is built per
// transaction so that receipts and stock changes commit together.
type StockService struct {
	repo StockItemRepository
}

// NewStockService creates a StockService
func NewStockService(repo StockItemRepository) *StockService {
	return &StockService{repo: repo}
}

// IncreaseStock adds quantity to the product's stock, creating the stock
// item on first receipt. Two first receipts of one product may race; the
// empty item is inserted if absent and then locked, so both end up updating
// the same row.
func (s *StockService) IncreaseStock(ctx context.Context, tenantID, productID uuid.UUID, quantity decimal.Decimal, sourceType string, sourceID uuid.UUID) (*StockItem, error) {
	item, err := s.repo.FindByProductForUpdate(ctx, tenantID, productID)
	if errors.Is(err, shared.ErrNotFound) {
		empty, newErr := NewStockItem(tenantID, productID)
		if newErr != nil {
			return nil, newErr
		}
		if err := s.repo.CreateIfAbsent(ctx, empty); err != nil {
			return nil, err
		}
		item, err = s.repo.FindByProductForUpdate(ctx, tenantID, productID)
	}
	if err != nil {
		return nil, err
	}

	if err := item.IncreaseStock(quantity, sourceType, sourceID); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}
