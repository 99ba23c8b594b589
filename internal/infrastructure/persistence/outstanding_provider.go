package persistence

import (
	"context"

	"github.com/erp/construction/internal/domain/billing"
	"github.com/erp/construction/internal/domain/procurement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormOutstandingProvider sums unpaid balances for the outstanding gauges
type GormOutstandingProvider struct {
	db *gorm.DB
}

// NewGormOutstandingProvider creates a new GormOutstandingProvider
func NewGormOutstandingProvider(db *gorm.DB) *GormOutstandingProvider {
	return &GormOutstandingProvider{db: db}
}

// GetOutstandingReceivable sums net_amount - paid over approved and invoiced periods
func (p *GormOutstandingProvider) GetOutstandingReceivable(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := p.db.WithContext(ctx).
		Table("billing_periods").
		Select("COALESCE(SUM(net_amount - paid), 0)").
		Where("tenant_id = ? AND status IN ?", tenantID, []string{
			string(billing.PeriodStatusApproved),
			string(billing.PeriodStatusInvoiced),
		}).
		Row().Scan(&total)
	return total, err
}

// GetOutstandingPayable sums total - paid over sent, partial and complete orders
func (p *GormOutstandingProvider) GetOutstandingPayable(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := p.db.WithContext(ctx).
		Table("purchase_orders").
		Select("COALESCE(SUM(total - paid), 0)").
		Where("tenant_id = ? AND status IN ?", tenantID, []string{
			string(procurement.OrderStatusSent),
			string(procurement.OrderStatusPartial),
			string(procurement.OrderStatusComplete),
		}).
		Row().Scan(&total)
	return total, err
}

// GetActiveTenantIDs lists tenants owning work orders, purchase orders or accounts
func (p *GormOutstandingProvider) GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var raw []string
	if err := p.db.WithContext(ctx).Raw(`
		SELECT tenant_id FROM work_orders
		UNION SELECT tenant_id FROM purchase_orders
		UNION SELECT tenant_id FROM bank_accounts`).
		Scan(&raw).Error; err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
