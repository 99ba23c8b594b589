package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// FinanceMetrics tracks the financial core: budget version switches, billing
// transitions, goods receipts, cash movements, rejected commands and
// outstanding balances.
// A nil *FinanceMetrics is valid and records nothing.
type FinanceMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	budgetVersionTotal     *Counter
	billingTransitionTotal *Counter
	goodsReceiptTotal      *Counter
	cashTransactionTotal   *Counter
	cashAmountTotal        *Counter
	rejectedCommandTotal   *Counter
	cumulativeCacheTotal   *Counter

	// Gauge metrics (point-in-time values)
	outstandingReceivable *Gauge
	outstandingPayable    *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	outstandingProvider OutstandingProvider
}

// OutstandingProvider reports unpaid balances for periodic gauge collection
// without the telemetry layer depending on the domain.
type OutstandingProvider interface {
	// GetOutstandingReceivable sums net_amount − paid over collectable billing periods
	GetOutstandingReceivable(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error)

	// GetOutstandingPayable sums total − paid over payable purchase orders
	GetOutstandingPayable(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error)
}

// FinanceMetricsConfig holds configuration for finance metrics.
type FinanceMetricsConfig struct {
	Meter               metric.Meter
	Logger              *zap.Logger
	CollectInterval     time.Duration // Default: 5 minutes
	OutstandingProvider OutstandingProvider
}

// NewFinanceMetrics creates a new FinanceMetrics instance.
func NewFinanceMetrics(cfg FinanceMetricsConfig) (*FinanceMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	fm := &FinanceMetrics{
		meter:               cfg.Meter,
		logger:              logger,
		stopChan:            make(chan struct{}),
		outstandingProvider: cfg.OutstandingProvider,
	}

	counters := []struct {
		target      **Counter
		name        string
		description string
		unit        string
	}{
		{&fm.budgetVersionTotal, "erp_budget_version_activated_total", "Budget versions marked current", "{versions}"},
		{&fm.billingTransitionTotal, "erp_billing_period_transition_total", "Billing period status transitions", "{transitions}"},
		{&fm.goodsReceiptTotal, "erp_goods_receipt_total", "Goods receipts recorded against purchase orders", "{receipts}"},
		{&fm.cashTransactionTotal, "erp_cash_transaction_total", "Cash transactions applied to bank accounts", "{transactions}"},
		{&fm.cashAmountTotal, "erp_cash_amount_total", "Cash moved in centavos", "{centavos}"},
		{&fm.rejectedCommandTotal, "erp_rejected_command_total", "Commands rejected by a business rule", "{commands}"},
		{&fm.cumulativeCacheTotal, "erp_cumulative_cache_lookup_total", "Cumulative quantity cache lookups", "{lookups}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(cfg.Meter, c.name, c.description, c.unit)
		if err != nil {
			return nil, err
		}
		*c.target = counter
	}

	var err error
	fm.outstandingReceivable, err = NewGauge(
		cfg.Meter,
		"erp_outstanding_receivable",
		"Uncollected net amount of approved and invoiced billing periods in centavos",
		"{centavos}",
	)
	if err != nil {
		return nil, err
	}

	fm.outstandingPayable, err = NewGauge(
		cfg.Meter,
		"erp_outstanding_payable",
		"Unpaid total of purchase orders in centavos",
		"{centavos}",
	)
	if err != nil {
		return nil, err
	}

	return fm, nil
}

// RecordBudgetVersionActivated counts a budget version becoming the current one.
func (fm *FinanceMetrics) RecordBudgetVersionActivated(ctx context.Context, tenantID uuid.UUID) {
	if fm == nil {
		return
	}
	fm.budgetVersionTotal.Inc(ctx, AttrTenantID.String(tenantID.String()))
}

// RecordBillingTransition counts a billing period entering status.
func (fm *FinanceMetrics) RecordBillingTransition(ctx context.Context, tenantID uuid.UUID, status string) {
	if fm == nil {
		return
	}
	fm.billingTransitionTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrStatus.String(status),
	)
}

// RecordGoodsReceipt counts a receipt and the order status it produced.
func (fm *FinanceMetrics) RecordGoodsReceipt(ctx context.Context, tenantID uuid.UUID, status string) {
	if fm == nil {
		return
	}
	fm.goodsReceiptTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrStatus.String(status),
	)
}

// RecordCashTransaction records both transaction count and amount.
func (fm *FinanceMetrics) RecordCashTransaction(ctx context.Context, tenantID uuid.UUID, kind string, amount decimal.Decimal) {
	if fm == nil {
		return
	}
	attrs := []attribute.KeyValue{
		AttrTenantID.String(tenantID.String()),
		AttrTransactionKind.String(kind),
	}
	fm.cashTransactionTotal.Inc(ctx, attrs...)
	fm.cashAmountTotal.Add(ctx, toCentavos(amount), attrs...)
}

// RecordRejection counts a command refused with a domain error code.
func (fm *FinanceMetrics) RecordRejection(ctx context.Context, tenantID uuid.UUID, operation, code string) {
	if fm == nil {
		return
	}
	fm.rejectedCommandTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrOperation.String(operation),
		AttrErrorCode.String(code),
	)
}

// RecordCumulativeLookup counts a cumulative cache hit or miss.
func (fm *FinanceMetrics) RecordCumulativeLookup(ctx context.Context, hit bool) {
	if fm == nil {
		return
	}
	fm.cumulativeCacheTotal.Inc(ctx, AttrCacheHit.Bool(hit))
}

// RecordOutstanding records the outstanding gauges for a tenant.
func (fm *FinanceMetrics) RecordOutstanding(ctx context.Context, tenantID uuid.UUID, receivable, payable decimal.Decimal) {
	if fm == nil {
		return
	}
	fm.outstandingReceivable.Record(ctx, toCentavos(receivable), AttrTenantID.String(tenantID.String()))
	fm.outstandingPayable.Record(ctx, toCentavos(payable), AttrTenantID.String(tenantID.String()))
}

func toCentavos(amount decimal.Decimal) int64 {
	return amount.Shift(2).IntPart()
}

// =============================================================================
// Periodic Collection
// =============================================================================

// TenantProvider provides tenant IDs for periodic metrics collection.
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StartPeriodicCollection starts periodic collection of the outstanding gauges.
// This is non-blocking - use Stop() to stop collection.
func (fm *FinanceMetrics) StartPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	if fm == nil {
		return
	}
	fm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go fm.runPeriodicCollection(ctx, tenantProvider, interval)
	})
}

func (fm *FinanceMetrics) runPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fm.collectOutstanding(ctx, tenantProvider)

	for {
		select {
		case <-fm.stopChan:
			fm.logger.Info("Stopping periodic finance metrics collection")
			return
		case <-ctx.Done():
			fm.logger.Info("Context cancelled, stopping periodic finance metrics collection")
			return
		case <-ticker.C:
			fm.collectOutstanding(ctx, tenantProvider)
		}
	}
}

func (fm *FinanceMetrics) collectOutstanding(ctx context.Context, tenantProvider TenantProvider) {
	if fm.outstandingProvider == nil {
		fm.logger.Debug("No outstanding provider configured, skipping collection")
		return
	}

	tenantIDs, err := tenantProvider.GetActiveTenantIDs(ctx)
	if err != nil {
		fm.logger.Error("Failed to get tenant IDs for metrics collection", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		receivable, err := fm.outstandingProvider.GetOutstandingReceivable(ctx, tenantID)
		if err != nil {
			fm.logger.Warn("Failed to get outstanding receivable",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
			continue
		}
		payable, err := fm.outstandingProvider.GetOutstandingPayable(ctx, tenantID)
		if err != nil {
			fm.logger.Warn("Failed to get outstanding payable",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
			continue
		}
		fm.RecordOutstanding(ctx, tenantID, receivable, payable)
	}
}

// Stop stops the periodic collection.
func (fm *FinanceMetrics) Stop() {
	if fm == nil {
		return
	}
	fm.stopOnce.Do(func() {
		close(fm.stopChan)
	})
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewFinanceMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
