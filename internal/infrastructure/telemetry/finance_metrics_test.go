package telemetry_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/construction/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type stubOutstanding struct {
	mu         sync.Mutex
	calls      int
	receivable decimal.Decimal
	payable    decimal.Decimal
	err        error
}

func (s *stubOutstanding) GetOutstandingReceivable(context.Context, uuid.UUID) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.receivable, s.err
}

func (s *stubOutstanding) GetOutstandingPayable(context.Context, uuid.UUID) (decimal.Decimal, error) {
	return s.payable, s.err
}

func (s *stubOutstanding) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubTenants []uuid.UUID

func (s stubTenants) GetActiveTenantIDs(context.Context) ([]uuid.UUID, error) {
	return s, nil
}

func TestNewFinanceMetrics_RequiresMeter(t *testing.T) {
	_, err := telemetry.NewFinanceMetrics(telemetry.FinanceMetricsConfig{})
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
}

func TestFinanceMetrics_NilIsNoop(t *testing.T) {
	var fm *telemetry.FinanceMetrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		fm.RecordBudgetVersionActivated(ctx, uuid.New())
		fm.RecordBillingTransition(ctx, uuid.New(), "APPROVED")
		fm.RecordGoodsReceipt(ctx, uuid.New(), "PARTIAL")
		fm.RecordCashTransaction(ctx, uuid.New(), "INCOME", decimal.NewFromInt(1))
		fm.RecordRejection(ctx, uuid.New(), "receive", "OVER_RECEIPT")
		fm.RecordCumulativeLookup(ctx, true)
		fm.StartPeriodicCollection(ctx, stubTenants{}, time.Second)
		fm.Stop()
	})
}

func TestFinanceMetrics_Counters(t *testing.T) {
	reader, mp := newManualMeter(t)
	fm, err := telemetry.NewFinanceMetrics(telemetry.FinanceMetricsConfig{Meter: mp.Meter("test")})
	require.NoError(t, err)

	ctx := context.Background()
	tenantID := uuid.New()
	fm.RecordBudgetVersionActivated(ctx, tenantID)
	fm.RecordBillingTransition(ctx, tenantID, "PENDING")
	fm.RecordBillingTransition(ctx, tenantID, "APPROVED")
	fm.RecordGoodsReceipt(ctx, tenantID, "PARTIAL")
	fm.RecordCashTransaction(ctx, tenantID, "EXPENSE", decimal.RequireFromString("2900.55"))
	fm.RecordCashTransaction(ctx, tenantID, "INCOME", decimal.RequireFromString("1300"))
	fm.RecordRejection(ctx, tenantID, "apply_transaction", "OVERPAYMENT")
	fm.RecordCumulativeLookup(ctx, true)
	fm.RecordCumulativeLookup(ctx, false)
	fm.RecordCumulativeLookup(ctx, false)

	data := collect(t, reader)
	tenant := telemetry.AttrTenantID.String(tenantID.String())
	assert.Equal(t, int64(1), int64Total(data["erp_budget_version_activated_total"], tenant))
	assert.Equal(t, int64(2), int64Total(data["erp_billing_period_transition_total"], tenant))
	assert.Equal(t, int64(1), int64Total(data["erp_billing_period_transition_total"], telemetry.AttrStatus.String("APPROVED")))
	assert.Equal(t, int64(1), int64Total(data["erp_goods_receipt_total"], tenant))
	assert.Equal(t, int64(2), int64Total(data["erp_cash_transaction_total"], tenant))
	assert.Equal(t, int64(290055), int64Total(data["erp_cash_amount_total"], telemetry.AttrTransactionKind.String("EXPENSE")))
	assert.Equal(t, int64(1), int64Total(data["erp_rejected_command_total"], telemetry.AttrErrorCode.String("OVERPAYMENT")))
	assert.Equal(t, int64(2), int64Total(data["erp_cumulative_cache_lookup_total"], telemetry.AttrCacheHit.Bool(false)))
}

func TestFinanceMetrics_PeriodicCollection(t *testing.T) {
	reader, mp := newManualMeter(t)
	provider := &stubOutstanding{
		receivable: decimal.RequireFromString("1300.25"),
		payable:    decimal.NewFromInt(2900),
	}
	fm, err := telemetry.NewFinanceMetrics(telemetry.FinanceMetricsConfig{
		Meter:               mp.Meter("test"),
		OutstandingProvider: provider,
	})
	require.NoError(t, err)

	tenantID := uuid.New()
	fm.StartPeriodicCollection(context.Background(), stubTenants{tenantID}, time.Hour)
	defer fm.Stop()

	tenant := telemetry.AttrTenantID.String(tenantID.String())
	require.Eventually(t, func() bool {
		var rm metricdata.ResourceMetrics
		if err := reader.Collect(context.Background(), &rm); err != nil {
			return false
		}
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				if m.Name == "erp_outstanding_payable" {
					return true
				}
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)

	data := collect(t, reader)
	assert.Equal(t, int64(130025), int64Total(data["erp_outstanding_receivable"], tenant))
	assert.Equal(t, int64(290000), int64Total(data["erp_outstanding_payable"], tenant))

	fm.Stop()
	fm.Stop()
}

func TestFinanceMetrics_ProviderErrorSkipsTenant(t *testing.T) {
	reader, mp := newManualMeter(t)
	provider := &stubOutstanding{err: errors.New("connection refused")}
	fm, err := telemetry.NewFinanceMetrics(telemetry.FinanceMetricsConfig{
		Meter:               mp.Meter("test"),
		OutstandingProvider: provider,
	})
	require.NoError(t, err)

	fm.StartPeriodicCollection(context.Background(), stubTenants{uuid.New()}, time.Hour)
	defer fm.Stop()
	require.Eventually(t, func() bool { return provider.callCount() >= 1 }, time.Second, 10*time.Millisecond)

	_, recorded := collect(t, reader)["erp_outstanding_receivable"]
	assert.False(t, recorded)
}
