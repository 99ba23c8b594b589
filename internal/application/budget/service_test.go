package budget

import (
	"context"
	"sync"
	"testing"

	appshared "github.com/erp/construction/internal/application/shared"
	"github.com/erp/construction/internal/domain/shared"
	"github.com/erp/construction/internal/infrastructure/persistence"
	"github.com/erp/construction/internal/infrastructure/telemetry"
	"github.com/erp/construction/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	db := testutil.NewSQLiteDB(t)
	return NewService(persistence.NewRepositories(db), persistence.NewGormTransactionScope(db), nil), db
}

func createWorkOrder(t *testing.T, s *Service, tenantID uuid.UUID, code string) *WorkOrderResponse {
	t.Helper()
	wo, err := s.CreateWorkOrder(context.Background(), tenantID, CreateWorkOrderRequest{
		Code:           code,
		Name:           "Edificio " + code,
		AdvancePct:     decimal.NewFromInt(30),
		RetentionPct:   decimal.NewFromInt(5),
		ContractAmount: decimal.NewFromInt(2500000),
	})
	require.NoError(t, err)
	return wo
}

func TestService_CreateWorkOrder(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	tenantID := testutil.TestTenantID()

	wo := createWorkOrder(t, s, tenantID, "OB-100")
	assert.Equal(t, "OB-100", wo.Code)
	assert.Equal(t, tenantID, wo.TenantID)

	_, err := s.CreateWorkOrder(ctx, tenantID, CreateWorkOrderRequest{Code: "OB-100", Name: "Otra"})
	assert.ErrorIs(t, err, shared.ErrValidation)

	// codes are unique per tenant only
	_, err = s.CreateWorkOrder(ctx, testutil.OtherTenantID(), CreateWorkOrderRequest{Code: "OB-100", Name: "Otra"})
	assert.NoError(t, err)

	got, err := s.GetWorkOrder(ctx, tenantID, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, wo.ID, got.ID)

	_, err = s.GetWorkOrder(ctx, testutil.OtherTenantID(), wo.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = s.GetWorkOrder(ctx, tenantID, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	list, total, err := s.ListWorkOrders(ctx, tenantID, appshared.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, list, 1)
}

func TestService_VersionsAndLines(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	tenantID := testutil.TestTenantID()
	wo := createWorkOrder(t, s, tenantID, "OB-101")

	v1, err := s.CreateVersion(ctx, tenantID, wo.ID, CreateVersionRequest{Description: "original"})
	require.NoError(t, err)
	v2, err := s.CreateVersion(ctx, tenantID, wo.ID, CreateVersionRequest{Description: "ajuste"})
	require.NoError(t, err)
	assert.Equal(t, 1, v1.VersionNumber)
	assert.Equal(t, 2, v2.VersionNumber)
	assert.Equal(t, "v2", v2.Label)
	assert.False(t, v1.IsCurrent)

	_, err = s.AddLine(ctx, tenantID, v1.ID, AddLineRequest{
		Key: "EXC-01", Unit: "m3", Quantity: decimal.NewFromInt(100), UnitPrice: decimal.RequireFromString("50.00"),
	})
	require.NoError(t, err)
	_, err = s.AddLine(ctx, tenantID, v1.ID, AddLineRequest{
		Key: "ACE-02", Unit: "kg", Quantity: decimal.RequireFromString("2.5"), UnitPrice: decimal.RequireFromString("18.25"),
	})
	require.NoError(t, err)

	_, err = s.AddLine(ctx, tenantID, v1.ID, AddLineRequest{Key: "exc-01", Quantity: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, shared.ErrValidation)

	total, err := s.TotalAmount(ctx, tenantID, v1.ID)
	require.NoError(t, err)
	assert.True(t, total.TotalAmount.Equal(decimal.RequireFromString("5045.625")), total.TotalAmount.String())

	got, err := s.GetVersion(ctx, tenantID, v1.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 2)

	var steel uuid.UUID
	for _, l := range got.Lines {
		if l.Key == "ACE-02" {
			steel = l.ID
		}
	}
	require.NoError(t, s.RemoveLine(ctx, tenantID, steel))
	total, err = s.TotalAmount(ctx, tenantID, v1.ID)
	require.NoError(t, err)
	assert.True(t, total.TotalAmount.Equal(decimal.NewFromInt(5000)))

	versions, err := s.ListVersions(ctx, tenantID, wo.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, v2.ID, versions[0].ID)

	_, err = s.GetVersion(ctx, testutil.OtherTenantID(), v1.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)
	_, err = s.AddLine(ctx, testutil.OtherTenantID(), v1.ID, AddLineRequest{Key: "X", Quantity: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, shared.ErrForbidden)
	err = s.RemoveLine(ctx, testutil.OtherTenantID(), got.Lines[0].ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestService_MarkCurrent(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	tenantID := testutil.TestTenantID()
	wo := createWorkOrder(t, s, tenantID, "OB-102")

	v1, err := s.CreateVersion(ctx, tenantID, wo.ID, CreateVersionRequest{})
	require.NoError(t, err)
	v2, err := s.CreateVersion(ctx, tenantID, wo.ID, CreateVersionRequest{})
	require.NoError(t, err)

	marked, err := s.MarkCurrent(ctx, tenantID, wo.ID, v1.ID)
	require.NoError(t, err)
	assert.True(t, marked.IsCurrent)

	// marking the current version again is a no-op
	_, err = s.MarkCurrent(ctx, tenantID, wo.ID, v1.ID)
	require.NoError(t, err)

	_, err = s.MarkCurrent(ctx, tenantID, wo.ID, v2.ID)
	require.NoError(t, err)

	got1, err := s.GetVersion(ctx, tenantID, v1.ID)
	require.NoError(t, err)
	got2, err := s.GetVersion(ctx, tenantID, v2.ID)
	require.NoError(t, err)
	assert.False(t, got1.IsCurrent)
	assert.True(t, got2.IsCurrent)

	other := createWorkOrder(t, s, tenantID, "OB-103")
	_, err = s.MarkCurrent(ctx, tenantID, other.ID, v1.ID)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = s.MarkCurrent(ctx, testutil.OtherTenantID(), wo.ID, v1.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestService_MarkCurrentConcurrent(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	tenantID := testutil.TestTenantID()
	wo := createWorkOrder(t, s, tenantID, "OB-104")

	const n = 6
	ids := make([]uuid.UUID, n)
	for i := range ids {
		v, err := s.CreateVersion(ctx, tenantID, wo.ID, CreateVersionRequest{})
		require.NoError(t, err)
		ids[i] = v.ID
	}

	var wg sync.WaitGroup
	errs := make([]error, n*2)
	for i := 0; i < n*2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.MarkCurrent(ctx, tenantID, wo.ID, ids[i%n])
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		}
	}

	var current int64
	require.NoError(t, db.Table("budget_versions").
		Where("work_order_id = ? AND is_current = ?", wo.ID, true).
		Count(&current).Error)
	assert.Equal(t, int64(1), current)
}

func TestService_AddLines(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	tenantID := testutil.TestTenantID()
	wo := createWorkOrder(t, s, tenantID, "OB-110")
	v, err := s.CreateVersion(ctx, tenantID, wo.ID, CreateVersionRequest{})
	require.NoError(t, err)

	resp, err := s.AddLines(ctx, tenantID, v.ID, AddLinesRequest{Lines: []AddLineRequest{
		{Key: "EXC-01", Description: "Excavacion", Unit: "m3", Quantity: decimal.NewFromInt(100), UnitPrice: decimal.NewFromInt(50)},
		{Key: "CIM-02", Description: "Cimentacion", Unit: "m2", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(1000)},
	}})
	require.NoError(t, err)
	assert.Empty(t, resp.Errors)
	assert.Equal(t, 2, resp.Added)
	assert.True(t, resp.TotalAmount.Equal(decimal.NewFromInt(15000)))

	t.Run("rejected rows save nothing", func(t *testing.T) {
		resp, err := s.AddLines(ctx, tenantID, v.ID, AddLinesRequest{Lines: []AddLineRequest{
			{Key: "EST-03", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1)},
			{Key: "exc-01", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1)},
			{Key: "EST-03", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(1)},
		}})
		require.NoError(t, err)
		assert.Zero(t, resp.Added)
		require.Len(t, resp.Errors, 2)
		assert.Equal(t, 2, resp.Errors[0].Row)
		assert.Equal(t, 3, resp.Errors[1].Row)
		assert.Equal(t, shared.CodeValidation, resp.Errors[1].Code)

		got, err := s.GetVersion(ctx, tenantID, v.ID)
		require.NoError(t, err)
		assert.Len(t, got.Lines, 2)
		assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(15000)))
	})

	t.Run("empty batch", func(t *testing.T) {
		_, err := s.AddLines(ctx, tenantID, v.ID, AddLinesRequest{})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("other tenant", func(t *testing.T) {
		_, err := s.AddLines(ctx, testutil.OtherTenantID(), v.ID, AddLinesRequest{Lines: []AddLineRequest{
			{Key: "X", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1)},
		}})
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})
}

// counterTotal sums the points of an int64 counter whose attributes include match
func counterTotal(t *testing.T, reader *sdkmetric.ManualReader, name string, match ...attribute.KeyValue) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if m.Name != name || !ok {
				continue
			}
			for _, p := range sum.DataPoints {
				matched := true
				for _, kv := range match {
					if v, found := p.Attributes.Value(kv.Key); !found || v != kv.Value {
						matched = false
					}
				}
				if matched {
					total += p.Value
				}
			}
		}
	}
	return total
}

func TestService_RecordsFinanceMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	fm, err := telemetry.NewFinanceMetrics(telemetry.FinanceMetricsConfig{Meter: mp.Meter("test")})
	require.NoError(t, err)

	s, _ := newTestService(t)
	s.SetFinanceMetrics(fm)
	ctx := context.Background()
	tenantID := testutil.TestTenantID()
	wo := createWorkOrder(t, s, tenantID, "OB-120")
	v, err := s.CreateVersion(ctx, tenantID, wo.ID, CreateVersionRequest{})
	require.NoError(t, err)

	_, err = s.AddLine(ctx, tenantID, v.ID, AddLineRequest{Key: "EXC-01", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1)})
	require.NoError(t, err)
	_, err = s.AddLine(ctx, tenantID, v.ID, AddLineRequest{Key: "EXC-01", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, shared.ErrValidation)

	resp, err := s.AddLines(ctx, tenantID, v.ID, AddLinesRequest{Lines: []AddLineRequest{
		{Key: "exc-01", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1)},
		{Key: "CIM-02", Quantity: decimal.NewFromInt(-1), UnitPrice: decimal.NewFromInt(1)},
	}})
	require.NoError(t, err)
	require.Len(t, resp.Errors, 2)

	_, err = s.MarkCurrent(ctx, tenantID, wo.ID, v.ID)
	require.NoError(t, err)

	tenant := telemetry.AttrTenantID.String(tenantID.String())
	assert.Equal(t, int64(1), counterTotal(t, reader, "erp_budget_version_activated_total", tenant))
	assert.Equal(t, int64(1), counterTotal(t, reader, "erp_rejected_command_total",
		telemetry.AttrOperation.String("add_budget_line"), telemetry.AttrErrorCode.String(shared.CodeValidation)))
	assert.Equal(t, int64(2), counterTotal(t, reader, "erp_rejected_command_total",
		telemetry.AttrOperation.String("add_budget_lines")))
}
