package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/erp/construction/internal/domain/billing"
	"github.com/erp/construction/internal/domain/procurement"
	"github.com/erp/construction/internal/infrastructure/persistence"
	"github.com/erp/construction/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormOutstandingProvider(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	provider := persistence.NewGormOutstandingProvider(f.db)

	receivable, err := provider.GetOutstandingReceivable(ctx, f.tenantID)
	require.NoError(t, err)
	assert.True(t, receivable.IsZero())

	wo := f.workOrder(t, "OB-001")
	v := f.version(t, wo, 1, map[string][2]string{"EXC-01": {"100", "50"}})

	approved, err := billing.NewBillingPeriod(f.tenantID, wo, v.ID, 1, "marzo", time.Now())
	require.NoError(t, err)
	_, err = approved.AddLine(&v.Lines[0], dec("40"), billing.Allocation{})
	require.NoError(t, err)
	require.NoError(t, approved.Submit())
	require.NoError(t, approved.Approve())
	require.NoError(t, f.repos.BillingPeriods().Save(ctx, approved))

	// drafts are not collectable yet
	draft, err := billing.NewBillingPeriod(f.tenantID, wo, v.ID, 2, "abril", time.Now())
	require.NoError(t, err)
	_, err = draft.AddLine(&v.Lines[0], dec("10"), billing.Allocation{Prior: dec("40")})
	require.NoError(t, err)
	require.NoError(t, f.repos.BillingPeriods().Save(ctx, draft))

	// gross 2000, 10% amortization, 5% retention
	receivable, err = provider.GetOutstandingReceivable(ctx, f.tenantID)
	require.NoError(t, err)
	assertDecimal(t, "1700", receivable)

	sent, err := procurement.NewPurchaseOrder(f.tenantID, 1, uuid.New(), "")
	require.NoError(t, err)
	_, err = sent.AddLine(uuid.New(), "cemento", "bulto", dec("10"), dec("250"))
	require.NoError(t, err)
	require.NoError(t, sent.Send())
	require.NoError(t, f.repos.PurchaseOrders().Save(ctx, sent))

	unsent, err := procurement.NewPurchaseOrder(f.tenantID, 2, uuid.New(), "")
	require.NoError(t, err)
	_, err = unsent.AddLine(uuid.New(), "varilla", "ton", dec("1"), dec("18000"))
	require.NoError(t, err)
	require.NoError(t, f.repos.PurchaseOrders().Save(ctx, unsent))

	payable, err := provider.GetOutstandingPayable(ctx, f.tenantID)
	require.NoError(t, err)
	assertDecimal(t, "2900", payable)

	payable, err = provider.GetOutstandingPayable(ctx, testutil.OtherTenantID())
	require.NoError(t, err)
	assert.True(t, payable.IsZero())

	tenants, err := provider.GetActiveTenantIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.tenantID}, tenants)
}
