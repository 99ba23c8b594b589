package persistence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/construction/internal/application/shared"
	"github.com/erp/construction/internal/domain/billing"
	"github.com/erp/construction/internal/domain/budget"
	"github.com/erp/construction/internal/domain/inventory"
	"github.com/erp/construction/internal/domain/procurement"
	domain "github.com/erp/construction/internal/domain/shared"
	"github.com/erp/construction/internal/domain/shared/valueobject"
	"github.com/erp/construction/internal/domain/treasury"
	"github.com/erp/construction/internal/infrastructure/persistence"
	"github.com/erp/construction/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(expected).Equal(actual), "expected %s, got %s", expected, actual.String())
}

type fixture struct {
	db       *gorm.DB
	repos    shared.Repositories
	tenantID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	db := testutil.NewSQLiteDB(t)
	return &fixture{
		db:       db,
		repos:    persistence.NewRepositories(db),
		tenantID: testutil.TestTenantID(),
	}
}

func (f *fixture) workOrder(t *testing.T, code string) *budget.WorkOrder {
	t.Helper()
	wo, err := budget.NewWorkOrder(f.tenantID, code, "Torre "+code, "Cliente", dec("10"), dec("5"), dec("1000000"))
	require.NoError(t, err)
	require.NoError(t, f.repos.WorkOrders().Save(context.Background(), wo))
	return wo
}

func (f *fixture) version(t *testing.T, wo *budget.WorkOrder, number int, lines map[string][2]string) *budget.BudgetVersion {
	t.Helper()
	v, err := budget.NewBudgetVersion(f.tenantID, wo.ID, number, "")
	require.NoError(t, err)
	for key, ql := range lines {
		_, err := v.AddLine(key, "concepto "+key, "m3", dec(ql[0]), dec(ql[1]))
		require.NoError(t, err)
	}
	require.NoError(t, f.repos.BudgetVersions().Save(context.Background(), v))
	return v
}

func TestWorkOrderRepository_SaveAndFind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wo := f.workOrder(t, "OB-001")

	loaded, err := f.repos.WorkOrders().FindByID(ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, "OB-001", loaded.Code)
	assert.Equal(t, f.tenantID, loaded.TenantID)
	assertDecimal(t, "10", loaded.AdvancePct)
	assert.Equal(t, loaded.Version, loaded.LoadedVersion())

	exists, err := f.repos.WorkOrders().ExistsByCode(ctx, f.tenantID, "OB-001")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = f.repos.WorkOrders().ExistsByCode(ctx, testutil.OtherTenantID(), "OB-001")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = f.repos.WorkOrders().FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWorkOrderRepository_FindAllForTenant(t *testing.T) {
	f := newFixture(t)
	f.workOrder(t, "OB-001")
	f.workOrder(t, "OB-002")

	filter := domain.DefaultFilter()
	filter.OrderBy, filter.OrderDir = "code", "asc"
	orders, total, err := f.repos.WorkOrders().FindAllForTenant(context.Background(), f.tenantID, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, orders, 2)
	assert.Equal(t, "OB-001", orders[0].Code)

	orders, total, err = f.repos.WorkOrders().FindAllForTenant(context.Background(), testutil.OtherTenantID(), filter)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, orders)
}

func TestBudgetVersionRepository_LinesRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wo := f.workOrder(t, "OB-001")
	v := f.version(t, wo, 1, map[string][2]string{"EXC-01": {"100", "50.00"}})

	loaded, err := f.repos.BudgetVersions().FindByID(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Lines, 1)
	assertDecimal(t, "5000", loaded.TotalAmount())

	_, err = loaded.AddLine("CIM-02", "cimbra", "m2", dec("10"), dec("12.5"))
	require.NoError(t, err)
	require.NoError(t, f.repos.BudgetVersions().Save(ctx, loaded))

	reloaded, err := f.repos.BudgetVersions().FindByID(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Lines, 2)
	assertDecimal(t, "5125", reloaded.TotalAmount())

	excavation := reloaded.Lines[0].ID
	if reloaded.Lines[0].Key != "EXC-01" {
		excavation = reloaded.Lines[1].ID
	}
	require.NoError(t, reloaded.RemoveLine(excavation))
	require.NoError(t, f.repos.BudgetVersions().Save(ctx, reloaded))

	final, err := f.repos.BudgetVersions().FindByID(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, final.Lines, 1)
	assert.Equal(t, "CIM-02", final.Lines[0].Key)

	_, err = f.repos.BudgetVersions().FindLineByID(ctx, excavation)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBudgetVersionRepository_NextVersionNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wo := f.workOrder(t, "OB-001")

	n, err := f.repos.BudgetVersions().NextVersionNumber(ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f.version(t, wo, 1, nil)
	f.version(t, wo, 2, nil)
	n, err = f.repos.BudgetVersions().NextVersionNumber(ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	versions, err := f.repos.BudgetVersions().FindByWorkOrder(ctx, f.tenantID, wo.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].VersionNumber)
}

func TestBudgetVersionRepository_SetCurrentMovesFlag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wo := f.workOrder(t, "OB-001")
	v1 := f.version(t, wo, 1, nil)
	v2 := f.version(t, wo, 2, nil)

	_, err := f.repos.BudgetVersions().FindCurrent(ctx, f.tenantID, wo.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, v1.MarkCurrent(wo.ID))
	require.NoError(t, f.repos.BudgetVersions().SetCurrent(ctx, v1))
	current, err := f.repos.BudgetVersions().FindCurrent(ctx, f.tenantID, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, v1.ID, current.ID)

	require.NoError(t, v2.MarkCurrent(wo.ID))
	require.NoError(t, f.repos.BudgetVersions().SetCurrent(ctx, v2))
	current, err = f.repos.BudgetVersions().FindCurrent(ctx, f.tenantID, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, v2.ID, current.ID)

	var count int64
	require.NoError(t, f.db.Table("budget_versions").Where("work_order_id = ? AND is_current = ?", wo.ID, true).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// v1 was bumped by SetCurrent, so the stale copy in memory conflicts
	v1.Description = "stale edit"
	v1.IncrementVersion()
	err = f.repos.BudgetVersions().Save(ctx, v1)
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
}

func TestSave_StaleVersionConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wo := f.workOrder(t, "OB-001")

	a, err := f.repos.WorkOrders().FindByID(ctx, wo.ID)
	require.NoError(t, err)
	b, err := f.repos.WorkOrders().FindByID(ctx, wo.ID)
	require.NoError(t, err)

	a.Name = "first"
	a.IncrementVersion()
	require.NoError(t, f.repos.WorkOrders().Save(ctx, a))

	b.Name = "second"
	b.IncrementVersion()
	err = f.repos.WorkOrders().Save(ctx, b)
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	final, err := f.repos.WorkOrders().FindByID(ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", final.Name)
}

func TestBillingPeriodRepository_CumulativeQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wo := f.workOrder(t, "OB-001")
	v := f.version(t, wo, 1, map[string][2]string{"EXC-01": {"100", "50.00"}})
	line := &v.Lines[0]
	cutoff := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	addPeriod := func(number int, qty string) *billing.BillingPeriod {
		p, err := billing.NewBillingPeriod(f.tenantID, wo, v.ID, number, "P"+qty, cutoff)
		require.NoError(t, err)
		_, err = p.AddLine(line, dec(qty), billing.Allocation{})
		require.NoError(t, err)
		require.NoError(t, f.repos.BillingPeriods().Save(ctx, p))
		return p
	}

	p1 := addPeriod(1, "40")
	p2 := addPeriod(2, "30")
	addPeriod(3, "20")

	prior, err := f.repos.BillingPeriods().PriorCumulative(ctx, wo.ID, 3, []uuid.UUID{line.ID})
	require.NoError(t, err)
	assertDecimal(t, "70", prior[line.ID])

	prior, err = f.repos.BillingPeriods().PriorCumulative(ctx, wo.ID, 1, []uuid.UUID{line.ID})
	require.NoError(t, err)
	_, ok := prior[line.ID]
	assert.False(t, ok)

	committed, err := f.repos.BillingPeriods().CommittedQuantity(ctx, line.ID, uuid.Nil)
	require.NoError(t, err)
	assertDecimal(t, "90", committed)

	committed, err = f.repos.BillingPeriods().CommittedQuantity(ctx, line.ID, p1.ID)
	require.NoError(t, err)
	assertDecimal(t, "50", committed)

	require.NoError(t, p2.Cancel("captura duplicada"))
	require.NoError(t, f.repos.BillingPeriods().Save(ctx, p2))

	committed, err = f.repos.BillingPeriods().CommittedQuantity(ctx, line.ID, uuid.Nil)
	require.NoError(t, err)
	assertDecimal(t, "60", committed)

	prior, err = f.repos.BillingPeriods().PriorCumulative(ctx, wo.ID, 3, []uuid.UUID{line.ID})
	require.NoError(t, err)
	assertDecimal(t, "40", prior[line.ID])

	refs, err := f.repos.BillingPeriods().CountByBudgetLine(ctx, line.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), refs)

	next, err := f.repos.BillingPeriods().NextNumber(ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, next)

	byNumber := domain.DefaultFilter()
	byNumber.OrderBy, byNumber.OrderDir = "number", "asc"
	periods, total, err := f.repos.BillingPeriods().FindByWorkOrder(ctx, f.tenantID, wo.ID, byNumber)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, periods, 3)
	assert.Equal(t, 1, periods[0].Number)

	filter := domain.DefaultFilter()
	filter.Filters["status"] = billing.PeriodStatusCancelled.String()
	periods, total, err = f.repos.BillingPeriods().FindByWorkOrder(ctx, f.tenantID, wo.ID, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, p2.ID, periods[0].ID)
}

func TestRepositories_DecimalsReloadExactly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wo := f.workOrder(t, "OB-001")
	v := f.version(t, wo, 1, map[string][2]string{
		"EST-01": {"1234567.8912", "9876.5432"},
		"ACB-02": {"0.3333", "0.33"},
	})

	loaded, err := f.repos.BudgetVersions().FindByID(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Lines, 2)
	amounts := map[string]string{}
	for _, l := range loaded.Lines {
		amounts[l.Key] = l.Amount.String()
	}
	assert.Equal(t, "12193263110.76969984", amounts["EST-01"])
	assert.Equal(t, "0.109989", amounts["ACB-02"])

	var line *budget.BudgetLine
	for i := range loaded.Lines {
		if loaded.Lines[i].Key == "ACB-02" {
			line = &loaded.Lines[i]
		}
	}
	require.NotNil(t, line)
	p, err := billing.NewBillingPeriod(f.tenantID, wo, v.ID, 1, "P1", time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	_, err = p.AddLine(line, dec("0.00001"), billing.Allocation{})
	require.NoError(t, err)
	require.NoError(t, f.repos.BillingPeriods().Save(ctx, p))

	reloaded, err := f.repos.BillingPeriods().FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Lines, 1)
	assertDecimal(t, "0.00001", reloaded.Lines[0].ExecutedQuantity)
	assertDecimal(t, "0.0000033", reloaded.Lines[0].Amount)

	committed, err := f.repos.BillingPeriods().CommittedQuantity(ctx, line.ID, uuid.Nil)
	require.NoError(t, err)
	assertDecimal(t, "0.00001", committed)
}

func TestBillingPeriodRepository_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wo := f.workOrder(t, "OB-001")
	v := f.version(t, wo, 1, map[string][2]string{"EXC-01": {"100", "50.00"}})

	p, err := billing.NewBillingPeriod(f.tenantID, wo, v.ID, 1, "Marzo", time.Now())
	require.NoError(t, err)
	_, err = p.AddLine(&v.Lines[0], dec("10"), billing.Allocation{})
	require.NoError(t, err)
	require.NoError(t, f.repos.BillingPeriods().Save(ctx, p))

	require.NoError(t, f.repos.BillingPeriods().Delete(ctx, p))
	_, err = f.repos.BillingPeriods().FindByID(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	refs, err := f.repos.BillingPeriods().CountByBudgetLine(ctx, v.Lines[0].ID)
	require.NoError(t, err)
	assert.Zero(t, refs)
}

func TestPurchaseOrderRepository_NextFolioPerTenant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := testutil.OtherTenantID()

	for want := int64(1); want <= 3; want++ {
		folio, err := f.repos.PurchaseOrders().NextFolio(ctx, f.tenantID)
		require.NoError(t, err)
		assert.Equal(t, want, folio)
	}
	folio, err := f.repos.PurchaseOrders().NextFolio(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, int64(1), folio)
}

func TestPurchaseOrderRepository_SaveAndFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	supplier := uuid.New()

	order, err := procurement.NewPurchaseOrder(f.tenantID, 1, supplier, "")
	require.NoError(t, err)
	_, err = order.AddLine(uuid.New(), "cemento", "bulto", dec("20"), dec("250"))
	require.NoError(t, err)
	require.NoError(t, f.repos.PurchaseOrders().Save(ctx, order))

	other, err := procurement.NewPurchaseOrder(f.tenantID, 2, uuid.New(), "")
	require.NoError(t, err)
	require.NoError(t, f.repos.PurchaseOrders().Save(ctx, other))

	loaded, err := f.repos.PurchaseOrders().FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Lines, 1)
	assertDecimal(t, "5000", loaded.Subtotal)
	assertDecimal(t, "800", loaded.Tax)
	assertDecimal(t, "5800", loaded.Total)

	filter := domain.DefaultFilter()
	filter.Filters["supplier_id"] = supplier
	orders, total, err := f.repos.PurchaseOrders().FindAllForTenant(ctx, f.tenantID, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, order.ID, orders[0].ID)

	require.NoError(t, loaded.Send())
	require.NoError(t, f.repos.PurchaseOrders().Save(ctx, loaded))

	filter = domain.DefaultFilter()
	filter.Filters["status"] = procurement.OrderStatusSent.String()
	orders, total, err = f.repos.PurchaseOrders().FindAllForTenant(ctx, f.tenantID, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, order.ID, orders[0].ID)
}

func TestStockItemRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := uuid.New()
	service := inventory.NewStockService(f.repos.StockItems())

	_, err := f.repos.StockItems().FindByProduct(ctx, f.tenantID, product)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = service.IncreaseStock(ctx, f.tenantID, product, dec("15"), inventory.SourceTypePurchaseOrder, uuid.New())
	require.NoError(t, err)
	item, err := service.IncreaseStock(ctx, f.tenantID, product, dec("5"), inventory.SourceTypePurchaseOrder, uuid.New())
	require.NoError(t, err)
	assertDecimal(t, "20", item.QuantityOnHand)

	loaded, err := f.repos.StockItems().FindByProduct(ctx, f.tenantID, product)
	require.NoError(t, err)
	assertDecimal(t, "20", loaded.QuantityOnHand)

	_, err = f.repos.StockItems().FindByProduct(ctx, testutil.OtherTenantID(), product)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// staleStockRepo misses the product once, the way a receipt that looked
// before a concurrent first receipt committed would
type staleStockRepo struct {
	inventory.StockItemRepository
	missed bool
}

func (r *staleStockRepo) FindByProductForUpdate(ctx context.Context, tenantID, productID uuid.UUID) (*inventory.StockItem, error) {
	if !r.missed {
		r.missed = true
		return nil, domain.ErrNotFound
	}
	return r.StockItemRepository.FindByProductForUpdate(ctx, tenantID, productID)
}

func TestStockItemRepository_FirstReceiptRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := uuid.New()

	_, err := inventory.NewStockService(f.repos.StockItems()).
		IncreaseStock(ctx, f.tenantID, product, dec("15"), inventory.SourceTypePurchaseOrder, uuid.New())
	require.NoError(t, err)

	late := inventory.NewStockService(&staleStockRepo{StockItemRepository: f.repos.StockItems()})
	item, err := late.IncreaseStock(ctx, f.tenantID, product, dec("5"), inventory.SourceTypePurchaseOrder, uuid.New())
	require.NoError(t, err)
	assertDecimal(t, "20", item.QuantityOnHand)

	var rows int64
	require.NoError(t, f.db.Table("stock_items").Where("tenant_id = ? AND product_id = ?", f.tenantID, product).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	loaded, err := f.repos.StockItems().FindByProduct(ctx, f.tenantID, product)
	require.NoError(t, err)
	assertDecimal(t, "20", loaded.QuantityOnHand)
}

func TestBankAccountRepositories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account, err := treasury.NewBankAccount(f.tenantID, "Operación", "BBVA", "0123", valueobject.MXN, dec("10000"))
	require.NoError(t, err)
	require.NoError(t, f.repos.BankAccounts().Save(ctx, account))

	tx, err := account.ApplyTransaction(treasury.TransactionKindExpense, dec("3000"), nil, nil, "F-1", "anticipo")
	require.NoError(t, err)
	require.NoError(t, f.repos.BankAccounts().Save(ctx, account))
	require.NoError(t, f.repos.CashTransactions().Create(ctx, tx))

	loaded, err := f.repos.BankAccounts().FindByID(ctx, account.ID)
	require.NoError(t, err)
	assertDecimal(t, "7000", loaded.Balance)

	stored, err := f.repos.CashTransactions().FindByID(ctx, tx.ID)
	require.NoError(t, err)
	assertDecimal(t, "7000", stored.BalanceAfter)
	assert.Nil(t, stored.TargetType)

	filter := domain.DefaultFilter()
	filter.Filters["kind"] = treasury.TransactionKindIncome.String()
	txs, total, err := f.repos.CashTransactions().FindByAccount(ctx, f.tenantID, account.ID, filter)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, txs)

	txs, total, err = f.repos.CashTransactions().FindByAccount(ctx, f.tenantID, account.ID, domain.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, txs, 1)
}

func TestGormTransactionScope_RollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scope := persistence.NewGormTransactionScope(f.db)
	boom := errors.New("boom")

	wo, err := budget.NewWorkOrder(f.tenantID, "OB-009", "Nave", "", decimal.Zero, decimal.Zero, decimal.Zero)
	require.NoError(t, err)

	err = scope.Execute(ctx, func(repos shared.Repositories) error {
		if err := repos.WorkOrders().Save(ctx, wo); err != nil {
			return err
		}
		if _, err := repos.PurchaseOrders().NextFolio(ctx, f.tenantID); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = f.repos.WorkOrders().FindByID(ctx, wo.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	folio, err := f.repos.PurchaseOrders().NextFolio(ctx, f.tenantID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), folio)
}
