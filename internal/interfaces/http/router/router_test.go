package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	billingapp "github.com/erp/construction/internal/application/billing"
	budgetapp "github.com/erp/construction/internal/application/budget"
	procurementapp "github.com/erp/construction/internal/application/procurement"
	treasuryapp "github.com/erp/construction/internal/application/treasury"
	"github.com/erp/construction/internal/infrastructure/auth"
	"github.com/erp/construction/internal/infrastructure/cache"
	"github.com/erp/construction/internal/infrastructure/config"
	"github.com/erp/construction/internal/infrastructure/persistence"
	"github.com/erp/construction/internal/interfaces/http/dto"
	"github.com/erp/construction/internal/interfaces/http/handler"
	"github.com/erp/construction/internal/interfaces/http/middleware"
	"github.com/erp/construction/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
}

type apiClient struct {
	t      *testing.T
	engine *gin.Engine
	token  string
}

func (a *apiClient) as(tenantID uuid.UUID) *apiClient {
	return &apiClient{t: a.t, engine: a.engine, token: testutil.BearerToken(a.t, tenantID, testutil.TestUserID())}
}

func (a *apiClient) do(method, path string, body any, headers ...string) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", a.token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func newTestEngine(t *testing.T, rl *middleware.RateLimiter) *gin.Engine {
	t.Helper()

	db := testutil.NewSQLiteDB(t)
	repos := persistence.NewRepositories(db)
	scope := persistence.NewGormTransactionScope(db)
	idempotency := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = idempotency.Close() })

	engine, err := NewEngine(EngineConfig{
		HTTP:        config.HTTPConfig{MaxBodySize: 1 << 20, RequestTimeout: 5 * time.Second},
		ServiceName: "construction-erp-test",
		Validator:   auth.NewTokenValidator(testutil.JWTConfig()),
		RateLimiter: rl,
	}, Handlers{
		System:         handler.NewSystemHandler("test", nil),
		Budget:         handler.NewBudgetHandler(budgetapp.NewService(repos, scope, nil)),
		Billing:        handler.NewBillingHandler(billingapp.NewService(repos, scope, cache.NewInMemoryCumulativeCache(), nil)),
		PurchaseOrders: handler.NewPurchaseOrderHandler(procurementapp.NewPurchaseOrderService(repos, scope, nil)),
		Treasury:       handler.NewTreasuryHandler(treasuryapp.NewService(repos, scope, idempotency, nil)),
	})
	require.NoError(t, err)
	return engine
}

func newAPIClient(t *testing.T) *apiClient {
	return (&apiClient{t: t, engine: newTestEngine(t, nil)}).as(testutil.TestTenantID())
}

func TestRouter_DomainGroup(t *testing.T) {
	engine := gin.New()
	g := NewDomainGroup("test", "/test").
		Use(func(c *gin.Context) {
			c.Header("X-Test-Middleware", "applied")
			c.Next()
		}).
		GET("/items", func(c *gin.Context) { c.String(http.StatusOK, "items") }).
		DELETE("/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	g.Group("nested", "/nested").POST("/ping", func(c *gin.Context) { c.String(http.StatusCreated, "pong") })

	NewRouter(engine, WithAPIVersion("v2")).Register(g).Setup()

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/v2/test/items", http.StatusOK},
		{http.MethodDelete, "/api/v2/test/items/1", http.StatusNoContent},
		{http.MethodPost, "/api/v2/test/nested/ping", http.StatusCreated},
		{http.MethodGet, "/api/v1/test/items", http.StatusNotFound},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.want, w.Code, tt.path)
		if tt.want != http.StatusNotFound {
			assert.Equal(t, "applied", w.Header().Get("X-Test-Middleware"))
		}
	}
	assert.Equal(t, "test", g.Name())
	assert.Equal(t, "/test", g.Prefix())
}

func TestNewEngine_Routes(t *testing.T) {
	engine := newTestEngine(t, nil)

	registered := make(map[string]bool)
	for _, r := range engine.Routes() {
		registered[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /health",
		"GET /ready",
		"POST /api/v1/work-orders/:id/budget-versions/:versionId/mark-current",
		"GET /api/v1/budget-versions/:id/total",
		"POST /api/v1/budget-versions/:id/lines/batch",
		"POST /api/v1/billing-periods/:id/approve",
		"DELETE /api/v1/billing-periods/:id/lines/:lineId",
		"GET /api/v1/budget-lines/:id/cumulative",
		"POST /api/v1/purchase-orders/:id/receive",
		"POST /api/v1/bank-accounts/:id/transactions",
		"GET /api/v1/outstanding/purchase-orders/:id",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}
}

func TestNewEngine_Authentication(t *testing.T) {
	anon := &apiClient{t: t, engine: newTestEngine(t, nil)}

	w, _ := anon.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w, env := anon.do(http.MethodGet, "/api/v1/work-orders", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.ErrCodeUnauthorized, env.Error.Code)
	assert.NotEmpty(t, env.Error.RequestID)

	anon.token = "Bearer not.a.jwt"
	w, _ = anon.do(http.MethodGet, "/api/v1/purchase-orders", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNewEngine_BudgetFlow(t *testing.T) {
	api := newAPIClient(t)

	w, env := api.do(http.MethodPost, "/api/v1/work-orders", map[string]any{
		"code": "OB-200", "name": "Torre Norte", "advance_pct": "30", "retention_pct": "5", "contract_amount": "1000000",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	wo := decodeData[budgetapp.WorkOrderResponse](t, env)

	w, env = api.do(http.MethodPost, "/api/v1/work-orders", map[string]any{"code": "", "advance_pct": "120"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.ErrCodeValidation, env.Error.Code)
	assert.NotEmpty(t, env.Error.Details)

	w, env = api.do(http.MethodPost, "/api/v1/work-orders/"+wo.ID.String()+"/budget-versions", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	version := decodeData[budgetapp.BudgetVersionResponse](t, env)

	w, _ = api.do(http.MethodPost, "/api/v1/budget-versions/"+version.ID.String()+"/lines", map[string]any{
		"key": "EXC-01", "unit": "m3", "quantity": "100", "unit_price": "50.00",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env = api.do(http.MethodPost, "/api/v1/budget-versions/"+version.ID.String()+"/lines", map[string]any{
		"key": "EXC-01", "quantity": "1", "unit_price": "1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = api.do(http.MethodPost, "/api/v1/budget-versions/"+version.ID.String()+"/lines/batch", map[string]any{
		"lines": []map[string]any{
			{"key": "CIM-02", "quantity": "10", "unit_price": "100"},
			{"key": "exc-01", "quantity": "1", "unit_price": "1"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	require.Len(t, env.Error.Details, 1)
	assert.Equal(t, "lines[1]", env.Error.Details[0].Field)

	w, _ = api.do(http.MethodPost, "/api/v1/budget-versions/"+version.ID.String()+"/lines/batch", map[string]any{
		"lines": []map[string]any{{"key": "CIM-02", "quantity": "10", "unit_price": "100"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, _ = api.do(http.MethodDelete, "/api/v1/budget-lines/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = api.do(http.MethodPost,
		"/api/v1/work-orders/"+wo.ID.String()+"/budget-versions/"+version.ID.String()+"/mark-current", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decodeData[budgetapp.BudgetVersionResponse](t, env).IsCurrent)

	w, env = api.do(http.MethodGet, "/api/v1/budget-versions/"+version.ID.String()+"/total", nil)
	require.Equal(t, http.StatusOK, w.Code)
	total := decodeData[budgetapp.TotalAmountResponse](t, env)
	assert.True(t, total.TotalAmount.Equal(decimal.NewFromInt(6000)), total.TotalAmount.String())

	w, env = api.as(testutil.OtherTenantID()).do(http.MethodGet, "/api/v1/work-orders/"+wo.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.ErrCodeForbidden, env.Error.Code)

	w, _ = api.do(http.MethodGet, "/api/v1/work-orders/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = api.do(http.MethodGet, "/api/v1/work-orders/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.ErrCodeNotFound, env.Error.Code)
}

func TestNewEngine_ReceiveAndPay(t *testing.T) {
	api := newAPIClient(t)

	w, env := api.do(http.MethodPost, "/api/v1/purchase-orders", map[string]any{
		"supplier_id": uuid.NewString(),
		"lines": []map[string]any{
			{"product_id": uuid.NewString(), "description": "Cemento gris", "unit": "bulto", "quantity": "20", "unit_price": "250"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decodeData[procurementapp.PurchaseOrderResponse](t, env)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(5800)), order.Total.String())
	base := "/api/v1/purchase-orders/" + order.ID.String()
	lineID := order.Lines[0].ID.String()

	w, env = api.do(http.MethodPost, base+"/receive", map[string]any{
		"items": []map[string]any{{"line_id": lineID, "quantity": "5"}},
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.ErrCodeInvalidTransition, env.Error.Code)

	w, _ = api.do(http.MethodPost, base+"/send", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = api.do(http.MethodPost, base+"/receive", map[string]any{
		"items": []map[string]any{{"line_id": lineID, "quantity": "25"}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.ErrCodeOverReceipt, env.Error.Code)

	w, env = api.do(http.MethodPost, base+"/receive", map[string]any{
		"items": []map[string]any{{"line_id": lineID, "quantity": "15"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	received := decodeData[procurementapp.ReceiveResultResponse](t, env)
	assert.Equal(t, "PARTIAL", received.Order.Status)
	assert.False(t, received.IsFullyReceived)

	w, env = api.do(http.MethodPost, "/api/v1/bank-accounts", map[string]any{
		"name": "Operativa", "bank_name": "Banorte", "currency": "MXN", "opening_balance": "10000",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	account := decodeData[treasuryapp.BankAccountResponse](t, env)
	txPath := "/api/v1/bank-accounts/" + account.ID.String() + "/transactions"

	w, env = api.do(http.MethodPost, txPath, map[string]any{
		"kind": "EXPENSE", "amount": "6000", "target_type": "PURCHASE_ORDER", "target_id": order.ID.String(),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.ErrCodeOverpayment, env.Error.Code)

	w, env = api.do(http.MethodPost, txPath, map[string]any{"kind": "EXPENSE", "amount": "-5"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.ErrCodeNegativeAmount, env.Error.Code)

	payment := map[string]any{
		"kind": "EXPENSE", "amount": "1000", "target_type": "PURCHASE_ORDER", "target_id": order.ID.String(), "reference": "SPEI-1",
	}
	w, env = api.do(http.MethodPost, txPath, payment, "Idempotency-Key", "pago-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decodeData[treasuryapp.ApplyTransactionResponse](t, env)
	assert.False(t, first.Replayed)
	assert.True(t, first.Account.Balance.Equal(decimal.NewFromInt(9000)))

	w, env = api.do(http.MethodPost, txPath, payment, "Idempotency-Key", "pago-1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	replay := decodeData[treasuryapp.ApplyTransactionResponse](t, env)
	assert.True(t, replay.Replayed)
	assert.Equal(t, first.Transaction.ID, replay.Transaction.ID)
	assert.True(t, replay.Account.Balance.Equal(decimal.NewFromInt(9000)))

	w, env = api.do(http.MethodGet, "/api/v1/outstanding/purchase-orders/"+order.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	outstanding := decodeData[treasuryapp.OutstandingResponse](t, env)
	assert.True(t, outstanding.Outstanding.Equal(decimal.NewFromInt(4800)), outstanding.Outstanding.String())

	w, env = api.as(testutil.OtherTenantID()).do(http.MethodPost, txPath, payment)
	assert.Equal(t, http.StatusForbidden, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.ErrCodeForbidden, env.Error.Code)
}

func TestNewEngine_RateLimitPerTenant(t *testing.T) {
	rl := middleware.NewRateLimiter(2, time.Minute)
	t.Cleanup(rl.Stop)
	api := (&apiClient{t: t, engine: newTestEngine(t, rl)}).as(testutil.TestTenantID())

	for i := 0; i < 2; i++ {
		w, _ := api.do(http.MethodGet, "/api/v1/bank-accounts", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w, env := api.do(http.MethodGet, "/api/v1/bank-accounts", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.ErrCodeRateLimited, env.Error.Code)

	w, _ = api.as(testutil.OtherTenantID()).do(http.MethodGet, "/api/v1/bank-accounts", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
