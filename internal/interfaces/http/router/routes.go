package router

import (
	"github.com/erp/construction/internal/infrastructure/config"
	"github.com/erp/construction/internal/infrastructure/logger"
	"github.com/erp/construction/internal/interfaces/http/handler"
	"github.com/erp/construction/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Handlers groups the HTTP handlers mounted by NewEngine
type Handlers struct {
	System         *handler.SystemHandler
	Budget         *handler.BudgetHandler
	Billing        *handler.BillingHandler
	PurchaseOrders *handler.PurchaseOrderHandler
	Treasury       *handler.TreasuryHandler
}

// EngineConfig carries the collaborators of the HTTP middleware chain.
// A nil Meter disables HTTP metrics and a nil RateLimiter disables rate limiting.
type EngineConfig struct {
	HTTP           config.HTTPConfig
	ServiceName    string
	TracingEnabled bool
	Meter          metric.Meter
	Logger         *zap.Logger
	Validator      middleware.TokenValidator
	RateLimiter    *middleware.RateLimiter
}

// NewEngine builds the gin engine with the full middleware chain and every
// API route. Probes live at the root and bypass authentication.
func NewEngine(cfg EngineConfig, h Handlers) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	metrics, err := middleware.HTTPMetrics(cfg.Meter)
	if err != nil {
		return nil, err
	}

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Secure(),
		middleware.CORSWithConfig(middleware.CORSConfigFromHTTP(cfg.HTTP)),
		middleware.Tracing(cfg.ServiceName, cfg.TracingEnabled),
		metrics,
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.Timeout(cfg.HTTP.RequestTimeout),
	)

	if h.System != nil {
		engine.GET("/health", h.System.Health)
		engine.GET("/ready", h.System.Ready)
	}

	jwtCfg := middleware.DefaultJWTConfig(cfg.Validator)
	jwtCfg.Logger = log
	group := []gin.HandlerFunc{middleware.JWTAuthMiddlewareWithConfig(jwtCfg)}
	if cfg.RateLimiter != nil {
		group = append(group, middleware.RateLimit(cfg.RateLimiter))
	}
	group = append(group, middleware.SpanEnricher())

	r := NewRouter(engine, WithGroupMiddleware(group...))
	r.Register(
		workOrderRoutes(h),
		budgetVersionRoutes(h),
		budgetLineRoutes(h),
		billingPeriodRoutes(h),
		purchaseOrderRoutes(h),
		bankAccountRoutes(h),
		outstandingRoutes(h),
	)
	r.Setup()

	return engine, nil
}

func workOrderRoutes(h Handlers) *DomainGroup {
	return NewDomainGroup("work-orders", "/work-orders").
		POST("", h.Budget.CreateWorkOrder).
		GET("", h.Budget.ListWorkOrders).
		GET("/:id", h.Budget.GetWorkOrder).
		POST("/:id/budget-versions", h.Budget.CreateVersion).
		GET("/:id/budget-versions", h.Budget.ListVersions).
		POST("/:id/budget-versions/:versionId/mark-current", h.Budget.MarkCurrent).
		POST("/:id/billing-periods", h.Billing.CreatePeriod).
		GET("/:id/billing-periods", h.Billing.ListPeriods)
}

func budgetVersionRoutes(h Handlers) *DomainGroup {
	return NewDomainGroup("budget-versions", "/budget-versions").
		GET("/:id", h.Budget.GetVersion).
		POST("/:id/lines", h.Budget.AddLine).
		POST("/:id/lines/batch", h.Budget.AddLines).
		GET("/:id/total", h.Budget.TotalAmount)
}

func budgetLineRoutes(h Handlers) *DomainGroup {
	return NewDomainGroup("budget-lines", "/budget-lines").
		DELETE("/:id", h.Budget.RemoveLine).
		GET("/:id/cumulative", h.Billing.Cumulative)
}

func billingPeriodRoutes(h Handlers) *DomainGroup {
	return NewDomainGroup("billing-periods", "/billing-periods").
		GET("/:id", h.Billing.GetPeriod).
		DELETE("/:id", h.Billing.DeletePeriod).
		POST("/:id/lines", h.Billing.AddLine).
		DELETE("/:id/lines/:lineId", h.Billing.RemoveLine).
		POST("/:id/recompute", h.Billing.Recompute).
		POST("/:id/submit", h.Billing.Submit).
		POST("/:id/approve", h.Billing.Approve).
		POST("/:id/invoice", h.Billing.Invoice).
		POST("/:id/cancel", h.Billing.Cancel)
}

func purchaseOrderRoutes(h Handlers) *DomainGroup {
	return NewDomainGroup("purchase-orders", "/purchase-orders").
		POST("", h.PurchaseOrders.Create).
		GET("", h.PurchaseOrders.List).
		GET("/:id", h.PurchaseOrders.GetByID).
		POST("/:id/lines", h.PurchaseOrders.AddLine).
		POST("/:id/send", h.PurchaseOrders.Send).
		POST("/:id/receive", h.PurchaseOrders.Receive).
		POST("/:id/cancel", h.PurchaseOrders.Cancel)
}

func bankAccountRoutes(h Handlers) *DomainGroup {
	return NewDomainGroup("bank-accounts", "/bank-accounts").
		POST("", h.Treasury.OpenAccount).
		GET("", h.Treasury.ListAccounts).
		GET("/:id", h.Treasury.GetAccount).
		POST("/:id/transactions", h.Treasury.ApplyTransaction).
		GET("/:id/transactions", h.Treasury.ListTransactions)
}

func outstandingRoutes(h Handlers) *DomainGroup {
	return NewDomainGroup("outstanding", "/outstanding").
		GET("/billing-periods/:id", h.Treasury.BillingPeriodOutstanding).
		GET("/purchase-orders/:id", h.Treasury.PurchaseOrderOutstanding)
}
