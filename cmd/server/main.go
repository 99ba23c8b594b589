package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	billingapp "github.com/erp/construction/internal/application/billing"
	budgetapp "github.com/erp/construction/internal/application/budget"
	procurementapp "github.com/erp/construction/internal/application/procurement"
	treasuryapp "github.com/erp/construction/internal/application/treasury"
	"github.com/erp/construction/internal/infrastructure/auth"
	"github.com/erp/construction/internal/infrastructure/cache"
	"github.com/erp/construction/internal/infrastructure/config"
	"github.com/erp/construction/internal/infrastructure/logger"
	"github.com/erp/construction/internal/infrastructure/persistence"
	"github.com/erp/construction/internal/infrastructure/telemetry"
	"github.com/erp/construction/internal/interfaces/http/handler"
	"github.com/erp/construction/internal/interfaces/http/middleware"
	"github.com/erp/construction/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const meterName = "github.com/erp/construction"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Telemetry starts with a bootstrap logger so that the OTLP log core can
	// be teed into the real one.
	bootLog, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	providers, err := telemetry.Setup(context.Background(), cfg.Telemetry, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	log, err := logger.New(cfg.Log,
		telemetry.NewZapCore(providers, cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting construction ERP",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
		zap.Bool("tracing", providers.TracingEnabled()),
		zap.Bool("metrics", providers.MetricsEnabled()),
	)

	profiler, err := telemetry.NewProfiler(cfg.Profiling, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.Enabled() && cfg.Profiling.SpanProfiles {
		providers.EnableSpanProfiles()
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if db.Driver == "sqlite" {
		// postgres schemas are owned by cmd/migrate
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}
	log.Info("Database connected", zap.String("driver", db.Driver))

	meter := providers.Meter(meterName)
	dbInst, err := telemetry.NewDBInstrumentation(meter, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to create database instruments", zap.Error(err))
	}
	if err := dbInst.Register(db.DB); err != nil {
		log.Fatal("Failed to instrument database", zap.Error(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		dbInst.StartPoolStats(sqlDB, 15*time.Second)
	}
	defer dbInst.Stop()

	stores, err := cache.NewFactory(cfg.Redis, cfg.Cache,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateStores()
	if err != nil {
		log.Fatal("Failed to create cache stores", zap.Error(err))
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Error("Error closing cache stores", zap.Error(err))
		}
	}()

	repos := persistence.NewRepositories(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB)

	budgetService := budgetapp.NewService(repos, scope, log)
	billingService := billingapp.NewService(repos, scope, stores.Cumulative, log)
	orderService := procurementapp.NewPurchaseOrderService(repos, scope, log)
	treasuryService := treasuryapp.NewService(repos, scope, stores.Idempotency, log)
	treasuryService.SetIdempotencyTTL(cfg.Cache.IdempotencyTTL)

	outstanding := persistence.NewGormOutstandingProvider(db.DB)
	financeMetrics, err := telemetry.NewFinanceMetrics(telemetry.FinanceMetricsConfig{
		Meter:               meter,
		Logger:              log,
		CollectInterval:     cfg.Telemetry.OutstandingCollectTick,
		OutstandingProvider: outstanding,
	})
	if err != nil {
		log.Fatal("Failed to create finance metrics", zap.Error(err))
	}
	budgetService.SetFinanceMetrics(financeMetrics)
	billingService.SetFinanceMetrics(financeMetrics)
	orderService.SetFinanceMetrics(financeMetrics)
	treasuryService.SetFinanceMetrics(financeMetrics)

	collectCtx, stopCollect := context.WithCancel(context.Background())
	defer stopCollect()
	if providers.MetricsEnabled() {
		financeMetrics.StartPeriodicCollection(collectCtx, outstanding, cfg.Telemetry.OutstandingCollectTick)
		defer financeMetrics.Stop()
	}

	middleware.SetupValidator()
	gin.SetMode(ginMode(cfg.App.Env))

	var limiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer limiter.Stop()
	}

	engine, err := router.NewEngine(router.EngineConfig{
		HTTP:           cfg.HTTP,
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: providers.TracingEnabled(),
		Meter:          meter,
		Logger:         log,
		Validator:      auth.NewTokenValidator(cfg.JWT),
		RateLimiter:    limiter,
	}, router.Handlers{
		System: handler.NewSystemHandler(version, map[string]handler.ReadinessCheck{
			"database": db.Ping,
			"cache":    stores.Ping,
		}),
		Budget:         handler.NewBudgetHandler(budgetService),
		Billing:        handler.NewBillingHandler(billingService),
		PurchaseOrders: handler.NewPurchaseOrderHandler(orderService),
		Treasury:       handler.NewTreasuryHandler(treasuryService),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownTimeout := cfg.HTTP.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Warn("Profiler stop failed", zap.Error(err))
	}
	if err := providers.Shutdown(ctx); err != nil {
		log.Warn("Telemetry shutdown incomplete", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func ginMode(env string) string {
	switch env {
	case "production":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}
