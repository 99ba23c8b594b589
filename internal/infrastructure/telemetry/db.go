package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/erp/construction/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	startTimeKey       = "erp:query_start"
	defaultSlowQuery   = 200 * time.Millisecond
	defaultPoolStatsIv = 15 * time.Second
)

// DBInstrumentation traces GORM statements through otelgorm and records
// query counts, durations, slow queries and pool usage.
type DBInstrumentation struct {
	cfg    config.TelemetryConfig
	logger *zap.Logger

	queryTotal     *Counter
	queryDuration  *Histogram
	slowQueryTotal *Counter
	poolConns      *Gauge

	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewDBInstrumentation creates the DB instruments on meter
func NewDBInstrumentation(meter metric.Meter, cfg config.TelemetryConfig, logger *zap.Logger) (*DBInstrumentation, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DBSlowQueryThresh <= 0 {
		cfg.DBSlowQueryThresh = defaultSlowQuery
	}

	d := &DBInstrumentation{cfg: cfg, logger: logger, stopCh: make(chan struct{})}
	var err error
	if d.queryTotal, err = NewCounter(meter, "db_query_total", "Total number of database queries", "{query}"); err != nil {
		return nil, err
	}
	if d.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query duration",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if d.slowQueryTotal, err = NewCounter(meter, "db_slow_query_total", "Queries slower than the configured threshold", "{query}"); err != nil {
		return nil, err
	}
	if d.poolConns, err = NewGauge(meter, "db_pool_connections", "Connections in the pool by state", "{connection}"); err != nil {
		return nil, err
	}
	return d, nil
}

// Register installs otelgorm (when DB tracing is enabled) and the metric
// callbacks on db.
func (d *DBInstrumentation) Register(db *gorm.DB) error {
	if d.cfg.DBTraceEnabled {
		opts := []otelgorm.Option{otelgorm.WithDBName(db.Dialector.Name())}
		if !d.cfg.DBLogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return err
		}
	}

	cb := db.Callback()
	hooks := []struct {
		op            string
		before, after func(string, func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, h := range hooks {
		if err := h.before("erp_metrics:before_"+h.op, markStart); err != nil {
			return err
		}
		if err := h.after("erp_metrics:after_"+h.op, d.observe(h.op)); err != nil {
			return err
		}
	}

	d.logger.Info("Database instrumentation registered",
		zap.Bool("tracing", d.cfg.DBTraceEnabled),
		zap.Duration("slow_query_threshold", d.cfg.DBSlowQueryThresh),
	)
	return nil
}

func markStart(db *gorm.DB) {
	db.InstanceSet(startTimeKey, time.Now())
}

func (d *DBInstrumentation) observe(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(startTimeKey)
		if !ok {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}
		elapsed := time.Since(start)
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		status := "ok"
		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			status = "error"
		}
		attrs := []attribute.KeyValue{
			AttrDBOperation.String(op),
			AttrDBTable.String(db.Statement.Table),
			AttrStatus.String(status),
		}
		d.queryTotal.Inc(ctx, attrs...)
		d.queryDuration.RecordDuration(ctx, elapsed, attrs...)

		if elapsed > d.cfg.DBSlowQueryThresh {
			d.slowQueryTotal.Inc(ctx, attrs[:2]...)
			if span := trace.SpanFromContext(ctx); span.IsRecording() {
				span.SetAttributes(
					attribute.Bool("db.slow_query", true),
					attribute.Int64("db.duration_ms", elapsed.Milliseconds()),
				)
			}
		}
	}
}

// StartPoolStats samples sqlDB.Stats() every interval until Stop
func (d *DBInstrumentation) StartPoolStats(sqlDB *sql.DB, interval time.Duration) {
	if interval <= 0 {
		interval = defaultPoolStatsIv
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			d.RecordPoolStats(context.Background(), sqlDB.Stats())
			select {
			case <-d.stopCh:
				return
			case <-ticker.C:
			}
		}
	}()
}

// RecordPoolStats records one pool sample
func (d *DBInstrumentation) RecordPoolStats(ctx context.Context, stats sql.DBStats) {
	d.poolConns.Record(ctx, int64(stats.InUse), AttrDBState.String("in_use"))
	d.poolConns.Record(ctx, int64(stats.Idle), AttrDBState.String("idle"))
	d.poolConns.Record(ctx, int64(stats.MaxOpenConnections), AttrDBState.String("max"))
}

// Stop ends pool sampling. It is safe to call more than once.
func (d *DBInstrumentation) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopCh)
		d.wg.Wait()
	})
}
