package billing

import (
	"context"
	"errors"

	appshared "github.com/erp/construction/internal/application/shared"
	"github.com/erp/construction/internal/domain/billing"
	"github.com/erp/construction/internal/domain/budget"
	"github.com/erp/construction/internal/domain/shared"
	"github.com/erp/construction/internal/infrastructure/logger"
	"github.com/erp/construction/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service handles progress-billing periods (estimaciones)
type Service struct {
	repos   appshared.Repositories
	scope   appshared.TransactionScope
	cache   appshared.CumulativeCache
	logger  *zap.Logger
	metrics *telemetry.FinanceMetrics
}

// NewService creates a new billing Service. A nil cache disables caching.
func NewService(repos appshared.Repositories, scope appshared.TransactionScope, cache appshared.CumulativeCache, log *zap.Logger) *Service {
	if cache == nil {
		cache = appshared.NoopCumulativeCache{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repos:  repos,
		scope:  scope,
		cache:  cache,
		logger: log.Named("billing"),
	}
}

// SetFinanceMetrics sets the metrics collector
func (s *Service) SetFinanceMetrics(m *telemetry.FinanceMetrics) {
	s.metrics = m
}

// CreatePeriod opens the next billing period of a work order against its
// current budget version.
func (s *Service) CreatePeriod(ctx context.Context, tenantID, workOrderID uuid.UUID, req CreatePeriodRequest) (*BillingPeriodResponse, error) {
	var period *billing.BillingPeriod
	err := s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		wo, err := repos.WorkOrders().FindByIDForUpdate(ctx, workOrderID)
		if err != nil {
			return notFoundAs(err, "work order")
		}
		if err := wo.EnsureTenant(tenantID); err != nil {
			return err
		}
		current, err := repos.BudgetVersions().FindCurrent(ctx, tenantID, workOrderID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewValidationError("work order %s has no current budget version", wo.Code)
			}
			return err
		}
		number, err := repos.BillingPeriods().NextNumber(ctx, workOrderID)
		if err != nil {
			return err
		}
		period, err = billing.NewBillingPeriod(tenantID, wo, current.ID, number, req.Period, req.CutoffDate)
		if err != nil {
			return err
		}
		if req.CreatedBy != nil {
			period.SetCreatedBy(*req.CreatedBy)
		}
		return repos.BillingPeriods().Save(ctx, period)
	})
	if err != nil {
		return nil, err
	}

	appshared.FlushEvents(ctx, s.logger, period)
	response := ToBillingPeriodResponse(period)
	return &response, nil
}

// AddBillingLine bills executed quantity of a budget line in a draft period.
//
// The budget line row is locked for the whole transaction, so two periods
// drawing from the same line serialize and the over-allocation check always
// sees the other's committed quantity.
func (s *Service) AddBillingLine(ctx context.Context, tenantID, periodID uuid.UUID, req AddBillingLineRequest) (_ *BillingPeriodResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "AddBillingLine",
		telemetry.SpanAttrTenantID.String(tenantID.String()),
		telemetry.SpanAttrPeriodID.String(periodID.String()),
		telemetry.SpanAttrBudgetLineID.String(req.BudgetLineID.String()),
		telemetry.SpanAttrQuantity.String(req.ExecutedQuantity.String()),
	)
	defer telemetry.EndSpan(span, &err)

	var period *billing.BillingPeriod
	err = s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		head, err := s.loadPeriod(ctx, repos, tenantID, periodID, false)
		if err != nil {
			return err
		}
		// work order first, the same lock order as MarkCurrent
		if _, err := repos.WorkOrders().FindByIDForUpdate(ctx, head.WorkOrderID); err != nil {
			return notFoundAs(err, "work order")
		}
		period, err = s.loadPeriod(ctx, repos, tenantID, periodID, true)
		if err != nil {
			return err
		}
		current, err := repos.BudgetVersions().FindCurrent(ctx, tenantID, period.WorkOrderID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewValidationError("work order has no current budget version")
			}
			return err
		}
		if err := period.EnsureCurrentVersion(current.ID); err != nil {
			return err
		}
		bl, err := s.lockBudgetLine(ctx, repos, tenantID, req.BudgetLineID)
		if err != nil {
			return err
		}

		prior, err := repos.BillingPeriods().PriorCumulative(ctx, period.WorkOrderID, period.Number, []uuid.UUID{bl.ID})
		if err != nil {
			return err
		}
		committed, err := repos.BillingPeriods().CommittedQuantity(ctx, bl.ID, period.ID)
		if err != nil {
			return err
		}
		if _, err := period.AddLine(bl, req.ExecutedQuantity, billing.Allocation{Prior: prior[bl.ID], Committed: committed}); err != nil {
			return err
		}
		return repos.BillingPeriods().Save(ctx, period)
	})
	if err != nil {
		s.recordRejection(ctx, tenantID, "add_billing_line", err)
		return nil, err
	}

	s.invalidate(ctx, tenantID, req.BudgetLineID)
	appshared.FlushEvents(ctx, s.logger, period)
	response := ToBillingPeriodResponse(period)
	return &response, nil
}

// RemoveBillingLine drops a line from a draft period
func (s *Service) RemoveBillingLine(ctx context.Context, tenantID, periodID, billingLineID uuid.UUID) (*BillingPeriodResponse, error) {
	var (
		period  *billing.BillingPeriod
		removed *billing.BillingLine
	)
	err := s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		var err error
		period, err = s.loadPeriod(ctx, repos, tenantID, periodID, true)
		if err != nil {
			return err
		}
		removed, err = period.RemoveLine(billingLineID)
		if err != nil {
			return err
		}
		return repos.BillingPeriods().Save(ctx, period)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, tenantID, removed.BudgetLineID)
	response := ToBillingPeriodResponse(period)
	return &response, nil
}

// RecomputeTotals re-derives gross, amortization, retention and net from the lines
func (s *Service) RecomputeTotals(ctx context.Context, tenantID, periodID uuid.UUID) (*BillingPeriodResponse, error) {
	var period *billing.BillingPeriod
	err := s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		var err error
		period, err = s.loadPeriod(ctx, repos, tenantID, periodID, true)
		if err != nil {
			return err
		}
		before := [4]decimal.Decimal{period.GrossAmount, period.Amortization, period.Retention, period.NetAmount}
		period.RecomputeTotals()
		after := [4]decimal.Decimal{period.GrossAmount, period.Amortization, period.Retention, period.NetAmount}
		for i := range before {
			if !before[i].Equal(after[i]) {
				period.IncrementVersion()
				return repos.BillingPeriods().Save(ctx, period)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	response := ToBillingPeriodResponse(period)
	return &response, nil
}

// Submit moves a draft with lines to PENDING
func (s *Service) Submit(ctx context.Context, tenantID, periodID uuid.UUID) (*BillingPeriodResponse, error) {
	return s.transition(ctx, tenantID, periodID, "submit", func(p *billing.BillingPeriod) error {
		return p.Submit()
	})
}

// Approve moves a pending period to APPROVED
func (s *Service) Approve(ctx context.Context, tenantID, periodID uuid.UUID) (*BillingPeriodResponse, error) {
	return s.transition(ctx, tenantID, periodID, "approve", func(p *billing.BillingPeriod) error {
		return p.Approve()
	})
}

// Invoice moves an approved period to INVOICED
func (s *Service) Invoice(ctx context.Context, tenantID, periodID uuid.UUID) (*BillingPeriodResponse, error) {
	return s.transition(ctx, tenantID, periodID, "invoice", func(p *billing.BillingPeriod) error {
		return p.Invoice()
	})
}

// Cancel cancels a period. Its lines stop counting toward cumulative quantities.
func (s *Service) Cancel(ctx context.Context, tenantID, periodID uuid.UUID, req CancelPeriodRequest) (*BillingPeriodResponse, error) {
	return s.transition(ctx, tenantID, periodID, "cancel", func(p *billing.BillingPeriod) error {
		return p.Cancel(req.Reason)
	})
}

// Delete removes a period and its lines. Invoiced or collected periods are kept.
func (s *Service) Delete(ctx context.Context, tenantID, periodID uuid.UUID) error {
	var lineIDs []uuid.UUID
	err := s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		period, err := s.loadPeriod(ctx, repos, tenantID, periodID, true)
		if err != nil {
			return err
		}
		if err := period.EnsureDeletable(); err != nil {
			return err
		}
		lineIDs = period.BudgetLineIDs()
		return repos.BillingPeriods().Delete(ctx, period)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, tenantID, lineIDs...)
	logger.WithLogger(ctx, s.logger).Info("Billing period deleted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("billing_period_id", periodID.String()),
	)
	return nil
}

// Get retrieves a period with cumulative quantities re-derived from history
func (s *Service) Get(ctx context.Context, tenantID, periodID uuid.UUID) (*BillingPeriodResponse, error) {
	period, err := s.loadPeriod(ctx, s.repos, tenantID, periodID, false)
	if err != nil {
		return nil, err
	}
	if err := s.refreshCumulative(ctx, period); err != nil {
		return nil, err
	}
	response := ToBillingPeriodResponse(period)
	return &response, nil
}

// List lists the periods of a work order by number
func (s *Service) List(ctx context.Context, tenantID, workOrderID uuid.UUID, filter appshared.ListFilter) ([]BillingPeriodResponse, int64, error) {
	wo, err := s.repos.WorkOrders().FindByID(ctx, workOrderID)
	if err != nil {
		return nil, 0, notFoundAs(err, "work order")
	}
	if err := wo.EnsureTenant(tenantID); err != nil {
		return nil, 0, err
	}
	f := filter.ToDomain()
	if filter.OrderBy == "" {
		f.OrderBy, f.OrderDir = "number", "asc"
	}
	periods, total, err := s.repos.BillingPeriods().FindByWorkOrder(ctx, tenantID, workOrderID, f)
	if err != nil {
		return nil, 0, err
	}
	return ToBillingPeriodResponses(periods), total, nil
}

// Cumulative returns the quantity of a budget line billed to date across all
// non-cancelled periods. The sum is served from the cache when present.
func (s *Service) Cumulative(ctx context.Context, tenantID, budgetLineID uuid.UUID) (*CumulativeResponse, error) {
	bl, err := s.repos.BudgetVersions().FindLineByID(ctx, budgetLineID)
	if err != nil {
		return nil, notFoundAs(err, "budget line")
	}
	if bl.TenantID != tenantID {
		return nil, shared.ErrForbidden
	}

	cumulative, generation, hit, err := s.cache.Get(ctx, tenantID, budgetLineID)
	if err != nil {
		logger.WithLogger(ctx, s.logger).Warn("Cumulative cache read failed", zap.Error(err))
		hit = false
	}
	s.metrics.RecordCumulativeLookup(ctx, hit)
	if !hit {
		cumulative, err = s.repos.BillingPeriods().CommittedQuantity(ctx, budgetLineID, uuid.Nil)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, tenantID, budgetLineID, cumulative, generation); err != nil {
			logger.WithLogger(ctx, s.logger).Warn("Cumulative cache write failed", zap.Error(err))
		}
	}

	return &CumulativeResponse{
		BudgetLineID:       budgetLineID,
		BudgetedQuantity:   bl.Quantity,
		CumulativeQuantity: cumulative,
		RemainingQuantity:  bl.Quantity.Sub(cumulative),
	}, nil
}

func (s *Service) transition(ctx context.Context, tenantID, periodID uuid.UUID, op string, apply func(*billing.BillingPeriod) error) (_ *BillingPeriodResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", op,
		telemetry.SpanAttrTenantID.String(tenantID.String()),
		telemetry.SpanAttrPeriodID.String(periodID.String()),
	)
	defer telemetry.EndSpan(span, &err)

	var period *billing.BillingPeriod
	err = s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		var err error
		period, err = s.loadPeriod(ctx, repos, tenantID, periodID, true)
		if err != nil {
			return err
		}
		if err := apply(period); err != nil {
			return err
		}
		return repos.BillingPeriods().Save(ctx, period)
	})
	if err != nil {
		s.recordRejection(ctx, tenantID, op, err)
		return nil, err
	}

	if period.Status == billing.PeriodStatusCancelled {
		s.invalidate(ctx, tenantID, period.BudgetLineIDs()...)
	}
	s.metrics.RecordBillingTransition(ctx, tenantID, period.Status.String())
	logger.WithLogger(ctx, s.logger).Info("Billing period status changed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("billing_period_id", period.ID.String()),
		zap.Int("number", period.Number),
		zap.String("status", period.Status.String()),
	)
	appshared.FlushEvents(ctx, s.logger, period)
	response := ToBillingPeriodResponse(period)
	return &response, nil
}

func (s *Service) loadPeriod(ctx context.Context, repos appshared.Repositories, tenantID, id uuid.UUID, forUpdate bool) (*billing.BillingPeriod, error) {
	var (
		p   *billing.BillingPeriod
		err error
	)
	if forUpdate {
		p, err = repos.BillingPeriods().FindByIDForUpdate(ctx, id)
	} else {
		p, err = repos.BillingPeriods().FindByID(ctx, id)
	}
	if err != nil {
		return nil, notFoundAs(err, "billing period")
	}
	if err := p.EnsureTenant(tenantID); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) lockBudgetLine(ctx context.Context, repos appshared.Repositories, tenantID, id uuid.UUID) (*budget.BudgetLine, error) {
	bl, err := repos.BudgetVersions().FindLineByIDForUpdate(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "budget line")
	}
	if bl.TenantID != tenantID {
		return nil, shared.ErrForbidden
	}
	return bl, nil
}

func (s *Service) refreshCumulative(ctx context.Context, p *billing.BillingPeriod) error {
	if len(p.Lines) == 0 {
		return nil
	}
	prior, err := s.repos.BillingPeriods().PriorCumulative(ctx, p.WorkOrderID, p.Number, p.BudgetLineIDs())
	if err != nil {
		return err
	}
	p.RefreshCumulative(prior)
	return nil
}

// invalidate drops cached cumulative quantities after a commit. Failures are
// logged; entries also expire by TTL.
func (s *Service) invalidate(ctx context.Context, tenantID uuid.UUID, budgetLineIDs ...uuid.UUID) {
	if len(budgetLineIDs) == 0 {
		return
	}
	if err := s.cache.Invalidate(ctx, tenantID, budgetLineIDs...); err != nil {
		logger.WithLogger(ctx, s.logger).Warn("Cumulative cache invalidation failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("budget_lines", len(budgetLineIDs)),
			zap.Error(err),
		)
	}
}

func (s *Service) recordRejection(ctx context.Context, tenantID uuid.UUID, op string, err error) {
	var de *shared.DomainError
	if errors.As(err, &de) {
		s.metrics.RecordRejection(ctx, tenantID, op, de.Code)
	}
}

func notFoundAs(err error, resource string) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NewNotFoundError(resource)
	}
	return err
}
