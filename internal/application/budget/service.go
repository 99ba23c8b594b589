package budget

import (
	"context"
	"errors"

	appshared "github.com/erp/construction/internal/application/shared"
	"github.com/erp/construction/internal/domain/budget"
	"github.com/erp/construction/internal/domain/shared"
	"github.com/erp/construction/internal/infrastructure/logger"
	"github.com/erp/construction/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service handles work orders and budget versions
type Service struct {
	repos   appshared.Repositories
	scope   appshared.TransactionScope
	logger  *zap.Logger
	metrics *telemetry.FinanceMetrics
}

// NewService creates a new budget Service
func NewService(repos appshared.Repositories, scope appshared.TransactionScope, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repos:  repos,
		scope:  scope,
		logger: log.Named("budget"),
	}
}

// SetFinanceMetrics sets the metrics collector
func (s *Service) SetFinanceMetrics(m *telemetry.FinanceMetrics) {
	s.metrics = m
}

// CreateWorkOrder registers a work order with its contractual percentages
func (s *Service) CreateWorkOrder(ctx context.Context, tenantID uuid.UUID, req CreateWorkOrderRequest) (*WorkOrderResponse, error) {
	wo, err := budget.NewWorkOrder(tenantID, req.Code, req.Name, req.ClientName, req.AdvancePct, req.RetentionPct, req.ContractAmount)
	if err != nil {
		return nil, err
	}
	if req.CreatedBy != nil {
		wo.SetCreatedBy(*req.CreatedBy)
	}

	err = s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		exists, err := repos.WorkOrders().ExistsByCode(ctx, tenantID, wo.Code)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewValidationError("work order code %q already exists", wo.Code)
		}
		return repos.WorkOrders().Save(ctx, wo)
	})
	if err != nil {
		return nil, err
	}

	appshared.FlushEvents(ctx, s.logger, wo)
	response := ToWorkOrderResponse(wo)
	return &response, nil
}

// GetWorkOrder retrieves a work order
func (s *Service) GetWorkOrder(ctx context.Context, tenantID, workOrderID uuid.UUID) (*WorkOrderResponse, error) {
	wo, err := s.loadWorkOrder(ctx, s.repos, tenantID, workOrderID, false)
	if err != nil {
		return nil, err
	}
	response := ToWorkOrderResponse(wo)
	return &response, nil
}

// ListWorkOrders lists the tenant's work orders
func (s *Service) ListWorkOrders(ctx context.Context, tenantID uuid.UUID, filter appshared.ListFilter) ([]WorkOrderResponse, int64, error) {
	orders, total, err := s.repos.WorkOrders().FindAllForTenant(ctx, tenantID, filter.ToDomain())
	if err != nil {
		return nil, 0, err
	}
	return ToWorkOrderResponses(orders), total, nil
}

// CreateVersion opens the next budget version of a work order. The number is
// assigned as max+1 while the work order row is locked.
func (s *Service) CreateVersion(ctx context.Context, tenantID, workOrderID uuid.UUID, req CreateVersionRequest) (*BudgetVersionResponse, error) {
	var version *budget.BudgetVersion
	err := s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		if _, err := s.loadWorkOrder(ctx, repos, tenantID, workOrderID, true); err != nil {
			return err
		}
		number, err := repos.BudgetVersions().NextVersionNumber(ctx, workOrderID)
		if err != nil {
			return err
		}
		version, err = budget.NewBudgetVersion(tenantID, workOrderID, number, req.Description)
		if err != nil {
			return err
		}
		if req.CreatedBy != nil {
			version.SetCreatedBy(*req.CreatedBy)
		}
		return repos.BudgetVersions().Save(ctx, version)
	})
	if err != nil {
		return nil, err
	}

	appshared.FlushEvents(ctx, s.logger, version)
	response := ToBudgetVersionResponse(version)
	return &response, nil
}

// GetVersion retrieves a budget version with its lines
func (s *Service) GetVersion(ctx context.Context, tenantID, versionID uuid.UUID) (*BudgetVersionResponse, error) {
	v, err := s.loadVersion(ctx, s.repos, tenantID, versionID, false)
	if err != nil {
		return nil, err
	}
	response := ToBudgetVersionResponse(v)
	return &response, nil
}

// ListVersions lists the versions of a work order, newest first
func (s *Service) ListVersions(ctx context.Context, tenantID, workOrderID uuid.UUID) ([]BudgetVersionResponse, error) {
	if _, err := s.loadWorkOrder(ctx, s.repos, tenantID, workOrderID, false); err != nil {
		return nil, err
	}
	versions, err := s.repos.BudgetVersions().FindByWorkOrder(ctx, tenantID, workOrderID)
	if err != nil {
		return nil, err
	}
	out := make([]BudgetVersionResponse, len(versions))
	for i := range versions {
		out[i] = ToBudgetVersionResponse(&versions[i])
	}
	return out, nil
}

// AddLine adds a priced concept to a version
func (s *Service) AddLine(ctx context.Context, tenantID, versionID uuid.UUID, req AddLineRequest) (*BudgetLineResponse, error) {
	var (
		version *budget.BudgetVersion
		line    *budget.BudgetLine
	)
	err := s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		var err error
		version, err = s.loadVersion(ctx, repos, tenantID, versionID, true)
		if err != nil {
			return err
		}
		line, err = version.AddLine(req.Key, req.Description, req.Unit, req.Quantity, req.UnitPrice)
		if err != nil {
			return err
		}
		return repos.BudgetVersions().Save(ctx, version)
	})
	if err != nil {
		s.recordRejection(ctx, tenantID, "add_budget_line", err)
		return nil, err
	}

	appshared.FlushEvents(ctx, s.logger, version)
	response := ToBudgetLineResponse(line)
	return &response, nil
}

// errLinesRejected rolls back a bulk insert that collected row errors
var errLinesRejected = errors.New("budget lines rejected")

// AddLines adds a batch of concepts to a version in one transaction. Rows the
// domain rejects are reported in the response and nothing is saved. Keys are
// checked against the version and against earlier rows of the same batch.
func (s *Service) AddLines(ctx context.Context, tenantID, versionID uuid.UUID, req AddLinesRequest) (*AddLinesResponse, error) {
	if len(req.Lines) == 0 {
		return nil, shared.NewValidationError("at least one budget line is required")
	}
	if len(req.Lines) > MaxBatchLines {
		return nil, shared.NewValidationError("a batch holds at most %d budget lines", MaxBatchLines)
	}

	var (
		version *budget.BudgetVersion
		added   []*budget.BudgetLine
		rejects []LineError
	)
	err := s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		var err error
		version, err = s.loadVersion(ctx, repos, tenantID, versionID, true)
		if err != nil {
			return err
		}
		added = make([]*budget.BudgetLine, 0, len(req.Lines))
		for i, l := range req.Lines {
			line, err := version.AddLine(l.Key, l.Description, l.Unit, l.Quantity, l.UnitPrice)
			if err != nil {
				var de *shared.DomainError
				if !errors.As(err, &de) || (de.Code != shared.CodeValidation && de.Code != shared.CodeNegativeAmount) {
					return err
				}
				rejects = append(rejects, LineError{Row: i + 1, Key: l.Key, Code: de.Code, Message: de.Message})
				continue
			}
			added = append(added, line)
		}
		if len(rejects) > 0 {
			return errLinesRejected
		}
		return repos.BudgetVersions().Save(ctx, version)
	})
	if errors.Is(err, errLinesRejected) {
		for _, r := range rejects {
			s.metrics.RecordRejection(ctx, tenantID, "add_budget_lines", r.Code)
		}
		return &AddLinesResponse{BudgetVersionID: versionID, Errors: rejects}, nil
	}
	if err != nil {
		s.recordRejection(ctx, tenantID, "add_budget_lines", err)
		return nil, err
	}

	appshared.FlushEvents(ctx, s.logger, version)
	s.logger.Info("Budget lines added",
		zap.String("tenant_id", tenantID.String()),
		zap.String("budget_version_id", versionID.String()),
		zap.Int("lines", len(added)),
	)
	resp := &AddLinesResponse{
		BudgetVersionID: versionID,
		Added:           len(added),
		Lines:           make([]BudgetLineResponse, len(added)),
		TotalAmount:     version.TotalAmount(),
	}
	for i, l := range added {
		resp.Lines[i] = ToBudgetLineResponse(l)
	}
	return resp, nil
}

// RemoveLine deletes a budget line that no billing line references yet
func (s *Service) RemoveLine(ctx context.Context, tenantID, budgetLineID uuid.UUID) error {
	err := s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		line, err := repos.BudgetVersions().FindLineByIDForUpdate(ctx, budgetLineID)
		if err != nil {
			return err
		}
		if line.TenantID != tenantID {
			return shared.ErrForbidden
		}
		refs, err := repos.BillingPeriods().CountByBudgetLine(ctx, budgetLineID)
		if err != nil {
			return err
		}
		if refs > 0 {
			return shared.NewDomainError(shared.CodeInvalidTransition,
				"budget line "+line.Key+" is referenced by billing lines and cannot be removed")
		}

		version, err := s.loadVersion(ctx, repos, tenantID, line.BudgetVersionID, true)
		if err != nil {
			return err
		}
		if err := version.RemoveLine(budgetLineID); err != nil {
			return err
		}
		return repos.BudgetVersions().Save(ctx, version)
	})
	s.recordRejection(ctx, tenantID, "remove_budget_line", err)
	return err
}

// MarkCurrent makes versionID the single current version of its work order.
//
// The work order row is locked first, so concurrent calls for the same work
// order serialize, and the sibling flags are cleared before the target is set
// inside the same transaction.
func (s *Service) MarkCurrent(ctx context.Context, tenantID, workOrderID, versionID uuid.UUID) (*BudgetVersionResponse, error) {
	var version *budget.BudgetVersion
	err := s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		if _, err := s.loadWorkOrder(ctx, repos, tenantID, workOrderID, true); err != nil {
			return err
		}
		var err error
		version, err = s.loadVersion(ctx, repos, tenantID, versionID, true)
		if err != nil {
			return err
		}
		if err := version.MarkCurrent(workOrderID); err != nil {
			return err
		}
		return repos.BudgetVersions().SetCurrent(ctx, version)
	})
	if err != nil {
		s.recordRejection(ctx, tenantID, "mark_current", err)
		return nil, err
	}

	s.metrics.RecordBudgetVersionActivated(ctx, tenantID)

	logger.WithLogger(ctx, s.logger).Info("Budget version marked current",
		zap.String("tenant_id", tenantID.String()),
		zap.String("work_order_id", workOrderID.String()),
		zap.String("budget_version_id", versionID.String()),
		zap.Int("version_number", version.VersionNumber),
	)
	appshared.FlushEvents(ctx, s.logger, version)
	response := ToBudgetVersionResponse(version)
	return &response, nil
}

// TotalAmount returns Σ line.amount of a version
func (s *Service) TotalAmount(ctx context.Context, tenantID, versionID uuid.UUID) (*TotalAmountResponse, error) {
	v, err := s.loadVersion(ctx, s.repos, tenantID, versionID, false)
	if err != nil {
		return nil, err
	}
	return &TotalAmountResponse{BudgetVersionID: v.ID, TotalAmount: v.TotalAmount()}, nil
}

func (s *Service) loadWorkOrder(ctx context.Context, repos appshared.Repositories, tenantID, id uuid.UUID, forUpdate bool) (*budget.WorkOrder, error) {
	var (
		wo  *budget.WorkOrder
		err error
	)
	if forUpdate {
		wo, err = repos.WorkOrders().FindByIDForUpdate(ctx, id)
	} else {
		wo, err = repos.WorkOrders().FindByID(ctx, id)
	}
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFoundError("work order")
		}
		return nil, err
	}
	if err := wo.EnsureTenant(tenantID); err != nil {
		return nil, err
	}
	return wo, nil
}

func (s *Service) loadVersion(ctx context.Context, repos appshared.Repositories, tenantID, id uuid.UUID, forUpdate bool) (*budget.BudgetVersion, error) {
	var (
		v   *budget.BudgetVersion
		err error
	)
	if forUpdate {
		v, err = repos.BudgetVersions().FindByIDForUpdate(ctx, id)
	} else {
		v, err = repos.BudgetVersions().FindByID(ctx, id)
	}
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFoundError("budget version")
		}
		return nil, err
	}
	if err := v.EnsureTenant(tenantID); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) recordRejection(ctx context.Context, tenantID uuid.UUID, op string, err error) {
	var de *shared.DomainError
	if errors.As(err, &de) {
		s.metrics.RecordRejection(ctx, tenantID, op, de.Code)
	}
}
