package treasury

import (
	"context"
	"errors"
	"fmt"
	"time"

	appshared "github.com/erp/construction/internal/application/shared"
	"github.com/erp/construction/internal/domain/billing"
	"github.com/erp/construction/internal/domain/procurement"
	"github.com/erp/construction/internal/domain/shared"
	"github.com/erp/construction/internal/domain/shared/valueobject"
	"github.com/erp/construction/internal/domain/treasury"
	"github.com/erp/construction/internal/infrastructure/logger"
	"github.com/erp/construction/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultIdempotencyTTL is how long a completed Idempotency-Key is remembered
const DefaultIdempotencyTTL = 24 * time.Hour

// Service applies cash movements to bank accounts and settles billing
// periods and purchase orders.
type Service struct {
	repos          appshared.Repositories
	scope          appshared.TransactionScope
	idempotency    appshared.IdempotencyStore
	idempotencyTTL time.Duration
	logger         *zap.Logger
	metrics        *telemetry.FinanceMetrics
}

// NewService creates a treasury Service. A nil idempotency store disables
// Idempotency-Key handling.
func NewService(repos appshared.Repositories, scope appshared.TransactionScope, idempotency appshared.IdempotencyStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repos:          repos,
		scope:          scope,
		idempotency:    idempotency,
		idempotencyTTL: DefaultIdempotencyTTL,
		logger:         log.Named("treasury"),
	}
}

// SetFinanceMetrics sets the metrics collector
func (s *Service) SetFinanceMetrics(m *telemetry.FinanceMetrics) {
	s.metrics = m
}

// SetIdempotencyTTL overrides DefaultIdempotencyTTL
func (s *Service) SetIdempotencyTTL(ttl time.Duration) {
	if ttl > 0 {
		s.idempotencyTTL = ttl
	}
}

// OpenAccount opens a bank account
func (s *Service) OpenAccount(ctx context.Context, tenantID uuid.UUID, req OpenAccountRequest) (*BankAccountResponse, error) {
	account, err := treasury.NewBankAccount(tenantID, req.Name, req.BankName, req.AccountNumber, valueobject.Currency(req.Currency), req.OpeningBalance)
	if err != nil {
		return nil, err
	}
	if req.CreatedBy != nil {
		account.SetCreatedBy(*req.CreatedBy)
	}
	if err := s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		return repos.BankAccounts().Save(ctx, account)
	}); err != nil {
		return nil, err
	}

	appshared.FlushEvents(ctx, s.logger, account)
	response := ToBankAccountResponse(account)
	return &response, nil
}

// GetAccount retrieves a bank account
func (s *Service) GetAccount(ctx context.Context, tenantID, accountID uuid.UUID) (*BankAccountResponse, error) {
	account, err := s.loadAccount(ctx, s.repos, tenantID, accountID, false)
	if err != nil {
		return nil, err
	}
	response := ToBankAccountResponse(account)
	return &response, nil
}

// ListAccounts lists the tenant's bank accounts
func (s *Service) ListAccounts(ctx context.Context, tenantID uuid.UUID, filter appshared.ListFilter) ([]BankAccountResponse, int64, error) {
	accounts, total, err := s.repos.BankAccounts().FindAllForTenant(ctx, tenantID, filter.ToDomain())
	if err != nil {
		return nil, 0, err
	}
	out := make([]BankAccountResponse, len(accounts))
	for i := range accounts {
		out[i] = ToBankAccountResponse(&accounts[i])
	}
	return out, total, nil
}

// ListTransactions lists an account's journal, newest first
func (s *Service) ListTransactions(ctx context.Context, tenantID, accountID uuid.UUID, filter TransactionListFilter) ([]CashTransactionResponse, int64, error) {
	if _, err := s.loadAccount(ctx, s.repos, tenantID, accountID, false); err != nil {
		return nil, 0, err
	}
	domainFilter := appshared.ListFilter{Page: filter.Page, PageSize: filter.PageSize}.ToDomain()
	if filter.Kind != "" {
		domainFilter.Filters["kind"] = filter.Kind
	}
	txs, total, err := s.repos.CashTransactions().FindByAccount(ctx, tenantID, accountID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToCashTransactionResponses(txs), total, nil
}

// ApplyTransaction records a cash movement on an account. When a target is
// given, the amount is applied to that billing period or purchase order in the
// same transaction, with both rows locked.
//
// With an idempotency key, a retry of a completed request returns the original
// transaction instead of applying the amount again.
func (s *Service) ApplyTransaction(ctx context.Context, tenantID, accountID uuid.UUID, req ApplyTransactionRequest) (_ *ApplyTransactionResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "treasury", "ApplyTransaction",
		telemetry.SpanAttrTenantID.String(tenantID.String()),
		telemetry.SpanAttrBankAccountID.String(accountID.String()),
		telemetry.SpanAttrAmount.String(req.Amount.String()),
	)
	defer telemetry.EndSpan(span, &err)

	if !req.Amount.IsPositive() {
		s.metrics.RecordRejection(ctx, tenantID, "apply_transaction", shared.CodeNegativeAmount)
		return nil, shared.ErrNegativeAmount
	}
	kind := treasury.TransactionKind(req.Kind)
	target, err := buildTarget(kind, req)
	if err != nil {
		return nil, err
	}

	key := ""
	if req.IdempotencyKey != "" && s.idempotency != nil {
		key = fmt.Sprintf("treasury:%s:%s:%s", tenantID, accountID, req.IdempotencyKey)
		claimed, result, err := s.idempotency.Reserve(ctx, key, s.idempotencyTTL)
		if err != nil {
			return nil, fmt.Errorf("reserve idempotency key: %w", err)
		}
		if !claimed {
			return s.replay(ctx, tenantID, accountID, result)
		}
	}

	var (
		account *treasury.BankAccount
		tx      *treasury.CashTransaction
		period  *billing.BillingPeriod
		order   *procurement.PurchaseOrder
	)
	err = s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		var err error
		account, err = s.loadAccount(ctx, repos, tenantID, accountID, true)
		if err != nil {
			return err
		}

		var settle treasury.Settleable
		if target != nil {
			switch target.Type {
			case treasury.TargetTypeBillingPeriod:
				period, err = loadBillingPeriod(ctx, repos, tenantID, target.ID, true)
				settle = period
			case treasury.TargetTypePurchaseOrder:
				order, err = loadPurchaseOrder(ctx, repos, tenantID, target.ID, true)
				settle = order
			}
			if err != nil {
				return err
			}
		}

		tx, err = account.ApplyTransaction(kind, req.Amount, target, settle, req.Reference, req.Description)
		if err != nil {
			return err
		}
		tx.CreatedBy = req.CreatedBy

		if err := repos.BankAccounts().Save(ctx, account); err != nil {
			return err
		}
		if period != nil {
			if err := repos.BillingPeriods().Save(ctx, period); err != nil {
				return err
			}
		}
		if order != nil {
			if err := repos.PurchaseOrders().Save(ctx, order); err != nil {
				return err
			}
		}
		return repos.CashTransactions().Create(ctx, tx)
	})
	if err != nil {
		if key != "" {
			if relErr := s.idempotency.Release(ctx, key); relErr != nil {
				logger.WithLogger(ctx, s.logger).Warn("Failed to release idempotency key", zap.Error(relErr))
			}
		}
		var de *shared.DomainError
		if errors.As(err, &de) {
			s.metrics.RecordRejection(ctx, tenantID, "apply_transaction", de.Code)
		}
		return nil, err
	}

	if key != "" {
		if err := s.idempotency.Complete(ctx, key, tx.ID.String(), s.idempotencyTTL); err != nil {
			logger.WithLogger(ctx, s.logger).Warn("Failed to store idempotency result", zap.Error(err))
		}
	}

	s.metrics.RecordCashTransaction(ctx, tenantID, kind.String(), tx.Amount)
	logger.WithLogger(ctx, s.logger).Info("Cash transaction applied",
		zap.String("tenant_id", tenantID.String()),
		zap.String("bank_account_id", account.ID.String()),
		zap.String("transaction_id", tx.ID.String()),
		zap.String("kind", kind.String()),
		zap.String("amount", tx.Amount.String()),
		zap.String("balance_after", tx.BalanceAfter.String()),
	)
	appshared.FlushEvents(ctx, s.logger, account)

	response := &ApplyTransactionResponse{
		Transaction: ToCashTransactionResponse(tx),
		Account:     ToBankAccountResponse(account),
	}
	switch {
	case period != nil:
		response.Target = billingOutstanding(period)
	case order != nil:
		response.Target = orderOutstanding(order)
	}
	return response, nil
}

// OutstandingBalance returns total (or net amount) minus paid of a document
func (s *Service) OutstandingBalance(ctx context.Context, tenantID uuid.UUID, targetType string, targetID uuid.UUID) (*OutstandingResponse, error) {
	switch treasury.TargetType(targetType) {
	case treasury.TargetTypeBillingPeriod:
		p, err := loadBillingPeriod(ctx, s.repos, tenantID, targetID, false)
		if err != nil {
			return nil, err
		}
		return billingOutstanding(p), nil
	case treasury.TargetTypePurchaseOrder:
		o, err := loadPurchaseOrder(ctx, s.repos, tenantID, targetID, false)
		if err != nil {
			return nil, err
		}
		return orderOutstanding(o), nil
	}
	return nil, shared.NewValidationError("unknown target type %q", targetType)
}

// replay answers a retried request from the stored transaction
func (s *Service) replay(ctx context.Context, tenantID, accountID uuid.UUID, result string) (*ApplyTransactionResponse, error) {
	if result == "" {
		return nil, shared.NewDomainError(shared.CodeConcurrencyConflict,
			"a request with this idempotency key is still being processed")
	}
	txID, err := uuid.Parse(result)
	if err != nil {
		return nil, fmt.Errorf("corrupt idempotency result %q: %w", result, err)
	}
	tx, err := s.repos.CashTransactions().FindByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.TenantID != tenantID || tx.BankAccountID != accountID {
		return nil, shared.ErrForbidden
	}
	account, err := s.loadAccount(ctx, s.repos, tenantID, accountID, false)
	if err != nil {
		return nil, err
	}

	response := &ApplyTransactionResponse{
		Transaction: ToCashTransactionResponse(tx),
		Account:     ToBankAccountResponse(account),
		Replayed:    true,
	}
	if ref := tx.Target(); ref != nil {
		target, err := s.OutstandingBalance(ctx, tenantID, string(ref.Type), ref.ID)
		if err != nil {
			return nil, err
		}
		response.Target = target
	}
	logger.WithLogger(ctx, s.logger).Info("Replayed idempotent cash transaction",
		zap.String("tenant_id", tenantID.String()),
		zap.String("transaction_id", tx.ID.String()),
	)
	return response, nil
}

func buildTarget(kind treasury.TransactionKind, req ApplyTransactionRequest) (*treasury.TargetRef, error) {
	if !kind.IsValid() {
		return nil, shared.NewValidationError("unknown transaction kind %q", req.Kind)
	}
	if req.TargetType == "" && req.TargetID == nil {
		return nil, nil
	}
	if req.TargetType == "" || req.TargetID == nil {
		return nil, shared.NewValidationError("target_type and target_id must be given together")
	}
	target := &treasury.TargetRef{Type: treasury.TargetType(req.TargetType), ID: *req.TargetID}
	if err := target.Validate(kind); err != nil {
		return nil, err
	}
	return target, nil
}

func (s *Service) loadAccount(ctx context.Context, repos appshared.Repositories, tenantID, id uuid.UUID, forUpdate bool) (*treasury.BankAccount, error) {
	var (
		a   *treasury.BankAccount
		err error
	)
	if forUpdate {
		a, err = repos.BankAccounts().FindByIDForUpdate(ctx, id)
	} else {
		a, err = repos.BankAccounts().FindByID(ctx, id)
	}
	if err != nil {
		return nil, notFoundAs(err, "bank account")
	}
	if err := a.EnsureTenant(tenantID); err != nil {
		return nil, err
	}
	return a, nil
}

func loadBillingPeriod(ctx context.Context, repos appshared.Repositories, tenantID, id uuid.UUID, forUpdate bool) (*billing.BillingPeriod, error) {
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

func loadPurchaseOrder(ctx context.Context, repos appshared.Repositories, tenantID, id uuid.UUID, forUpdate bool) (*procurement.PurchaseOrder, error) {
	var (
		o   *procurement.PurchaseOrder
		err error
	)
	if forUpdate {
		o, err = repos.PurchaseOrders().FindByIDForUpdate(ctx, id)
	} else {
		o, err = repos.PurchaseOrders().FindByID(ctx, id)
	}
	if err != nil {
		return nil, notFoundAs(err, "purchase order")
	}
	if err := o.EnsureTenant(tenantID); err != nil {
		return nil, err
	}
	return o, nil
}

func billingOutstanding(p *billing.BillingPeriod) *OutstandingResponse {
	return &OutstandingResponse{
		TargetType:  string(treasury.TargetTypeBillingPeriod),
		TargetID:    p.ID,
		Status:      p.Status.String(),
		Total:       p.NetAmount,
		Paid:        p.Paid,
		Outstanding: p.OutstandingBalance(),
	}
}

func orderOutstanding(o *procurement.PurchaseOrder) *OutstandingResponse {
	return &OutstandingResponse{
		TargetType:  string(treasury.TargetTypePurchaseOrder),
		TargetID:    o.ID,
		Status:      o.Status.String(),
		Total:       o.Total,
		Paid:        o.Paid,
		Outstanding: o.OutstandingBalance(),
	}
}

func notFoundAs(err error, resource string) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NewNotFoundError(resource)
	}
	return err
}
