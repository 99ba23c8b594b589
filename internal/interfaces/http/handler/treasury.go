package handler

import (
	"strings"

	treasuryapp "github.com/erp/construction/internal/application/treasury"
	"github.com/erp/construction/internal/domain/treasury"
	"github.com/erp/construction/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// IdempotencyKeyHeader lets clients retry a cash transaction safely
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLength = 128

// TreasuryHandler serves bank accounts, cash transactions and outstanding balances
type TreasuryHandler struct {
	BaseHandler
	treasuryService *treasuryapp.Service
}

// NewTreasuryHandler creates a new TreasuryHandler
func NewTreasuryHandler(treasuryService *treasuryapp.Service) *TreasuryHandler {
	return &TreasuryHandler{treasuryService: treasuryService}
}

// OpenAccount handles POST /bank-accounts
func (h *TreasuryHandler) OpenAccount(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req treasuryapp.OpenAccountRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.CreatedBy = userID(c)

	account, err := h.treasuryService.OpenAccount(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, account)
}

// GetAccount handles GET /bank-accounts/:id
func (h *TreasuryHandler) GetAccount(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	accountID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	account, err := h.treasuryService.GetAccount(c.Request.Context(), tenantID, accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// ListAccounts handles GET /bank-accounts
func (h *TreasuryHandler) ListAccounts(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	filter, ok := h.bindList(c)
	if !ok {
		return
	}

	accounts, total, err := h.treasuryService.ListAccounts(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, accounts, total, filter.Page, filter.PageSize)
}

// ApplyTransaction handles POST /bank-accounts/:id/transactions. A request
// repeated with the same Idempotency-Key returns the original transaction
// with 200 instead of 201.
func (h *TreasuryHandler) ApplyTransaction(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	accountID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req treasuryapp.ApplyTransactionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.IdempotencyKey = strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if len(req.IdempotencyKey) > maxIdempotencyKeyLength {
		h.Error(c, dto.ErrCodeValidation, "Idempotency-Key is too long")
		return
	}
	req.CreatedBy = userID(c)

	result, err := h.treasuryService.ApplyTransaction(c.Request.Context(), tenantID, accountID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.Replayed {
		h.Success(c, result)
		return
	}
	h.Created(c, result)
}

// ListTransactions handles GET /bank-accounts/:id/transactions
func (h *TreasuryHandler) ListTransactions(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	accountID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var filter treasuryapp.TransactionListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	filter.Page, filter.PageSize = pageDefaults(filter.Page, filter.PageSize)

	txs, total, err := h.treasuryService.ListTransactions(c.Request.Context(), tenantID, accountID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, txs, total, filter.Page, filter.PageSize)
}

// BillingPeriodOutstanding handles GET /outstanding/billing-periods/:id
func (h *TreasuryHandler) BillingPeriodOutstanding(c *gin.Context) {
	h.outstanding(c, treasury.TargetTypeBillingPeriod)
}

// PurchaseOrderOutstanding handles GET /outstanding/purchase-orders/:id
func (h *TreasuryHandler) PurchaseOrderOutstanding(c *gin.Context) {
	h.outstanding(c, treasury.TargetTypePurchaseOrder)
}

func (h *TreasuryHandler) outstanding(c *gin.Context, targetType treasury.TargetType) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	targetID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	balance, err := h.treasuryService.OutstandingBalance(c.Request.Context(), tenantID, string(targetType), targetID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balance)
}
