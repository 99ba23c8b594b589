package handler

import (
	"context"

	billingapp "github.com/erp/construction/internal/application/billing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BillingHandler serves progress billing periods
type BillingHandler struct {
	BaseHandler
	billingService *billingapp.Service
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(billingService *billingapp.Service) *BillingHandler {
	return &BillingHandler{billingService: billingService}
}

// CreatePeriod handles POST /work-orders/:id/billing-periods
func (h *BillingHandler) CreatePeriod(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	workOrderID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req billingapp.CreatePeriodRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.CreatedBy = userID(c)

	p, err := h.billingService.CreatePeriod(c.Request.Context(), tenantID, workOrderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, p)
}

// ListPeriods handles GET /work-orders/:id/billing-periods
func (h *BillingHandler) ListPeriods(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	workOrderID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	filter, ok := h.bindList(c)
	if !ok {
		return
	}

	list, total, err := h.billingService.List(c.Request.Context(), tenantID, workOrderID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, list, total, filter.Page, filter.PageSize)
}

// GetPeriod handles GET /billing-periods/:id
func (h *BillingHandler) GetPeriod(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	p, err := h.billingService.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// DeletePeriod handles DELETE /billing-periods/:id
func (h *BillingHandler) DeletePeriod(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.billingService.Delete(c.Request.Context(), tenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// AddLine handles POST /billing-periods/:id/lines
func (h *BillingHandler) AddLine(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	periodID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req billingapp.AddBillingLineRequest
	if !h.bindJSON(c, &req) {
		return
	}

	p, err := h.billingService.AddBillingLine(c.Request.Context(), tenantID, periodID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, p)
}

// RemoveLine handles DELETE /billing-periods/:id/lines/:lineId
func (h *BillingHandler) RemoveLine(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	periodID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	lineID, ok := h.pathID(c, "lineId")
	if !ok {
		return
	}

	p, err := h.billingService.RemoveBillingLine(c.Request.Context(), tenantID, periodID, lineID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// Recompute handles POST /billing-periods/:id/recompute
func (h *BillingHandler) Recompute(c *gin.Context) {
	h.transition(c, h.billingService.RecomputeTotals)
}

// Submit handles POST /billing-periods/:id/submit
func (h *BillingHandler) Submit(c *gin.Context) {
	h.transition(c, h.billingService.Submit)
}

// Approve handles POST /billing-periods/:id/approve
func (h *BillingHandler) Approve(c *gin.Context) {
	h.transition(c, h.billingService.Approve)
}

// Invoice handles POST /billing-periods/:id/invoice
func (h *BillingHandler) Invoice(c *gin.Context) {
	h.transition(c, h.billingService.Invoice)
}

// Cancel handles POST /billing-periods/:id/cancel
func (h *BillingHandler) Cancel(c *gin.Context) {
	var req billingapp.CancelPeriodRequest
	h.transition(c, func(ctx context.Context, tenantID, periodID uuid.UUID) (*billingapp.BillingPeriodResponse, error) {
		return h.billingService.Cancel(ctx, tenantID, periodID, req)
	}, &req)
}

// transition runs a body-less (or, with body, bound) period operation
func (h *BillingHandler) transition(c *gin.Context, op func(context.Context, uuid.UUID, uuid.UUID) (*billingapp.BillingPeriodResponse, error), body ...any) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	periodID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	for _, b := range body {
		if !h.bindJSON(c, b) {
			return
		}
	}

	p, err := op(c.Request.Context(), tenantID, periodID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// Cumulative handles GET /budget-lines/:id/cumulative
func (h *BillingHandler) Cumulative(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	lineID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	cum, err := h.billingService.Cumulative(c.Request.Context(), tenantID, lineID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cum)
}
