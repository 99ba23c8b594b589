package handler

import (
	"fmt"
	"net/http"

	budgetapp "github.com/erp/construction/internal/application/budget"
	"github.com/erp/construction/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// BudgetHandler serves work orders, budget versions and budget lines
type BudgetHandler struct {
	BaseHandler
	budgetService *budgetapp.Service
}

// NewBudgetHandler creates a new BudgetHandler
func NewBudgetHandler(budgetService *budgetapp.Service) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService}
}

// CreateWorkOrder handles POST /work-orders
func (h *BudgetHandler) CreateWorkOrder(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req budgetapp.CreateWorkOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.CreatedBy = userID(c)

	wo, err := h.budgetService.CreateWorkOrder(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, wo)
}

// GetWorkOrder handles GET /work-orders/:id
func (h *BudgetHandler) GetWorkOrder(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	wo, err := h.budgetService.GetWorkOrder(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, wo)
}

// ListWorkOrders handles GET /work-orders
func (h *BudgetHandler) ListWorkOrders(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	filter, ok := h.bindList(c)
	if !ok {
		return
	}

	list, total, err := h.budgetService.ListWorkOrders(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, list, total, filter.Page, filter.PageSize)
}

// CreateVersion handles POST /work-orders/:id/budget-versions
func (h *BudgetHandler) CreateVersion(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	workOrderID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req budgetapp.CreateVersionRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}
	req.CreatedBy = userID(c)

	v, err := h.budgetService.CreateVersion(c.Request.Context(), tenantID, workOrderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, v)
}

// ListVersions handles GET /work-orders/:id/budget-versions
func (h *BudgetHandler) ListVersions(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	workOrderID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	versions, err := h.budgetService.ListVersions(c.Request.Context(), tenantID, workOrderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, versions)
}

// MarkCurrent handles POST /work-orders/:id/budget-versions/:versionId/mark-current
func (h *BudgetHandler) MarkCurrent(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	workOrderID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	versionID, ok := h.pathID(c, "versionId")
	if !ok {
		return
	}

	v, err := h.budgetService.MarkCurrent(c.Request.Context(), tenantID, workOrderID, versionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, v)
}

// GetVersion handles GET /budget-versions/:id
func (h *BudgetHandler) GetVersion(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	v, err := h.budgetService.GetVersion(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, v)
}

// AddLine handles POST /budget-versions/:id/lines
func (h *BudgetHandler) AddLine(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	versionID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req budgetapp.AddLineRequest
	if !h.bindJSON(c, &req) {
		return
	}

	line, err := h.budgetService.AddLine(c.Request.Context(), tenantID, versionID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, line)
}

// AddLines handles POST /budget-versions/:id/lines/batch
func (h *BudgetHandler) AddLines(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	versionID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req budgetapp.AddLinesRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.budgetService.AddLines(c.Request.Context(), tenantID, versionID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if len(resp.Errors) > 0 {
		details := make([]dto.ValidationDetail, len(resp.Errors))
		for i, e := range resp.Errors {
			details[i] = dto.ValidationDetail{Field: fmt.Sprintf("lines[%d]", e.Row-1), Message: e.Message}
		}
		h.setErrorCode(c, dto.ErrCodeValidation)
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
			fmt.Sprintf("%d line(s) rejected, nothing was added", len(resp.Errors)), getRequestID(c), details))
		return
	}
	h.Created(c, resp)
}

// TotalAmount handles GET /budget-versions/:id/total
func (h *BudgetHandler) TotalAmount(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	versionID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	total, err := h.budgetService.TotalAmount(c.Request.Context(), tenantID, versionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, total)
}

// RemoveLine handles DELETE /budget-lines/:id
func (h *BudgetHandler) RemoveLine(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	lineID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.budgetService.RemoveLine(c.Request.Context(), tenantID, lineID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
