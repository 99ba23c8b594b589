package handler

import (
	"context"
	"errors"
	"net/http"

	appshared "github.com/erp/construction/internal/application/shared"
	"github.com/erp/construction/internal/domain/shared"
	"github.com/erp/construction/internal/infrastructure/logger"
	"github.com/erp/construction/internal/interfaces/http/dto"
	"github.com/erp/construction/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	return c.GetString(middleware.RequestIDKey)
}

// tenantID returns the caller's tenant from the validated token. Requests
// without one are answered with 401 and ok is false.
func (h *BaseHandler) tenantID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.GetJWTTenantID(c)
	if !ok {
		h.Error(c, dto.ErrCodeUnauthorized, "Authentication required")
	}
	return id, ok
}

// userID returns the authenticated user, nil when absent
func userID(c *gin.Context) *uuid.UUID {
	if id, ok := middleware.GetJWTUserID(c); ok {
		return &id
	}
	return nil
}

// pathID parses a UUID path parameter, answering 400 when malformed
func (h *BaseHandler) pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.Error(c, dto.ErrCodeValidation, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON binds the body into req, answering 400 with field details on failure
func (h *BaseHandler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.setErrorCode(c, dto.ErrCodeValidation)
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// bindQuery binds query parameters into req, answering 400 on failure
func (h *BaseHandler) bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		h.setErrorCode(c, dto.ErrCodeValidation)
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// bindList binds paging query parameters and fills their defaults
func (h *BaseHandler) bindList(c *gin.Context) (appshared.ListFilter, bool) {
	var filter appshared.ListFilter
	if !h.bindQuery(c, &filter) {
		return filter, false
	}
	filter.Page, filter.PageSize = pageDefaults(filter.Page, filter.PageSize)
	return filter, true
}

func pageDefaults(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return page, pageSize
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response, deriving the status from the API code
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	h.setErrorCode(c, code)
	c.AbortWithStatusJSON(dto.GetHTTPStatus(code), dto.NewErrorResponse(code, message, getRequestID(c)))
}

func (h *BaseHandler) setErrorCode(c *gin.Context, code string) {
	c.Set(middleware.ErrorCodeKey, code)
}

// HandleError converts service errors to HTTP responses. Domain errors keep
// their message; anything else is logged and reported as internal.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.Error(c, dto.NormalizeErrorCode(domainErr.Code), domainErr.Message)
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		h.Error(c, dto.ErrCodeTimeout, "Request timed out")
		return
	}

	logger.GetGinLogger(c).Error("Unhandled service error",
		zap.Error(err),
		zap.String("path", c.FullPath()),
	)
	h.Error(c, dto.ErrCodeInternal, "An unexpected error occurred")
}
