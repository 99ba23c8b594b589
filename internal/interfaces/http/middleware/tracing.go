// Package middleware provides the gin middleware of the HTTP API.
package middleware

import (
	"net/http"

	"github.com/erp/construction/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrorCodeKey is set by handlers to the API error code of a failed request
const ErrorCodeKey = "error_code"

// maxRequestIDLength caps header-supplied request IDs in span attributes
const maxRequestIDLength = 128

// Tracing opens a server span per request. Without enabled it is a
// pass-through.
func Tracing(serviceName string, enabled bool, opts ...otelgin.Option) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return otelgin.Middleware(serviceName, opts...)
}

// SpanEnricher adds request, tenant and user attributes to the server span
// and tags failed requests with their API error code. It must run after
// Tracing and the JWT middleware.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}

		if requestID := c.GetString(RequestIDKey); requestID != "" {
			if len(requestID) > maxRequestIDLength {
				requestID = requestID[:maxRequestIDLength]
			}
			span.SetAttributes(attribute.String("request_id", requestID))
		}
		if tenantID, ok := GetJWTTenantID(c); ok {
			span.SetAttributes(telemetry.SpanAttrTenantID.String(tenantID.String()))
		}
		if userID, ok := GetJWTUserID(c); ok {
			span.SetAttributes(attribute.String("user_id", userID.String()))
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			if code := c.GetString(ErrorCodeKey); code != "" {
				span.SetAttributes(telemetry.SpanAttrErrorCode.String(code))
			}
		}
	}
}
