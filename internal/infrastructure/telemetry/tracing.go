package telemetry

import (
	"context"
	"errors"

	"github.com/erp/construction/internal/domain/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of application spans
const TracerName = "github.com/erp/construction"

// Span attribute keys shared by the application services
var (
	SpanAttrTenantID      = attribute.Key("erp.tenant_id")
	SpanAttrWorkOrderID   = attribute.Key("erp.work_order_id")
	SpanAttrPeriodID      = attribute.Key("erp.billing_period_id")
	SpanAttrBudgetLineID  = attribute.Key("erp.budget_line_id")
	SpanAttrOrderID       = attribute.Key("erp.purchase_order_id")
	SpanAttrBankAccountID = attribute.Key("erp.bank_account_id")
	SpanAttrAmount        = attribute.Key("erp.amount")
	SpanAttrQuantity      = attribute.Key("erp.quantity")
	SpanAttrErrorCode     = attribute.Key("erp.error_code")
)

// StartServiceSpan starts an internal span named {service}.{method}.
// The caller must end it, usually with EndSpan.
func StartServiceSpan(ctx context.Context, service, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, service+"."+method,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// EndSpan ends span and records *errp on it. Business rule rejections only
// carry their error code; any other error marks the span as failed.
//
//	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "add_line")
//	defer telemetry.EndSpan(span, &err)
func EndSpan(span trace.Span, errp *error) {
	if errp != nil && *errp != nil {
		var de *shared.DomainError
		if errors.As(*errp, &de) {
			span.SetAttributes(SpanAttrErrorCode.String(de.Code))
		} else {
			span.RecordError(*errp)
			span.SetStatus(codes.Error, (*errp).Error())
		}
	}
	span.End()
}

// GetTraceID returns the trace ID of the span in ctx, or "" without one
func GetTraceID(ctx context.Context) string {
	traceID := trace.SpanFromContext(ctx).SpanContext().TraceID()
	if !traceID.IsValid() {
		return ""
	}
	return traceID.String()
}
