package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/construction/internal/domain/shared"
	"github.com/erp/construction/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer installs a tracer provider backed by an in-memory recorder
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrValue(attrs []attribute.KeyValue, key attribute.Key) (attribute.Value, bool) {
	for _, a := range attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, span := telemetry.StartServiceSpan(context.Background(), "treasury", "apply_transaction",
		telemetry.SpanAttrAmount.String("2900.00"))
	assert.NotEmpty(t, telemetry.GetTraceID(ctx))
	telemetry.EndSpan(span, nil)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "treasury.apply_transaction", spans[0].Name())
	v, ok := attrValue(spans[0].Attributes(), telemetry.SpanAttrAmount)
	require.True(t, ok)
	assert.Equal(t, "2900.00", v.AsString())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
}

func TestEndSpan_DomainErrorKeepsStatus(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "billing", "add_line")
	var err error = shared.NewDomainError(shared.CodeOverAllocation, "too much")
	telemetry.EndSpan(span, &err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	v, ok := attrValue(spans[0].Attributes(), telemetry.SpanAttrErrorCode)
	require.True(t, ok)
	assert.Equal(t, shared.CodeOverAllocation, v.AsString())
}

func TestEndSpan_InfrastructureErrorFailsSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "procurement", "receive")
	err := errors.New("connection reset")
	telemetry.EndSpan(span, &err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "connection reset", spans[0].Status().Description)
	require.Len(t, spans[0].Events(), 1)
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, telemetry.GetTraceID(context.Background()))
}
