package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/pkordes/placekeeper/internal/middleware"
)

const (
	callerTraceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	traceparent   = "00-" + callerTraceID + "-00f067aa0ba902b7-01"
)

// recordSpans installs an in-memory tracer provider and the TraceContext
// propagator for the duration of the test.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		otel.SetTracerProvider(noop.NewTracerProvider())
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator())
	})
	return rec
}

func tracedRouter(status int, seen *trace.SpanContext) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.NewTraceHandler("placekeeper"))
	r.Post("/api/v1/onboarding/{tour}/complete", func(w http.ResponseWriter, r *http.Request) {
		*seen = trace.SpanContextFromContext(r.Context())
		w.WriteHeader(status)
	})
	return r
}

func TestTraceHandler_ContinuesCallerTrace(t *testing.T) {
	rec := recordSpans(t)
	var seen trace.SpanContext

	req := httptest.NewRequest(http.MethodPost, "/api/v1/onboarding/people/complete", nil)
	req.Header.Set("traceparent", traceparent)
	tracedRouter(http.StatusOK, &seen).ServeHTTP(httptest.NewRecorder(), req)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "POST /api/v1/onboarding/{tour}/complete", span.Name())
	assert.Equal(t, trace.SpanKindServer, span.SpanKind())
	assert.Equal(t, callerTraceID, span.Parent().TraceID().String())
	assert.True(t, span.Parent().IsRemote())
	assert.Equal(t, span.SpanContext().SpanID(), seen.SpanID(), "handler runs inside the server span")
	assert.Equal(t, codes.Unset, span.Status().Code)
}

func TestTraceHandler_StartsRootWithoutHeader(t *testing.T) {
	rec := recordSpans(t)
	var seen trace.SpanContext

	req := httptest.NewRequest(http.MethodPost, "/api/v1/onboarding/locations/complete", nil)
	tracedRouter(http.StatusInternalServerError, &seen).ServeHTTP(httptest.NewRecorder(), req)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.False(t, spans[0].Parent().IsValid())
	assert.True(t, seen.IsValid())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}
