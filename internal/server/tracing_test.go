package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func TestTracingNamesSpansByNormalizedRoute(t *testing.T) {
	sr := withSpanRecorder(t)
	s := &Server{}

	handler := s.tracing(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet,
		"/api/workspaces/6a9c5bfa-5e4f-4a52-9b1c-2a63a0a1a111/documents", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "GET /api/workspaces/:id/documents", span.Name())
	assert.Equal(t, codes.Ok, span.Status().Code)

	attrs := map[string]string{}
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "/api/workspaces/:id/documents", attrs["kollab.route"])
	assert.Equal(t, "GET", attrs["kollab.operation"])
}

func TestTracingMarksServerErrorSpans(t *testing.T) {
	sr := withSpanRecorder(t)
	s := &Server{}

	handler := s.tracing(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/workspaces", nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	// Client errors stay successful spans.
	handler = s.tracing(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/workspaces", nil))
	assert.Equal(t, codes.Ok, sr.Ended()[1].Status().Code)
}

func TestPerformanceLoggerCarriesTraceID(t *testing.T) {
	sr := withSpanRecorder(t)
	var buf bytes.Buffer
	s := newLoggingServer(t, &buf)

	handler := s.tracing(s.performanceLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/workspaces", nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)

	line := logLine(t, &buf)
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), line["trace_id"])
}
