package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrMethod    = "method"
	attrRoute     = "route"
	attrStatus    = "status"
	attrNamespace = "namespace"
	attrOutcome   = "outcome"
	attrOperation = "operation"
	attrBucket    = "bucket"
)

// Cache lookup outcomes.
const (
	OutcomeHit  = "hit"
	OutcomeMiss = "miss"
)

// Metrics provides methods for recording observability metrics. The zero
// value is a no-op recorder, so call sites never need nil checks.
type Metrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	cacheOperationsTotal metric.Int64Counter
	cacheErrorsTotal     metric.Int64Counter

	limiterBlocksTotal metric.Int64Counter

	activeSessions metric.Int64UpDownCounter
}

// NewMetrics creates a Metrics instance with all instruments initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.cacheOperationsTotal, err = meter.Int64Counter(
		"cache_operations_total",
		metric.WithDescription("Total number of cache lookups by namespace and outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache_operations_total counter: %w", err)
	}

	m.cacheErrorsTotal, err = meter.Int64Counter(
		"cache_errors_total",
		metric.WithDescription("Total number of cache datastore failures"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache_errors_total counter: %w", err)
	}

	m.limiterBlocksTotal, err = meter.Int64Counter(
		"ratelimit_blocks_total",
		metric.WithDescription("Total number of requests blocked by the rate limiter"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ratelimit_blocks_total counter: %w", err)
	}

	m.activeSessions, err = meter.Int64UpDownCounter(
		"active_sessions",
		metric.WithDescription("Number of currently valid sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active_sessions gauge: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, normalized route,
// status code and duration. route must already be normalized; raw paths
// explode label cardinality.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrRoute, route),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordCacheHit records a cache hit in a namespace.
func (m *Metrics) RecordCacheHit(ctx context.Context, namespace string) {
	m.recordCacheOutcome(ctx, namespace, OutcomeHit)
}

// RecordCacheMiss records a cache miss in a namespace.
func (m *Metrics) RecordCacheMiss(ctx context.Context, namespace string) {
	m.recordCacheOutcome(ctx, namespace, OutcomeMiss)
}

func (m *Metrics) recordCacheOutcome(ctx context.Context, namespace, outcome string) {
	if m == nil || m.cacheOperationsTotal == nil {
		return
	}
	m.cacheOperationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrNamespace, namespace),
		attribute.String(attrOutcome, outcome),
	))
}

// RecordCacheError records a cache datastore failure for an operation.
func (m *Metrics) RecordCacheError(ctx context.Context, operation string) {
	if m == nil || m.cacheErrorsTotal == nil {
		return
	}
	m.cacheErrorsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOperation, operation),
	))
}

// RecordLimiterBlock records a request blocked by the rate limiter.
func (m *Metrics) RecordLimiterBlock(ctx context.Context, bucket string) {
	if m == nil || m.limiterBlocksTotal == nil {
		return
	}
	m.limiterBlocksTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrBucket, bucket),
	))
}

// IncrementActiveSessions increments the active sessions gauge on login.
func (m *Metrics) IncrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return
	}
	m.activeSessions.Add(ctx, 1)
}

// DecrementActiveSessions decrements the active sessions gauge on logout or
// expiry.
func (m *Metrics) DecrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return
	}
	m.activeSessions.Add(ctx, -1)
}
