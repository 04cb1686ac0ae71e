package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewMetrics(provider.Meter(TracerName))
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, scope := range rm.ScopeMetrics {
		for _, metric := range scope.Metrics {
			out[metric.Name] = metric
		}
	}
	return out
}

func TestRecordHTTPRequest(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordHTTPRequest(context.Background(), "GET", "/api/workspaces/:id", 200, 30*time.Millisecond)
	m.RecordHTTPRequest(context.Background(), "GET", "/api/workspaces/:id", 200, 45*time.Millisecond)

	metrics := collect(t, reader)
	requests, ok := metrics["http_requests_total"]
	require.True(t, ok)
	sum, ok := requests.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.EqualValues(t, 2, sum.DataPoints[0].Value)

	_, ok = metrics["http_request_duration_seconds"]
	assert.True(t, ok)
}

func TestRecordCacheOutcomes(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordCacheHit(context.Background(), "member")
	m.RecordCacheHit(context.Background(), "member")
	m.RecordCacheMiss(context.Background(), "member")
	m.RecordCacheError(context.Background(), "set")

	metrics := collect(t, reader)

	ops, ok := metrics["cache_operations_total"]
	require.True(t, ok)
	sum, ok := ops.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, sum.DataPoints, 2, "hit and miss are separate series")

	errs, ok := metrics["cache_errors_total"]
	require.True(t, ok)
	errSum, ok := errs.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, errSum.DataPoints, 1)
	assert.EqualValues(t, 1, errSum.DataPoints[0].Value)
}

func TestRecordLimiterBlock(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordLimiterBlock(context.Background(), "auth")
	m.RecordLimiterBlock(context.Background(), "auth")
	m.RecordLimiterBlock(context.Background(), "search")

	metrics := collect(t, reader)
	blocks, ok := metrics["ratelimit_blocks_total"]
	require.True(t, ok)
	sum, ok := blocks.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, sum.DataPoints, 2)
}

func TestActiveSessionsGauge(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.IncrementActiveSessions(context.Background())
	m.IncrementActiveSessions(context.Background())
	m.DecrementActiveSessions(context.Background())

	metrics := collect(t, reader)
	sessions, ok := metrics["active_sessions"]
	require.True(t, ok)
	sum, ok := sessions.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.EqualValues(t, 1, sum.DataPoints[0].Value)
}

func TestZeroValueMetricsAreNoOp(t *testing.T) {
	var m *Metrics
	// Must not panic.
	m.RecordHTTPRequest(context.Background(), "GET", "/", 200, time.Millisecond)
	m.RecordCacheHit(context.Background(), "member")
	m.RecordLimiterBlock(context.Background(), "auth")

	empty := &Metrics{}
	empty.RecordHTTPRequest(context.Background(), "GET", "/", 200, time.Millisecond)
	empty.RecordCacheError(context.Background(), "get")
	empty.IncrementActiveSessions(context.Background())
}
