package instrumentation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderDisabled(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Enabled: false})
	require.NoError(t, err)

	assert.NotNil(t, p.Metrics(), "recorder must be usable even when disabled")
	assert.NoError(t, p.Shutdown(context.Background()))

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewProviderPrometheus(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{
		ServiceName:     "kollab-test",
		Enabled:         true,
		MetricsExporter: "prometheus",
		TracingExporter: "none",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	p.Metrics().RecordLimiterBlock(context.Background(), "auth")

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ratelimit_blocks_total")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "kollab", cfg.ServiceName)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "prometheus", cfg.MetricsExporter)
	assert.Equal(t, "none", cfg.TracingExporter)
	assert.InDelta(t, 0.1, cfg.TraceSamplingRate, 0.0001)
}
