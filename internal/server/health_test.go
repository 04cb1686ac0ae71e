package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct {
	latency time.Duration
	err     error
}

func (p stubPinger) Ping(context.Context) (time.Duration, error) {
	return p.latency, p.err
}

func healthServer(t *testing.T, db, cache Pinger) *Server {
	t.Helper()
	s := &Server{cfg: testConfig(t), version: "1.2.3"}
	s.dbPing = db
	s.cachePing = cache
	return s
}

func TestLiveAlwaysOK(t *testing.T) {
	s := healthServer(t, nil, nil)
	rec := httptest.NewRecorder()

	s.handleLive(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "1.2.3", body.Version)
}

func TestReadyReportsLatencies(t *testing.T) {
	s := healthServer(t,
		stubPinger{latency: 4 * time.Millisecond},
		stubPinger{latency: 2 * time.Millisecond})
	rec := httptest.NewRecorder()

	s.handleReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, int64(4), body.Checks["database"].LatencyMS)
	assert.Equal(t, int64(2), body.Checks["cache"].LatencyMS)
}

func TestReadyFailsWhenCacheDown(t *testing.T) {
	s := healthServer(t,
		stubPinger{latency: time.Millisecond},
		stubPinger{err: errors.New("connection refused")})
	rec := httptest.NewRecorder()

	s.handleReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body.Status)
	assert.Equal(t, "ok", body.Checks["database"].Status)
	assert.Equal(t, "connection refused", body.Checks["cache"].Error)
}

func TestReadyFailsWhenDatabaseDown(t *testing.T) {
	s := healthServer(t,
		stubPinger{err: errors.New("pool exhausted")},
		stubPinger{latency: time.Millisecond})
	rec := httptest.NewRecorder()

	s.handleReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthEndpointsMountedOutsideAuth(t *testing.T) {
	env := newTestEnv(t, nil)

	// No session, no CSRF token: the probes still answer.
	resp, err := http.Get(env.ts.URL + "/health/live")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
