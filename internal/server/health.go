package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger verifies a dependency and reports its round-trip latency.
type Pinger interface {
	Ping(ctx context.Context) (time.Duration, error)
}

// HealthResponse is the JSON payload of both health endpoints.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Checks  map[string]CheckResult `json:"checks,omitempty"`
	Version string                 `json:"version,omitempty"`
}

// CheckResult reports one dependency check.
type CheckResult struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}

// handleLive is the liveness probe: if the process can answer, it is alive.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(HealthResponse{Status: "ok", Version: s.version})
}

// handleReady is the readiness probe. Both mandatory dependencies are
// checked with latency; any failure turns the response 503.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]CheckResult{
		"database": s.checkDependency(r.Context(), s.dbPing),
		"cache":    s.checkDependency(r.Context(), s.cachePing),
	}

	status := "ok"
	code := http.StatusOK
	for _, c := range checks {
		if c.Status != "ok" {
			status = "not ready"
			code = http.StatusServiceUnavailable
			break
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(HealthResponse{
		Status:  status,
		Checks:  checks,
		Version: s.version,
	})
}

func (s *Server) checkDependency(ctx context.Context, p Pinger) CheckResult {
	if p == nil {
		return CheckResult{Status: "error", Error: "not configured"}
	}
	latency, err := p.Ping(ctx)
	if err != nil {
		return CheckResult{Status: "error", Error: err.Error()}
	}
	return CheckResult{Status: "ok", LatencyMS: latency.Milliseconds()}
}
