package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kollabhq/kollab/internal/apierr"
)

// respondJSON writes a JSON success payload.
func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// respondError enriches a typed failure with request correlation fields and
// writes it as RFC 7807. Fields set by feature code are never overwritten.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	typed := apierr.From(err)

	extra := map[string]any{
		"path":      r.URL.Path,
		"method":    r.Method,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if p := PrincipalFrom(r.Context()); p != nil {
		extra["principalId"] = p.ID.String()
	}
	typed.MergeDetails(extra)

	apierr.WriteProblem(w, typed, s.cfg.Production())
}
