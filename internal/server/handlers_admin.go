package server

import (
	"net/http"

	"github.com/kollabhq/kollab/internal/apierr"
)

// handleCacheStats reports cache datastore statistics. System admins only;
// an unreachable datastore is a dependency failure, not an empty report.
func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats := s.cache.Stats(r.Context())
	if stats.Unreachable {
		s.respondError(w, r, apierr.ServiceUnavailable("cache", nil))
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}
