package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/kollabhq/kollab/internal/apierr"
	"github.com/kollabhq/kollab/internal/cache"
	"github.com/kollabhq/kollab/internal/store"
)

const maxSearchQueryLength = 200

// handleSearch runs a cross-resource search within a workspace. Result sets
// are cached under a key hashing the full input tuple.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	workspace, err := s.workspaceFromRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.authorize(r, workspace.ID, store.RoleViewer); err != nil {
		s.respondError(w, r, err)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.respondError(w, r, apierr.Validation("missing search query"))
		return
	}
	if len(query) > maxSearchQueryLength {
		s.respondError(w, r, apierr.Validation("search query exceeds %d characters", maxSearchQueryLength))
		return
	}
	limit, err := listLimit(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	results, err := cache.GetOrCompute(r.Context(), s.cache,
		cache.SearchKey(query, workspace.ID.String(), limit), cache.TTLSearch,
		func(ctx context.Context) ([]store.SearchResult, error) {
			return s.repo.SearchResources(ctx, workspace.ID, query, limit)
		})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"results": results, "query": query})
}
