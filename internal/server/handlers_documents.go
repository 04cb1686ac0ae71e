package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kollabhq/kollab/internal/apierr"
	"github.com/kollabhq/kollab/internal/cache"
	"github.com/kollabhq/kollab/internal/store"
)

// List page bounds shared by the listing endpoints.
const (
	defaultListLimit = 50
	maxListLimit     = 100
)

type documentRequest struct {
	Title   string `json:"title" validate:"required,max=500"`
	Content string `json:"content"`
}

type documentListResponse struct {
	Documents  []store.Document `json:"documents"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

// listLimit parses the limit query parameter within bounds.
func listLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, apierr.Validation("limit must be a positive integer")
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit, nil
}

// resourceIDParam parses a uuid path segment, naming the resource on failure.
func resourceIDParam(r *http.Request, param, resource string) (uuid.UUID, error) {
	return resourceID(chi.URLParam(r, param), resource)
}

// resourceID parses a uuid string, naming the resource on failure.
func resourceID(raw, resource string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apierr.Validation("invalid %s id", resource)
	}
	return id, nil
}

// handleListDocuments lists unarchived documents with cursor pagination,
// newest first. Only the default first page rides the cache; cursor pages
// are already bounded by the keyset.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	workspace, err := s.workspaceFromRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.authorize(r, workspace.ID, store.RoleViewer); err != nil {
		s.respondError(w, r, err)
		return
	}

	limit, err := listLimit(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	cursor, err := store.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	fetch := func(ctx context.Context) ([]store.Document, error) {
		return s.repo.ListDocuments(ctx, workspace.ID, cursor, limit)
	}

	var docs []store.Document
	if cursor == nil && limit == defaultListLimit {
		docs, err = cache.GetOrCompute(r.Context(), s.cache,
			cache.DocumentsListKey(workspace.ID.String()), cache.TTLList, fetch)
	} else {
		docs, err = fetch(r.Context())
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp := documentListResponse{Documents: docs}
	if len(docs) > limit {
		resp.Documents = docs[:limit]
		last := resp.Documents[limit-1]
		resp.NextCursor = store.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	workspace, err := s.workspaceFromRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.authorize(r, workspace.ID, store.RoleEditor); err != nil {
		s.respondError(w, r, err)
		return
	}

	var req documentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	doc, err := s.repo.CreateDocument(r.Context(), workspace.ID, PrincipalFrom(r.Context()).ID, req.Title, req.Content)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.cache.Delete(r.Context(), cache.DocumentsListKey(workspace.ID.String()))

	s.respondJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	workspace, err := s.workspaceFromRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.authorize(r, workspace.ID, store.RoleViewer); err != nil {
		s.respondError(w, r, err)
		return
	}
	id, err := resourceIDParam(r, "documentID", "document")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	doc, err := s.repo.GetDocument(r.Context(), workspace.ID, id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	workspace, err := s.workspaceFromRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.authorize(r, workspace.ID, store.RoleEditor); err != nil {
		s.respondError(w, r, err)
		return
	}
	id, err := resourceIDParam(r, "documentID", "document")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req documentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	doc, err := s.repo.UpdateDocument(r.Context(), workspace.ID, id, req.Title, req.Content)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.cache.Delete(r.Context(), cache.DocumentsListKey(workspace.ID.String()))

	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleArchiveDocument(w http.ResponseWriter, r *http.Request) {
	workspace, err := s.workspaceFromRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.authorize(r, workspace.ID, store.RoleEditor); err != nil {
		s.respondError(w, r, err)
		return
	}
	id, err := resourceIDParam(r, "documentID", "document")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.repo.ArchiveDocument(r.Context(), workspace.ID, id); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.cache.Delete(r.Context(), cache.DocumentsListKey(workspace.ID.String()))

	s.respondJSON(w, http.StatusNoContent, nil)
}
