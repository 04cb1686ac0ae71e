package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kollabhq/kollab/internal/apierr"
	"github.com/kollabhq/kollab/internal/cache"
	"github.com/kollabhq/kollab/internal/logging"
	"github.com/kollabhq/kollab/internal/store"
)

type createWorkspaceRequest struct {
	Name string `json:"name" validate:"required,max=255"`
	Slug string `json:"slug" validate:"omitempty,max=255"`
}

type updateWorkspaceRequest struct {
	Name     string          `json:"name" validate:"required,max=255"`
	Settings json.RawMessage `json:"settings"`
}

type workspaceResponse struct {
	Workspace *store.Workspace `json:"workspace"`
	Role      store.Role       `json:"role,omitempty"`
}

// workspaceFromRequest resolves the {workspaceID} path segment, which may be
// a workspace id or a slug. Lookups by id ride the workspace cache.
func (s *Server) workspaceFromRequest(r *http.Request) (*store.Workspace, error) {
	ref := chi.URLParam(r, "workspaceID")
	if ref == "" {
		return nil, apierr.Validation("missing workspace reference")
	}

	if id, err := uuid.Parse(ref); err == nil {
		return cache.GetOrCompute(r.Context(), s.cache, cache.WorkspaceKey(id.String()), cache.TTLWorkspace,
			func(ctx context.Context) (*store.Workspace, error) {
				return s.repo.GetWorkspace(ctx, id)
			})
	}
	return s.repo.GetWorkspaceBySlug(r.Context(), ref)
}

// authorize enforces a minimum role on the workspace for the authenticated
// principal. The system-admin override grants owner without consulting the
// resolver or its cache.
func (s *Server) authorize(r *http.Request, workspaceID uuid.UUID, min store.Role) (*store.Membership, error) {
	principal := PrincipalFrom(r.Context())
	if principal == nil {
		return nil, apierr.Unauthenticated("missing session")
	}
	if SystemAdminFrom(r.Context()) {
		return &store.Membership{
			WorkspaceID: workspaceID,
			PrincipalID: principal.ID,
			Role:        store.RoleOwner,
		}, nil
	}
	return s.resolver.Require(r.Context(), workspaceID, principal.ID, min)
}

func (s *Server) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFrom(r.Context())
	workspaces, err := s.repo.ListWorkspacesForPrincipal(r.Context(), principal.ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"workspaces": workspaces})
}

func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req createWorkspaceRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	slug := req.Slug
	if slug == "" {
		slug = fmt.Sprintf("%s-%d", slugify(req.Name), time.Now().Unix())
	}

	principal := PrincipalFrom(r.Context())
	workspace, err := s.repo.CreateWorkspaceWithOwner(r.Context(), slug, req.Name, principal.ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.logger.Info("workspace created",
		logging.Workspace(workspace.ID.String()),
		logging.Principal(principal.ID.String()))
	s.respondJSON(w, http.StatusCreated, workspaceResponse{Workspace: workspace, Role: store.RoleOwner})
}

func (s *Server) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	workspace, err := s.workspaceFromRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	membership, err := s.authorize(r, workspace.ID, store.RoleViewer)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, workspaceResponse{Workspace: workspace, Role: membership.Role})
}

func (s *Server) handleUpdateWorkspace(w http.ResponseWriter, r *http.Request) {
	workspace, err := s.workspaceFromRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.authorize(r, workspace.ID, store.RoleAdmin); err != nil {
		s.respondError(w, r, err)
		return
	}

	var req updateWorkspaceRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	updated, err := s.repo.UpdateWorkspace(r.Context(), workspace.ID, req.Name, req.Settings)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.cache.Delete(r.Context(), cache.WorkspaceKey(workspace.ID.String()))

	s.respondJSON(w, http.StatusOK, workspaceResponse{Workspace: updated})
}

// handleDeleteWorkspace removes the workspace and drops every cache entry it
// could have produced. Owner only.
func (s *Server) handleDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	workspace, err := s.workspaceFromRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.authorize(r, workspace.ID, store.RoleOwner); err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.repo.DeleteWorkspace(r.Context(), workspace.ID); err != nil {
		s.respondError(w, r, err)
		return
	}

	id := workspace.ID
	s.resolver.InvalidateWorkspace(r.Context(), id)
	s.cache.Delete(r.Context(),
		cache.WorkspaceKey(id.String()),
		cache.DocumentsListKey(id.String()),
		cache.ProjectsListKey(id.String()),
		cache.TeamsListKey(id.String()))
	s.cache.DeletePattern(r.Context(), cache.TasksListPattern(id.String()))

	s.logger.Info("workspace deleted",
		logging.Workspace(id.String()),
		logging.Principal(PrincipalFrom(r.Context()).ID.String()))
	s.respondJSON(w, http.StatusNoContent, nil)
}
