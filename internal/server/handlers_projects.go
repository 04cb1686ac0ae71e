package server

import (
	"context"
	"net/http"

	"github.com/kollabhq/kollab/internal/cache"
	"github.com/kollabhq/kollab/internal/store"
)

type createProjectRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

type projectResponse struct {
	Project *store.Project `json:"project"`
	Folders []store.Folder `json:"folders,omitempty"`
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	workspace, err := s.workspaceFromRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.authorize(r, workspace.ID, store.RoleViewer); err != nil {
		s.respondError(w, r, err)
		return
	}

	projects, err := cache.GetOrCompute(r.Context(), s.cache,
		cache.ProjectsListKey(workspace.ID.String()), cache.TTLList,
		func(ctx context.Context) ([]store.Project, error) {
			return s.repo.ListProjects(ctx, workspace.ID)
		})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

// handleCreateProject creates a project together with its default folders in
// one transaction.
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	workspace, err := s.workspaceFromRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.authorize(r, workspace.ID, store.RoleEditor); err != nil {
		s.respondError(w, r, err)
		return
	}

	var req createProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	project, folders, err := s.repo.CreateProjectWithDefaults(r.Context(), workspace.ID, PrincipalFrom(r.Context()).ID, req.Name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.cache.Delete(r.Context(), cache.ProjectsListKey(workspace.ID.String()))

	s.respondJSON(w, http.StatusCreated, projectResponse{Project: project, Folders: folders})
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	workspace, err := s.workspaceFromRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.authorize(r, workspace.ID, store.RoleViewer); err != nil {
		s.respondError(w, r, err)
		return
	}
	id, err := resourceIDParam(r, "projectID", "project")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	project, err := s.repo.GetProject(r.Context(), workspace.ID, id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, projectResponse{Project: project})
}
