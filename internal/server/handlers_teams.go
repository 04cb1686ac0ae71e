package server

import (
	"context"
	"net/http"

	"github.com/kollabhq/kollab/internal/cache"
	"github.com/kollabhq/kollab/internal/store"
)

type createTeamRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

func (s *Server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	workspace, err := s.workspaceFromRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.authorize(r, workspace.ID, store.RoleViewer); err != nil {
		s.respondError(w, r, err)
		return
	}

	teams, err := cache.GetOrCompute(r.Context(), s.cache,
		cache.TeamsListKey(workspace.ID.String()), cache.TTLList,
		func(ctx context.Context) ([]store.Team, error) {
			return s.repo.ListTeams(ctx, workspace.ID)
		})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"teams": teams})
}

// handleCreateTeam creates a team with the caller as its leader in one
// transaction.
func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	workspace, err := s.workspaceFromRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.authorize(r, workspace.ID, store.RoleEditor); err != nil {
		s.respondError(w, r, err)
		return
	}

	var req createTeamRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	team, err := s.repo.CreateTeamWithLeader(r.Context(), workspace.ID, PrincipalFrom(r.Context()).ID, req.Name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.cache.Delete(r.Context(), cache.TeamsListKey(workspace.ID.String()))

	s.respondJSON(w, http.StatusCreated, team)
}

func (s *Server) handleListTeamMembers(w http.ResponseWriter, r *http.Request) {
	workspace, err := s.workspaceFromRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.authorize(r, workspace.ID, store.RoleViewer); err != nil {
		s.respondError(w, r, err)
		return
	}
	teamID, err := resourceIDParam(r, "teamID", "team")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	// Verify the team belongs to this workspace before listing its members.
	if _, err := s.repo.GetTeam(r.Context(), workspace.ID, teamID); err != nil {
		s.respondError(w, r, err)
		return
	}
	members, err := s.repo.ListTeamMembers(r.Context(), teamID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"members": members})
}
