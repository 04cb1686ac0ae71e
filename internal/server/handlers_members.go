package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kollabhq/kollab/internal/apierr"
	"github.com/kollabhq/kollab/internal/cache"
	"github.com/kollabhq/kollab/internal/logging"
	"github.com/kollabhq/kollab/internal/store"
)

type addMemberRequest struct {
	PrincipalID uuid.UUID  `json:"principalId" validate:"required"`
	Role        store.Role `json:"role" validate:"required"`
}

type updateMemberRoleRequest struct {
	Role store.Role `json:"role" validate:"required"`
}

// principalIDParam parses the {principalID} path segment.
func principalIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "principalID"))
	if err != nil {
		return uuid.Nil, apierr.Validation("invalid principal id")
	}
	return id, nil
}

// handleListMembers lists the workspace members, owner first, through the
// member-listing cache.
func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	workspace, err := s.workspaceFromRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.authorize(r, workspace.ID, store.RoleViewer); err != nil {
		s.respondError(w, r, err)
		return
	}

	members, err := cache.GetOrCompute(r.Context(), s.cache,
		cache.MembersKey(workspace.ID.String()), cache.TTLMembers,
		func(ctx context.Context) ([]store.Membership, error) {
			return s.repo.ListMembers(ctx, workspace.ID)
		})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"members": members})
}

// handleAddMember grants a principal a role on the workspace. Admin only;
// ownership is never granted this way.
func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	workspace, err := s.workspaceFromRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.authorize(r, workspace.ID, store.RoleAdmin); err != nil {
		s.respondError(w, r, err)
		return
	}

	var req addMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	membership, err := s.repo.AddMember(r.Context(), workspace.ID, req.PrincipalID, req.Role)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.resolver.Invalidate(r.Context(), workspace.ID, req.PrincipalID)

	s.logger.Info("member added",
		logging.Workspace(workspace.ID.String()),
		logging.Principal(req.PrincipalID.String()),
		"role", string(req.Role))
	s.respondJSON(w, http.StatusCreated, membership)
}

// handleUpdateMemberRole changes a member's role. Admin only; the owner's
// role is immutable. Requesting the owner role is an ownership transfer: the
// caller must hold ownership and is demoted to admin in the same transaction.
func (s *Server) handleUpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	workspace, err := s.workspaceFromRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.authorize(r, workspace.ID, store.RoleAdmin); err != nil {
		s.respondError(w, r, err)
		return
	}
	principalID, err := principalIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req updateMemberRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	if req.Role == store.RoleOwner {
		s.transferOwnership(w, r, workspace.ID, principalID)
		return
	}

	membership, err := s.repo.UpdateMemberRole(r.Context(), workspace.ID, principalID, req.Role)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.resolver.Invalidate(r.Context(), workspace.ID, principalID)

	s.respondJSON(w, http.StatusOK, membership)
}

// transferOwnership moves ownership from the caller to the target member.
// Both sides' cached memberships are dropped after commit.
func (s *Server) transferOwnership(w http.ResponseWriter, r *http.Request, workspaceID, toPrincipal uuid.UUID) {
	caller := PrincipalFrom(r.Context())

	membership, err := s.repo.TransferOwnership(r.Context(), workspaceID, caller.ID, toPrincipal)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.resolver.Invalidate(r.Context(), workspaceID, caller.ID)
	s.resolver.Invalidate(r.Context(), workspaceID, toPrincipal)

	s.logger.Info("ownership transferred",
		logging.Workspace(workspaceID.String()),
		logging.Principal(toPrincipal.String()),
		"from", caller.ID.String())
	s.respondJSON(w, http.StatusOK, membership)
}

// handleRemoveMember revokes a membership. Admin only; the owner cannot be
// removed. The removed principal's next request on this workspace is denied.
func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	workspace, err := s.workspaceFromRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.authorize(r, workspace.ID, store.RoleAdmin); err != nil {
		s.respondError(w, r, err)
		return
	}
	principalID, err := principalIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.repo.RemoveMember(r.Context(), workspace.ID, principalID); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.resolver.Invalidate(r.Context(), workspace.ID, principalID)

	s.logger.Info("member removed",
		logging.Workspace(workspace.ID.String()),
		logging.Principal(principalID.String()))
	s.respondJSON(w, http.StatusNoContent, nil)
}
