package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/kollabhq/kollab/internal/apierr"
	"github.com/kollabhq/kollab/internal/logging"
	"github.com/kollabhq/kollab/internal/session"
	"github.com/kollabhq/kollab/internal/store"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=255"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Principal *store.Principal `json:"principal"`
	Workspace *store.Workspace `json:"workspace,omitempty"`
}

// handleRegister creates the principal, their default workspace with an owner
// membership, and opens a session.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := session.ValidatePassword(req.Password); err != nil {
		s.respondError(w, r, err)
		return
	}

	hash, err := session.HashPassword(req.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	principal, err := s.repo.CreatePrincipal(r.Context(), req.Email, req.Name, hash)
	if err != nil {
		if errors.Is(err, apierr.ErrConflict) {
			s.respondError(w, r, apierr.Conflict("an account with this email already exists"))
			return
		}
		s.respondError(w, r, err)
		return
	}

	slug := fmt.Sprintf("%s-workspace-%d", slugify(req.Name), time.Now().Unix())
	workspace, err := s.repo.CreateWorkspaceWithOwner(r.Context(), slug, req.Name+"'s Workspace", principal.ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	sess, err := s.sessions.Create(r.Context(), principal.ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.sessions.IssueCookie(w, sess, s.cfg.Production())
	s.metrics.IncrementActiveSessions(r.Context())

	s.logger.Info("principal registered",
		logging.Principal(principal.ID.String()),
		logging.Workspace(workspace.ID.String()))
	s.respondJSON(w, http.StatusCreated, authResponse{Principal: principal, Workspace: workspace})
}

// handleLogin verifies credentials and opens a session. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	principal, err := s.repo.GetPrincipalByEmail(r.Context(), strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, apierr.ErrNotFound) {
			s.respondError(w, r, apierr.Unauthenticated("invalid credentials"))
			return
		}
		s.respondError(w, r, err)
		return
	}
	if !session.CheckPassword(principal.PasswordHash, req.Password) {
		s.respondError(w, r, apierr.Unauthenticated("invalid credentials"))
		return
	}

	sess, err := s.sessions.Create(r.Context(), principal.ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.sessions.IssueCookie(w, sess, s.cfg.Production())
	s.metrics.IncrementActiveSessions(r.Context())

	s.respondJSON(w, http.StatusOK, authResponse{Principal: principal})
}

// handleLogout destroys the current session. Logout is idempotent.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := SessionFrom(r.Context()); sess != nil {
		if err := s.sessions.Destroy(r.Context(), sess.ID); err != nil {
			s.respondError(w, r, err)
			return
		}
		s.metrics.DecrementActiveSessions(r.Context())
	}
	s.sessions.ClearCookie(w, s.cfg.Production())
	s.respondJSON(w, http.StatusNoContent, nil)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

// handleChangePassword rotates the principal's password. Every existing
// session is revoked, including cached copies, and a fresh one is issued so
// the caller stays signed in.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFrom(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if !session.CheckPassword(principal.PasswordHash, req.CurrentPassword) {
		s.respondError(w, r, apierr.Validation("current password is incorrect"))
		return
	}
	if err := session.ValidatePassword(req.NewPassword); err != nil {
		s.respondError(w, r, err)
		return
	}

	hash, err := session.HashPassword(req.NewPassword)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.repo.UpdatePrincipalPassword(r.Context(), principal.ID, hash); err != nil {
		s.respondError(w, r, err)
		return
	}

	revoked, err := s.sessions.DestroyAll(r.Context(), principal.ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	for range revoked {
		s.metrics.DecrementActiveSessions(r.Context())
	}

	sess, err := s.sessions.Create(r.Context(), principal.ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.sessions.IssueCookie(w, sess, s.cfg.Production())
	s.metrics.IncrementActiveSessions(r.Context())

	s.logger.Info("password changed",
		logging.Principal(principal.ID.String()),
		"sessions_revoked", revoked)
	s.respondJSON(w, http.StatusOK, authResponse{Principal: principal})
}

// handleMe returns the authenticated principal.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, authResponse{Principal: PrincipalFrom(r.Context())})
}

// slugify lowercases a name, strips diacritics and folds every remaining
// non-alphanumeric run into a single hyphen.
func slugify(name string) string {
	folded, _, err := transform.String(transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	), name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(folded) {
		if r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.Trim(b.String(), "-")
}
