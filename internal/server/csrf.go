package server

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/kollabhq/kollab/internal/apierr"
)

// CSRF double-submit parameters. The cookie token rotates on a fixed 7-day
// lifetime.
const (
	csrfCookieName = "kollab_csrf"
	csrfHeaderName = "X-CSRF-Token"
	csrfTokenBytes = 32
	csrfLifetime   = 7 * 24 * time.Hour
)

// csrfExempt lists paths that skip CSRF validation. Login and register
// cannot carry a prior token; health is read-only for probes.
var csrfExempt = map[string]bool{
	"/api/auth/login":    true,
	"/api/auth/register": true,
	"/health/live":       true,
	"/health/ready":      true,
}

// stateChanging reports whether the method mutates state.
func stateChanging(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// csrfMiddleware issues the CSRF cookie when absent and validates the
// header token against it for state-changing methods. Comparison is
// constant time.
func (s *Server) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(csrfCookieName)
		if err != nil || cookie.Value == "" {
			token, issueErr := issueCSRFCookie(w, s.cfg.Production())
			if issueErr != nil {
				s.respondError(w, r, apierr.Internal(issueErr))
				return
			}
			cookie = &http.Cookie{Name: csrfCookieName, Value: token}
		}

		if stateChanging(r.Method) && !csrfExempt[r.URL.Path] {
			header := r.Header.Get(csrfHeaderName)
			if subtle.ConstantTimeCompare([]byte(header), []byte(cookie.Value)) != 1 {
				s.respondError(w, r, apierr.Forbidden("missing or mismatched CSRF token"))
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// issueCSRFCookie writes a fresh random token cookie and returns the token.
func issueCSRFCookie(w http.ResponseWriter, production bool) (string, error) {
	raw := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(csrfLifetime.Seconds()),
		HttpOnly: true,
		Secure:   production,
		SameSite: http.SameSiteStrictMode,
	})
	return token, nil
}
