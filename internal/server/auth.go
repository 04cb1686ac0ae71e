package server

import (
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/kollabhq/kollab/internal/apierr"
	"github.com/kollabhq/kollab/internal/instrumentation"
	"github.com/kollabhq/kollab/internal/logging"
)

// requireAuth validates the session cookie and attaches the principal and
// session to the request context. Renewed sessions get their cookie
// re-issued with the extended expiry.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.sessions.ReadCookie(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		sess, principal, err := s.sessions.Validate(r.Context(), id)
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		if sess.Fresh {
			s.sessions.IssueCookie(w, sess, s.cfg.Production())
		}

		r = r.WithContext(withPrincipal(r.Context(), principal, sess))
		trace.SpanFromContext(r.Context()).SetAttributes(
			instrumentation.NewSpanAttributeBuilder().WithUser(principal.Email).Build()...)

		// The override is evaluated before the membership resolver and never
		// touches its cache; every admin access is logged.
		if s.admins.Contains(principal) {
			s.logger.Info("system admin access",
				logging.Principal(principal.ID.String()),
				logging.Route(r.URL.Path),
				logging.Method(r.Method))
			r = r.WithContext(withSystemAdmin(r.Context()))
		}

		next.ServeHTTP(w, r)
	})
}

// requireSystemAdmin gates a route on the system-admin override.
func (s *Server) requireSystemAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !SystemAdminFrom(r.Context()) {
			s.respondError(w, r, apierr.Forbidden("requires system administrator"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
