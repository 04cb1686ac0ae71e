package server

import (
	"context"
	"net/http"

	"github.com/kollabhq/kollab/internal/ratelimit"
	"github.com/kollabhq/kollab/internal/store"
)

// ctxKey is the private type for request-context keys.
type ctxKey int

const (
	ctxKeyPrincipal ctxKey = iota
	ctxKeySession
	ctxKeySystemAdmin
)

// withPrincipal attaches the authenticated principal and session to the
// request context.
func withPrincipal(ctx context.Context, p *store.Principal, s *store.Session) context.Context {
	ctx = context.WithValue(ctx, ctxKeyPrincipal, p)
	return context.WithValue(ctx, ctxKeySession, s)
}

// PrincipalFrom returns the authenticated principal, or nil on
// unauthenticated routes.
func PrincipalFrom(ctx context.Context) *store.Principal {
	p, _ := ctx.Value(ctxKeyPrincipal).(*store.Principal)
	return p
}

// SessionFrom returns the request's session, or nil.
func SessionFrom(ctx context.Context) *store.Session {
	s, _ := ctx.Value(ctxKeySession).(*store.Session)
	return s
}

// withSystemAdmin marks the request as running under the system-admin
// override.
func withSystemAdmin(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKeySystemAdmin, true)
}

// SystemAdminFrom reports whether the system-admin override applies to this
// request.
func SystemAdminFrom(ctx context.Context) bool {
	v, _ := ctx.Value(ctxKeySystemAdmin).(bool)
	return v
}

// principalKey is the rate-limiter key function: the principal id when
// authenticated, otherwise the client address.
func principalKey(r *http.Request) string {
	if p := PrincipalFrom(r.Context()); p != nil {
		return p.ID.String()
	}
	return ratelimit.ClientAddress(r)
}
