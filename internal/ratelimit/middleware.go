package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/kollabhq/kollab/internal/apierr"
)

// KeyFunc derives the limiter key for a request: the authenticated principal
// id when present, otherwise the forwarded client address, otherwise the
// literal "anonymous".
type KeyFunc func(*http.Request) string

// ClientAddress extracts the client address from forwarding headers, falling
// back to the socket peer. It is the unauthenticated half of the default key
// function.
func ClientAddress(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// First hop is the originating client.
		addr, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(addr)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "anonymous"
}

// Middleware returns a chi-compatible middleware enforcing bucket on every
// request. Responses carry the X-RateLimit-* headers; blocked requests get
// an RFC 7807 payload with Retry-After, and degraded (fail-open) passes are
// flagged with X-RateLimit-Warning.
func (l *Limiter) Middleware(bucket Bucket, key KeyFunc, production bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := l.Check(r.Context(), bucket, key(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.Reset.IsZero() {
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
			}
			if d.Degraded {
				w.Header().Set("X-RateLimit-Warning", "rate limiting degraded")
			}

			if !d.Allowed {
				retryAfter := int(d.RetryAfter.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				apierr.WriteProblem(w, apierr.RateLimited(retryAfter), production)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
