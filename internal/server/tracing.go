package server

import (
	"fmt"
	"net/http"

	"github.com/kollabhq/kollab/internal/instrumentation"
)

// tracing opens one span per request, named after the method and normalized
// route so span cardinality stays bounded. A 5xx response marks the span as
// failed; everything else, including client errors, is a successful span.
func (s *Server) tracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := instrumentation.NormalizeRoute(r.URL.Path)
		ctx, span := instrumentation.StartSpan(r.Context(), r.Method+" "+route,
			instrumentation.NewSpanAttributeBuilder().
				WithRoute(route).
				WithOperation(r.Method).
				Build()...)
		defer span.End()

		wrapped := newResponseWriter(w)
		next.ServeHTTP(wrapped, r.WithContext(ctx))

		if wrapped.statusCode >= 500 {
			instrumentation.SetSpanError(span, fmt.Errorf("status %d", wrapped.statusCode))
			return
		}
		instrumentation.SetSpanSuccess(span)
	})
}
