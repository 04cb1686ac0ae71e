package server

import (
	"net/http"
	"time"

	"github.com/kollabhq/kollab/internal/instrumentation"
	"github.com/kollabhq/kollab/internal/logging"
)

// responseWriter wraps http.ResponseWriter to capture the status code and
// the number of bytes written.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	bytes      int
	written    bool
}

// newResponseWriter creates a responseWriter defaulting to 200.
func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// WriteHeader captures the status code before writing the header.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

// Write captures the response size.
func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.written = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// Unwrap returns the underlying ResponseWriter to support http.Flusher etc.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Flush implements http.Flusher for streaming responses.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// performanceLogger emits one structured line per request. Level selection:
// 5xx is error, 4xx or >1s is warn, 500ms-1s is info, faster is debug.
func (s *Server) performanceLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := newResponseWriter(w)

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		attrs := []any{
			logging.Method(r.Method),
			logging.Route(instrumentation.NormalizeRoute(r.URL.Path)),
			logging.Status(wrapped.statusCode),
			logging.DurationMS(duration.Milliseconds()),
			"request_bytes", r.ContentLength,
			"response_bytes", wrapped.bytes,
		}
		if p := PrincipalFrom(r.Context()); p != nil {
			attrs = append(attrs, logging.Principal(p.ID.String()))
		}
		if traceID := instrumentation.GetTraceID(r.Context()); traceID != "" {
			attrs = append(attrs, "trace_id", traceID)
		}

		switch {
		case wrapped.statusCode >= 500:
			s.logger.Error("request", attrs...)
		case wrapped.statusCode >= 400 || duration > time.Second:
			s.logger.Warn("request", attrs...)
		case duration >= 500*time.Millisecond:
			s.logger.Info("request", attrs...)
		default:
			s.logger.Debug("request", attrs...)
		}
	})
}

// httpMetrics records the request counter and latency histogram keyed by
// method, normalized route and status.
func (s *Server) httpMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := newResponseWriter(w)

		next.ServeHTTP(wrapped, r)

		s.metrics.RecordHTTPRequest(
			r.Context(),
			r.Method,
			instrumentation.NormalizeRoute(r.URL.Path),
			wrapped.statusCode,
			time.Since(start),
		)
	})
}
