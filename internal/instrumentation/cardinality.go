package instrumentation

import (
	"strings"

	"github.com/google/uuid"
)

// Cardinality management helpers for metrics.
//
// High cardinality in metrics can cause increased memory usage in the
// metrics backend, slower queries and higher storage costs. Always use these
// helpers when recording metrics derived from request paths or user
// identifiers.

// NormalizeRoute collapses a request path into its route template so that
// resource ids never become label values.
//
// Segments that parse as UUIDs or as plain integers are replaced with ":id".
//
// Examples:
//
//	NormalizeRoute("/api/workspaces/4bf3.../documents") // "/api/workspaces/:id/documents"
//	NormalizeRoute("/api/tasks/42")                     // "/api/tasks/:id"
//	NormalizeRoute("/api/health")                       // "/api/health"
func NormalizeRoute(path string) string {
	if path == "" {
		return "/"
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if _, err := uuid.Parse(seg); err == nil {
			segments[i] = ":id"
			continue
		}
		if isAllDigits(seg) {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// ExtractUserDomain extracts the domain part from an email address. This
// reduces cardinality by using the domain instead of the full email.
//
// Example:
//
//	ExtractUserDomain("jane@kollab.dev") // "kollab.dev"
//	ExtractUserDomain("invalid")         // "unknown"
func ExtractUserDomain(email string) string {
	if email == "" {
		return "unknown"
	}
	parts := strings.Split(email, "@")
	if len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}
	return "unknown"
}
