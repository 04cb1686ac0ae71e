package apierr

import (
	"encoding/json"
	"net/http"
)

// typeBase is the stable URI prefix for problem type identifiers.
const typeBase = "https://kollab.dev/errors/"

// Problem is the RFC 7807 wire representation of a typed failure.
type Problem struct {
	Type    string         `json:"type"`
	Title   string         `json:"title"`
	Status  int            `json:"status"`
	Code    string         `json:"code"`
	Detail  string         `json:"detail"`
	Details map[string]any `json:"details,omitempty"`
}

// titleByKind holds the short human-readable summary per kind.
var titleByKind = map[Kind]string{
	KindValidation:         "Invalid Request",
	KindUnauthenticated:    "Authentication Required",
	KindForbidden:          "Insufficient Permissions",
	KindNotFound:           "Resource Not Found",
	KindConflict:           "Conflict",
	KindRateLimited:        "Too Many Requests",
	KindDatabase:           "Storage Failure",
	KindInternal:           "Internal Server Error",
	KindServiceUnavailable: "Service Unavailable",
}

// ToProblem converts any error into its RFC 7807 representation. When
// production is true, messages of internal and database failures are
// suppressed so that implementation detail never reaches clients.
func ToProblem(err error, production bool) Problem {
	e := From(err)
	detail := e.Message
	if production && (e.Kind == KindInternal || e.Kind == KindDatabase) {
		detail = titleByKind[e.Kind]
	}
	return Problem{
		Type:    typeBase + string(e.Kind),
		Title:   titleByKind[e.Kind],
		Status:  e.Kind.HTTPStatus(),
		Code:    e.Code,
		Detail:  detail,
		Details: e.Details,
	}
}

// WriteProblem encodes err as an RFC 7807 response.
func WriteProblem(w http.ResponseWriter, err error, production bool) {
	p := ToProblem(err, production)
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}
