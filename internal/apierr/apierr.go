package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure. The set is closed: every error leaving a
// feature package carries exactly one of these kinds.
type Kind string

// The failure kinds understood by the pipeline.
const (
	KindValidation         Kind = "validation"
	KindUnauthenticated    Kind = "unauthenticated"
	KindForbidden          Kind = "forbidden"
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindRateLimited        Kind = "rate_limited"
	KindDatabase           Kind = "database"
	KindInternal           Kind = "internal"
	KindServiceUnavailable Kind = "service_unavailable"
)

// Sentinel errors for matching with errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrRateLimited        = errors.New("rate limited")
	ErrDatabase           = errors.New("database failure")
	ErrInternal           = errors.New("internal error")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// sentinelByKind maps every kind to its sentinel.
var sentinelByKind = map[Kind]error{
	KindValidation:         ErrValidation,
	KindUnauthenticated:    ErrUnauthenticated,
	KindForbidden:          ErrForbidden,
	KindNotFound:           ErrNotFound,
	KindConflict:           ErrConflict,
	KindRateLimited:        ErrRateLimited,
	KindDatabase:           ErrDatabase,
	KindInternal:           ErrInternal,
	KindServiceUnavailable: ErrServiceUnavailable,
}

// HTTPStatus returns the HTTP status code a kind maps to.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// DefaultCode returns the stable uppercase snake_case code for a kind.
func (k Kind) DefaultCode() string {
	switch k {
	case KindValidation:
		return "VALIDATION_FAILED"
	case KindUnauthenticated:
		return "UNAUTHENTICATED"
	case KindForbidden:
		return "FORBIDDEN"
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindRateLimited:
		return "RATE_LIMITED"
	case KindDatabase:
		return "DATABASE_ERROR"
	case KindServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}

// Error is a typed failure carrying a kind, a stable code, a human-readable
// message, and an open details map for correlation fields.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the error against its kind's sentinel.
func (e *Error) Is(target error) bool {
	return target == sentinelByKind[e.Kind]
}

// WithDetail attaches a single detail field and returns the error for
// chaining. A nil details map is allocated on first use.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// MergeDetails adds every field of extra that is not already present.
// Existing fields are never overwritten; feature code wins over pipeline
// enrichment.
func (e *Error) MergeDetails(extra map[string]any) {
	if len(extra) == 0 {
		return
	}
	if e.Details == nil {
		e.Details = make(map[string]any, len(extra))
	}
	for k, v := range extra {
		if _, ok := e.Details[k]; !ok {
			e.Details[k] = v
		}
	}
}

// newError builds an *Error with the kind's default code.
func newError(kind Kind, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Code:    kind.DefaultCode(),
		Message: message,
		Err:     cause,
	}
}

// Validation reports input rejected by a schema or semantic check.
func Validation(format string, args ...any) *Error {
	return newError(KindValidation, fmt.Sprintf(format, args...), nil)
}

// Unauthenticated reports a request without a valid session.
func Unauthenticated(message string) *Error {
	return newError(KindUnauthenticated, message, nil)
}

// Forbidden reports a valid session with insufficient role.
func Forbidden(message string) *Error {
	return newError(KindForbidden, message, nil)
}

// NotFound reports that the addressed resource does not exist.
func NotFound(resource string) *Error {
	return newError(KindNotFound, resource+" not found", nil)
}

// Conflict reports a uniqueness or state violation.
func Conflict(message string) *Error {
	return newError(KindConflict, message, nil)
}

// RateLimited reports that the limiter blocked the request.
func RateLimited(retryAfterSeconds int) *Error {
	e := newError(KindRateLimited, "rate limit exceeded", nil)
	return e.WithDetail("retryAfterSeconds", retryAfterSeconds)
}

// Database reports a source-of-truth failure.
func Database(cause error) *Error {
	return newError(KindDatabase, "database operation failed", cause)
}

// DatabaseTimeout reports a transaction that exceeded its deadline.
func DatabaseTimeout(cause error) *Error {
	e := newError(KindDatabase, "database operation timed out", cause)
	return e.WithDetail("kind", "timeout")
}

// Internal reports an unclassified failure.
func Internal(cause error) *Error {
	return newError(KindInternal, "internal error", cause)
}

// ServiceUnavailable reports an unreachable dependency.
func ServiceUnavailable(dependency string, cause error) *Error {
	e := newError(KindServiceUnavailable, dependency+" unavailable", cause)
	return e.WithDetail("dependency", dependency)
}

// From extracts the typed error from err, wrapping unknown failures as
// internal. It never returns nil for a non-nil err.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return Internal(err)
}
