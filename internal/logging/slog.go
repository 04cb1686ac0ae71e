package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation   = "operation"
	KeyPrincipal   = "principal_id"
	KeyWorkspace   = "workspace_id"
	KeyRoute       = "route"
	KeyMethod      = "method"
	KeyStatus      = "status"
	KeyDurationMS  = "duration_ms"
	KeyError       = "error"
	KeyBucket      = "bucket"
	KeyCacheKey    = "cache_key"
	KeyRequestSize = "request_bytes"
	KeyResponse    = "response_bytes"
)

// Output formats accepted by NewLogger.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// NewLogger builds the process logger. Production deployments use the JSON
// handler; anything else falls back to the human-readable text handler.
func NewLogger(format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, FormatJSON) {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Principal returns a slog attribute for a principal identifier.
func Principal(id string) slog.Attr {
	return slog.String(KeyPrincipal, id)
}

// Workspace returns a slog attribute for a workspace identifier.
func Workspace(id string) slog.Attr {
	return slog.String(KeyWorkspace, id)
}

// Route returns a slog attribute for a normalized route.
func Route(route string) slog.Attr {
	return slog.String(KeyRoute, route)
}

// Method returns a slog attribute for an HTTP method.
func Method(method string) slog.Attr {
	return slog.String(KeyMethod, method)
}

// Status returns a slog attribute for an HTTP status code.
func Status(status int) slog.Attr {
	return slog.Int(KeyStatus, status)
}

// DurationMS returns a slog attribute for a duration in milliseconds.
func DurationMS(ms int64) slog.Attr {
	return slog.Int64(KeyDurationMS, ms)
}

// Bucket returns a slog attribute for a rate-limit bucket name.
func Bucket(name string) slog.Attr {
	return slog.String(KeyBucket, name)
}

// CacheKey returns a slog attribute for a cache key.
func CacheKey(key string) slog.Attr {
	return slog.String(KeyCacheKey, key)
}

// Err returns a slog attribute for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail returns a hashed representation of an email for logging
// purposes. This allows correlation of log entries without exposing PII.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(email))
	return "user:" + hex.EncodeToString(hash[:8])
}

// EmailHash returns a slog attribute with the anonymized email.
func EmailHash(email string) slog.Attr {
	return slog.String("email_hash", AnonymizeEmail(email))
}

// SanitizeToken returns a masked version of a secret for logging. Session
// ids, CSRF tokens, and passwords must never appear verbatim in log output;
// a length indicator is enough for debugging.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[secret:%d chars]", len(token))
}
