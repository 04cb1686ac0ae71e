// Package logging provides slog helpers shared across the Kollab backend.
//
// It defines the attribute key constants used for structured logging,
// constructor helpers for common attributes, and sanitization helpers that
// keep secrets (passwords, session ids, CSRF tokens) out of log output.
package logging
