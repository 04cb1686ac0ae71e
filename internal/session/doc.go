// Package session implements cookie-based login sessions.
//
// Session ids are opaque 32-byte random values. The browser cookie carries
// the id plus an HMAC signature so a tampered cookie is rejected before any
// lookup. Validation enforces absolute expiry, checks the principal still
// exists, and slides the expiry forward when the session is past the renewal
// midpoint; renewed sessions are flagged fresh so the pipeline re-issues the
// cookie.
//
// The package also owns password hashing and the password policy applied at
// registration.
package session
