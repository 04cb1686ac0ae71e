package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// CreateSession persists a session row for an already generated opaque id.
func CreateSession(ctx context.Context, q Queryer, id string, principalID uuid.UUID, expiresAt time.Time) (*Session, error) {
	var s Session
	err := q.GetContext(ctx, &s, `
		INSERT INTO sessions (id, principal_id, expires_at, renewed_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, principal_id, expires_at, created_at, renewed_at`,
		id, principalID, expiresAt)
	if err != nil {
		return nil, classify(err, "session")
	}
	return &s, nil
}

// GetSession loads a session by id. Expiry is enforced by the caller, not
// here, so the session manager can distinguish expired from unknown.
func GetSession(ctx context.Context, q Queryer, id string) (*Session, error) {
	var s Session
	err := q.GetContext(ctx, &s, `
		SELECT id, principal_id, expires_at, created_at, renewed_at
		FROM sessions WHERE id = $1`, id)
	if err != nil {
		return nil, classify(err, "session")
	}
	return &s, nil
}

// RenewSession extends a session's expiry and stamps the renewal time.
func RenewSession(ctx context.Context, q Queryer, id string, expiresAt time.Time) error {
	res, err := q.ExecContext(ctx, `
		UPDATE sessions SET expires_at = $2, renewed_at = now() WHERE id = $1`,
		id, expiresAt)
	if err != nil {
		return classify(err, "session")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return classify(sql.ErrNoRows, "session")
	}
	return nil
}

// DeleteSession removes a session. Deleting an unknown session is not an
// error, logout is idempotent.
func DeleteSession(ctx context.Context, q Queryer, id string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return classify(err, "session")
	}
	return nil
}

// DeleteSessionsForPrincipal removes every session of a principal and
// returns the dropped ids so the caller can discard their cached copies.
// Used by invalidate-all on password change.
func DeleteSessionsForPrincipal(ctx context.Context, q Queryer, principalID uuid.UUID) ([]string, error) {
	ids := []string{}
	err := q.SelectContext(ctx, &ids, `
		DELETE FROM sessions WHERE principal_id = $1 RETURNING id`, principalID)
	if err != nil {
		return nil, classify(err, "session")
	}
	return ids, nil
}

// DeleteExpiredSessions removes sessions past their expiry and reports how
// many were dropped. Intended for a periodic sweep.
func DeleteExpiredSessions(ctx context.Context, q Queryer) (int64, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		return 0, classify(err, "session")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify(err, "session")
	}
	return n, nil
}
