package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
)

// CreatePrincipal inserts a new principal. Emails are stored lowercased so
// lookup is case-insensitive.
func CreatePrincipal(ctx context.Context, q Queryer, email, name, passwordHash string) (*Principal, error) {
	var p Principal
	err := q.GetContext(ctx, &p, `
		INSERT INTO principals (id, email, name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, name, password_hash, created_at, updated_at`,
		uuid.New(), strings.ToLower(email), name, passwordHash)
	if err != nil {
		return nil, classify(err, "principal")
	}
	return &p, nil
}

// GetPrincipal loads a principal by id.
func GetPrincipal(ctx context.Context, q Queryer, id uuid.UUID) (*Principal, error) {
	var p Principal
	err := q.GetContext(ctx, &p, `
		SELECT id, email, name, password_hash, created_at, updated_at
		FROM principals WHERE id = $1`, id)
	if err != nil {
		return nil, classify(err, "principal")
	}
	return &p, nil
}

// UpdatePrincipalPassword replaces a principal's password hash.
func UpdatePrincipalPassword(ctx context.Context, q Queryer, id uuid.UUID, passwordHash string) error {
	res, err := q.ExecContext(ctx, `
		UPDATE principals SET password_hash = $2, updated_at = now() WHERE id = $1`,
		id, passwordHash)
	if err != nil {
		return classify(err, "principal")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return classify(sql.ErrNoRows, "principal")
	}
	return nil
}

// GetPrincipalByEmail loads a principal by email, case-insensitively.
func GetPrincipalByEmail(ctx context.Context, q Queryer, email string) (*Principal, error) {
	var p Principal
	err := q.GetContext(ctx, &p, `
		SELECT id, email, name, password_hash, created_at, updated_at
		FROM principals WHERE email = $1`, strings.ToLower(email))
	if err != nil {
		return nil, classify(err, "principal")
	}
	return &p, nil
}
