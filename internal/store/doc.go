// Package store is the source of truth for all persistent Kollab state.
//
// It wraps a Postgres pool behind sqlx and exposes repository functions that
// accept any sqlx execution context, so the same query code runs both on the
// pool and inside a transaction handle. Multi-table writes go through
// WithTransaction, which scopes a deadline and isolation level around the
// body and guarantees rollback on failure.
//
// Repository functions return typed failures from the apierr package; a
// missing row is apierr.ErrNotFound, a uniqueness violation is
// apierr.ErrConflict.
package store
