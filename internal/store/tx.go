package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kollabhq/kollab/internal/apierr"
	"github.com/kollabhq/kollab/internal/logging"
)

// defaultTxTimeout bounds a transaction body unless the caller overrides it.
const defaultTxTimeout = 30 * time.Second

// TxOptions tune a single WithTransaction call.
type TxOptions struct {
	// Timeout bounds the body including commit. Zero means the default.
	Timeout time.Duration
	// Isolation selects the transaction isolation level. Zero means the
	// driver default (read committed on Postgres).
	Isolation sql.IsolationLevel
}

// WithTransaction runs fn inside a transaction with a deadline. The
// transaction commits only when fn returns nil; any error, timeout or
// cancellation rolls back. A deadline hit surfaces as a database timeout
// failure, other errors pass through so typed failures raised by fn keep
// their kind.
func (s *Store) WithTransaction(ctx context.Context, opts TxOptions, fn func(ctx context.Context, tx *sqlx.Tx) error) error {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTxTimeout
	}
	txCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tx, err := s.db.BeginTxx(txCtx, &sql.TxOptions{Isolation: opts.Isolation})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return apierr.DatabaseTimeout(err)
		}
		return apierr.Database(fmt.Errorf("beginning transaction: %w", err))
	}

	if err := fn(txCtx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Error("transaction rollback failed", logging.Err(rbErr))
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(txCtx.Err(), context.DeadlineExceeded) {
			return apierr.DatabaseTimeout(err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(txCtx.Err(), context.DeadlineExceeded) {
			return apierr.DatabaseTimeout(err)
		}
		return apierr.Database(fmt.Errorf("committing transaction: %w", err))
	}
	return nil
}
