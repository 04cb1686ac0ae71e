package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/kollabhq/kollab/internal/apierr"
)

// Pool defaults. The pool is shared by every request so the ceiling guards
// Postgres, not the application.
const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 10
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute

	pingTimeout = 2 * time.Second
)

// Queryer is the execution context shared by the pool and transaction
// handles. Every repository function takes one so the same query code runs
// standalone or inside WithTransaction.
type Queryer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

var (
	_ Queryer = (*sqlx.DB)(nil)
	_ Queryer = (*sqlx.Tx)(nil)
)

// Store owns the Postgres connection pool.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for store diagnostics.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open connects to Postgres at dsn and verifies the connection.
func Open(ctx context.Context, dsn string, opts ...StoreOption) (*Store, error) {
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &Store{
		db:     db,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewFromDB wraps an existing handle. Tests use it with sqlmock.
func NewFromDB(db *sql.DB, driverName string, opts ...StoreOption) *Store {
	s := &Store{
		db:     sqlx.NewDb(db, driverName),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the pool as a Queryer for read paths outside a transaction.
func (s *Store) DB() Queryer {
	return s.db
}

// Ping verifies connectivity and reports the round-trip latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	start := time.Now()
	if err := s.db.PingContext(pingCtx); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

// PoolStats reports the pool counters for the readiness payload and gauges.
func (s *Store) PoolStats() sql.DBStats {
	return s.db.Stats()
}

// Close releases the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Postgres error codes consulted when classifying failures.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgSerializationError  = "40001"
)

// classify maps a driver error onto the failure taxonomy. sql.ErrNoRows
// becomes not-found with the given resource name; constraint violations
// become conflicts so callers surface them without leaking SQL details.
func classify(err error, resource string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apierr.NotFound(resource)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apierr.DatabaseTimeout(err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apierr.Conflict(fmt.Sprintf("%s already exists", resource))
		case pgForeignKeyViolation:
			return apierr.Conflict(fmt.Sprintf("%s references a missing resource", resource))
		case pgSerializationError:
			return apierr.Conflict("concurrent update, retry the request")
		}
	}
	if strings.Contains(err.Error(), "timeout") {
		return apierr.DatabaseTimeout(err)
	}
	return apierr.Database(err)
}
