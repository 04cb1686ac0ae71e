package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kollabhq/kollab/internal/apierr"
	"github.com/kollabhq/kollab/internal/cache"
	"github.com/kollabhq/kollab/internal/logging"
	"github.com/kollabhq/kollab/internal/store"
)

// sessionCacheTTL caps how long a session record may be served from cache.
// Renewal and logout rewrite or drop the entry, the cap only bounds
// staleness if an invalidation is lost.
const sessionCacheTTL = 15 * time.Minute

// sessionIDBytes is the entropy of an opaque session id.
const sessionIDBytes = 32

// Store is the persistence surface the manager needs. *store.Store wrapped
// by StoreAdapter satisfies it; tests substitute a fake.
type Store interface {
	CreateSession(ctx context.Context, id string, principalID uuid.UUID, expiresAt time.Time) (*store.Session, error)
	GetSession(ctx context.Context, id string) (*store.Session, error)
	RenewSession(ctx context.Context, id string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, id string) error
	DeleteSessionsForPrincipal(ctx context.Context, principalID uuid.UUID) ([]string, error)
	GetPrincipal(ctx context.Context, id uuid.UUID) (*store.Principal, error)
}

// StoreAdapter exposes a *store.Store through the Store interface.
type StoreAdapter struct {
	S *store.Store
}

func (a StoreAdapter) CreateSession(ctx context.Context, id string, principalID uuid.UUID, expiresAt time.Time) (*store.Session, error) {
	return store.CreateSession(ctx, a.S.DB(), id, principalID, expiresAt)
}

func (a StoreAdapter) GetSession(ctx context.Context, id string) (*store.Session, error) {
	return store.GetSession(ctx, a.S.DB(), id)
}

func (a StoreAdapter) RenewSession(ctx context.Context, id string, expiresAt time.Time) error {
	return store.RenewSession(ctx, a.S.DB(), id, expiresAt)
}

func (a StoreAdapter) DeleteSession(ctx context.Context, id string) error {
	return store.DeleteSession(ctx, a.S.DB(), id)
}

func (a StoreAdapter) DeleteSessionsForPrincipal(ctx context.Context, principalID uuid.UUID) ([]string, error) {
	return store.DeleteSessionsForPrincipal(ctx, a.S.DB(), principalID)
}

func (a StoreAdapter) GetPrincipal(ctx context.Context, id uuid.UUID) (*store.Principal, error) {
	return store.GetPrincipal(ctx, a.S.DB(), id)
}

// Manager creates, validates and destroys sessions.
type Manager struct {
	store  Store
	cache  *cache.Client
	secret []byte
	expiry time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the logger.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithCache enables the session read-through cache.
func WithCache(c *cache.Client) ManagerOption {
	return func(m *Manager) {
		m.cache = c
	}
}

// withClock overrides the time source. Tests only.
func withClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager builds a Manager. secret signs cookies, expiry is the absolute
// session lifetime.
func NewManager(s Store, secret string, expiry time.Duration, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:  s,
		secret: []byte(secret),
		expiry: expiry,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Expiry returns the absolute session lifetime.
func (m *Manager) Expiry() time.Duration {
	return m.expiry
}

// Create opens a new session for a principal.
func (m *Manager) Create(ctx context.Context, principalID uuid.UUID) (*store.Session, error) {
	raw := make([]byte, sessionIDBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, apierr.Internal(err)
	}
	id := base64.RawURLEncoding.EncodeToString(raw)

	sess, err := m.store.CreateSession(ctx, id, principalID, m.now().Add(m.expiry))
	if err != nil {
		return nil, err
	}
	m.cacheSession(ctx, sess)
	return sess, nil
}

// Validate resolves a session id to its session and principal. An unknown,
// expired or orphaned session is an unauthenticated failure. A session past
// the renewal midpoint is extended and returned with Fresh set so the
// caller re-issues the cookie.
func (m *Manager) Validate(ctx context.Context, id string) (*store.Session, *store.Principal, error) {
	if id == "" {
		return nil, nil, apierr.Unauthenticated("missing session")
	}

	sess := m.cachedSession(ctx, id)
	if sess == nil {
		loaded, err := m.store.GetSession(ctx, id)
		if err != nil {
			if errors.Is(err, apierr.ErrNotFound) {
				return nil, nil, apierr.Unauthenticated("invalid session")
			}
			return nil, nil, err
		}
		sess = loaded
	}

	now := m.now()
	if !now.Before(sess.ExpiresAt) {
		m.discard(ctx, id)
		return nil, nil, apierr.Unauthenticated("session expired")
	}

	principal, err := m.store.GetPrincipal(ctx, sess.PrincipalID)
	if err != nil {
		if errors.Is(err, apierr.ErrNotFound) {
			m.discard(ctx, id)
			return nil, nil, apierr.Unauthenticated("invalid session")
		}
		return nil, nil, err
	}

	if sess.ExpiresAt.Sub(now) < m.expiry/2 {
		extended := now.Add(m.expiry)
		if err := m.store.RenewSession(ctx, id, extended); err != nil {
			// A failed renewal leaves a still-valid session; log and serve.
			m.logger.Warn("session renewal failed",
				logging.Principal(principal.ID.String()), logging.Err(err))
		} else {
			sess.ExpiresAt = extended
			sess.RenewedAt = now
			sess.Fresh = true
			m.cacheSession(ctx, sess)
		}
	}

	return sess, principal, nil
}

// Destroy removes a session. Unknown ids are a no-op, logout is idempotent.
func (m *Manager) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := m.store.DeleteSession(ctx, id); err != nil {
		return err
	}
	m.discard(ctx, id)
	return nil
}

// DestroyAll removes every session of a principal, cached copies included.
// A revoked session must not be honored for even the cache TTL.
func (m *Manager) DestroyAll(ctx context.Context, principalID uuid.UUID) (int64, error) {
	ids, err := m.store.DeleteSessionsForPrincipal(ctx, principalID)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		m.discard(ctx, id)
	}
	return int64(len(ids)), nil
}

func (m *Manager) cacheSession(ctx context.Context, sess *store.Session) {
	if m.cache == nil {
		return
	}
	ttl := sessionCacheTTL
	if remaining := sess.ExpiresAt.Sub(m.now()); remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		return
	}
	if err := cache.Set(ctx, m.cache, cache.SessionKey(sess.ID), *sess, ttl); err != nil {
		m.logger.Debug("session cache write failed", logging.Err(err))
	}
}

func (m *Manager) cachedSession(ctx context.Context, id string) *store.Session {
	if m.cache == nil {
		return nil
	}
	sess, outcome := cache.Get[store.Session](ctx, m.cache, cache.SessionKey(id))
	if outcome != cache.Hit {
		return nil
	}
	sess.Fresh = false
	return &sess
}

func (m *Manager) discard(ctx context.Context, id string) {
	if m.cache == nil {
		return
	}
	m.cache.Delete(ctx, cache.SessionKey(id))
}
