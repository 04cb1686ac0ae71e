package authz

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/kollabhq/kollab/internal/apierr"
	"github.com/kollabhq/kollab/internal/cache"
	"github.com/kollabhq/kollab/internal/instrumentation"
	"github.com/kollabhq/kollab/internal/logging"
	"github.com/kollabhq/kollab/internal/store"
)

// Stampede protection for the miss path.
const (
	resolveLockTTL    = 5 * time.Second
	resolveRetries    = 10
	resolveRetryDelay = 50 * time.Millisecond

	warmUpTimeout = 3 * time.Second
)

// MembershipSource is the source of truth the resolver falls back to.
type MembershipSource interface {
	GetMembership(ctx context.Context, workspaceID, principalID uuid.UUID) (*store.Membership, error)
}

// StoreAdapter exposes a *store.Store as a MembershipSource.
type StoreAdapter struct {
	S *store.Store
}

func (a StoreAdapter) GetMembership(ctx context.Context, workspaceID, principalID uuid.UUID) (*store.Membership, error) {
	return store.GetMembership(ctx, a.S.DB(), workspaceID, principalID)
}

// Resolver answers "may principal P act on workspace W with role at least R".
type Resolver struct {
	source MembershipSource
	cache  *cache.Client
	group  singleflight.Group
	logger *slog.Logger
	warmUp bool
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithWarmUp re-resolves memberships in the background after invalidation so
// the next request hits the cache.
func WithWarmUp() ResolverOption {
	return func(r *Resolver) {
		r.warmUp = true
	}
}

// NewResolver builds a Resolver over a membership source and a cache.
func NewResolver(source MembershipSource, c *cache.Client, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		source: source,
		cache:  c,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the principal's membership on the workspace, or a
// forbidden failure for non-members. Positive cache hits are served
// directly; negative hits are always re-checked against the source so an
// authorization decision never rides a stale sentinel.
func (r *Resolver) Resolve(ctx context.Context, workspaceID, principalID uuid.UUID) (*store.Membership, error) {
	key := cache.MemberKey(principalID.String(), workspaceID.String())

	if m, outcome := cache.Get[store.Membership](ctx, r.cache, key); outcome == cache.Hit {
		return &m, nil
	}

	result, err, _ := r.group.Do(key, func() (any, error) {
		return r.resolveLocked(ctx, key, workspaceID, principalID)
	})
	if err != nil {
		return nil, err
	}
	m := result.(*store.Membership)
	if m == nil {
		return nil, apierr.Forbidden("not a workspace member")
	}
	return m, nil
}

// Require resolves the membership and enforces a minimum role.
func (r *Resolver) Require(ctx context.Context, workspaceID, principalID uuid.UUID, min store.Role) (*store.Membership, error) {
	m, err := r.Resolve(ctx, workspaceID, principalID)
	if err != nil {
		return nil, err
	}
	if !m.Role.AtLeast(min) {
		return nil, apierr.Forbidden("requires role " + string(min) + " or higher")
	}
	return m, nil
}

// resolveLocked runs the miss path under the distributed mutex. It returns
// a nil membership for verified non-members.
func (r *Resolver) resolveLocked(ctx context.Context, key string, workspaceID, principalID uuid.UUID) (*store.Membership, error) {
	if m, outcome := cache.Get[store.Membership](ctx, r.cache, key); outcome == cache.Hit {
		return &m, nil
	}

	lockKey := cache.LockKey(key)
	token := uuid.NewString()

	acquired, err := r.cache.TryLock(ctx, lockKey, token, resolveLockTTL)
	if err != nil {
		// Cache unreachable: the query is idempotent, resolve uncoordinated.
		return r.querySource(ctx, workspaceID, principalID)
	}

	if acquired {
		defer r.cache.Unlock(ctx, lockKey, token)
		return r.resolveAndCache(ctx, key, workspaceID, principalID)
	}

	// Lock held elsewhere: wait briefly for the winner's write. Only a
	// positive hit short-circuits; a sentinel written moments ago still gets
	// re-verified below.
	for range resolveRetries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(resolveRetryDelay):
		}
		if m, outcome := cache.Get[store.Membership](ctx, r.cache, key); outcome == cache.Hit {
			return &m, nil
		}
	}
	return r.querySource(ctx, workspaceID, principalID)
}

// resolveAndCache queries the source and writes either the positive value or
// the negative sentinel, both with the same TTL.
func (r *Resolver) resolveAndCache(ctx context.Context, key string, workspaceID, principalID uuid.UUID) (*store.Membership, error) {
	ctx, span := instrumentation.StartSpan(ctx, "membership.resolve",
		instrumentation.NewSpanAttributeBuilder().
			WithWorkspace(workspaceID.String()).
			WithOperation("resolve").
			WithCacheHit(false).
			WithCacheNamespace("member").
			Build()...)
	defer span.End()

	m, err := r.querySource(ctx, workspaceID, principalID)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}
	instrumentation.SetSpanSuccess(span)
	if m == nil {
		if err := cache.SetAbsent(ctx, r.cache, key, cache.TTLMember); err != nil {
			r.logger.Warn("caching membership sentinel failed", logging.CacheKey(key), logging.Err(err))
		}
		return nil, nil
	}
	if err := cache.Set(ctx, r.cache, key, *m, cache.TTLMember); err != nil {
		r.logger.Warn("caching membership failed", logging.CacheKey(key), logging.Err(err))
	}
	return m, nil
}

// querySource loads the membership from the source of truth, mapping "no
// row" to a nil membership.
func (r *Resolver) querySource(ctx context.Context, workspaceID, principalID uuid.UUID) (*store.Membership, error) {
	m, err := r.source.GetMembership(ctx, workspaceID, principalID)
	if err != nil {
		if errors.Is(err, apierr.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// Invalidate drops the cached membership for one (principal, workspace)
// pair and the workspace's member listing. Called after any membership
// mutation. When warm-up is enabled the pair is re-resolved in the
// background so the next request hits the cache.
func (r *Resolver) Invalidate(ctx context.Context, workspaceID, principalID uuid.UUID) {
	key := cache.MemberKey(principalID.String(), workspaceID.String())
	r.cache.Delete(ctx, key, cache.MembersKey(workspaceID.String()))

	if r.warmUp {
		go r.warmUpPair(workspaceID, principalID)
	}
}

// InvalidateWorkspace drops every membership key of a workspace. Called on
// workspace deletion.
func (r *Resolver) InvalidateWorkspace(ctx context.Context, workspaceID uuid.UUID) {
	r.cache.DeletePattern(ctx, cache.MemberPattern(workspaceID.String()))
	r.cache.Delete(ctx, cache.MembersKey(workspaceID.String()))
}

// warmUpPair re-resolves one membership off the request path. Failures are
// swallowed, warm-up is purely an optimization.
func (r *Resolver) warmUpPair(workspaceID, principalID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), warmUpTimeout)
	defer cancel()

	key := cache.MemberKey(principalID.String(), workspaceID.String())
	if _, err := r.resolveAndCache(ctx, key, workspaceID, principalID); err != nil {
		r.logger.Debug("membership warm-up failed", logging.CacheKey(key), logging.Err(err))
	}
}
