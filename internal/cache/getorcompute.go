package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Stampede-protection tuning. A caller never waits more than
// lockRetries x lockRetryDelay (500 ms) before computing the value itself.
const (
	computeLockTTL = 5 * time.Second
	lockRetries    = 10
	lockRetryDelay = 50 * time.Millisecond
)

// GetOrCompute returns the cached value under key, or computes it with fetch
// and caches it for ttl. Concurrent callers on this replica collapse into a
// single computation; across replicas a best-effort distributed mutex bounds
// duplicate work. When the lock cannot be obtained within the wait budget,
// the caller computes the value without writing it back, trading duplicate
// work for bounded latency.
//
// fetch must be pure with respect to key: any input that changes the result
// must be part of the key.
func GetOrCompute[T any](ctx context.Context, c *Client, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	if value, outcome := Get[T](ctx, c, key); outcome == Hit {
		return value, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		return computeLocked(ctx, c, key, ttl, fetch)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

// computeLocked runs the miss path under the distributed mutex.
func computeLocked[T any](ctx context.Context, c *Client, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var zero T

	// Another goroutine may have populated the key while we queued.
	if value, outcome := Get[T](ctx, c, key); outcome == Hit {
		return value, nil
	}

	lockKey := LockKey(key)
	token := uuid.NewString()

	acquired, err := c.TryLock(ctx, lockKey, token, computeLockTTL)
	if err != nil {
		// Datastore unreachable: compute without coordination. The fetch is
		// idempotent and the result is simply not cached.
		return fetch(ctx)
	}

	if acquired {
		defer c.Unlock(ctx, lockKey, token)

		value, err := fetch(ctx)
		if err != nil {
			return zero, err
		}
		if err := Set(ctx, c, key, value, ttl); err != nil {
			c.logger.Warn("caching computed value failed", "key", key, "error", err)
		}
		return value, nil
	}

	// Lock held elsewhere: poll for the winner's write, bounded to 500 ms.
	for range lockRetries {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(lockRetryDelay):
		}
		if value, outcome := Get[T](ctx, c, key); outcome == Hit {
			return value, nil
		}
	}

	// Fail open: compute without writing so a stuck holder cannot stall
	// requests indefinitely.
	return fetch(ctx)
}
