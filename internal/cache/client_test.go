package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient spins up an in-process datastore and returns a client bound
// to it.
func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewFromRedis(rdb)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestSetRejectsZeroTTL(t *testing.T) {
	c, _ := newTestClient(t)

	err := c.setRaw(context.Background(), "workspace:w1", []byte("{}"), 0)
	assert.ErrorIs(t, err, ErrInvalidTTL)

	err = c.setRaw(context.Background(), "workspace:w1", []byte("{}"), -time.Second)
	assert.ErrorIs(t, err, ErrInvalidTTL)
}

func TestGetRawMissAndHit(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	_, ok := c.getRaw(ctx, "workspace:w1")
	assert.False(t, ok)

	require.NoError(t, c.setRaw(ctx, "workspace:w1", []byte(`{"present":{}}`), time.Minute))
	data, ok := c.getRaw(ctx, "workspace:w1")
	assert.True(t, ok)
	assert.NotEmpty(t, data)
}

func TestGetRawFailOpenWhenUnreachable(t *testing.T) {
	c, mr := newTestClient(t)
	mr.Close()

	_, ok := c.getRaw(context.Background(), "workspace:w1")
	assert.False(t, ok, "unreachable datastore must read as absent")
}

func TestIncrementWindowSemantics(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()
	key := RateLimitKey("auth", "203.0.113.9")

	n, err := c.Increment(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// The window must not slide on subsequent increments.
	mr.FastForward(30 * time.Second)
	n, err = c.Increment(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ttl, err := c.TTL(ctx, key)
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, 30*time.Second)

	// After the window the counter starts over.
	mr.FastForward(31 * time.Second)
	n, err = c.Increment(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestTryLockAndUnlock(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	key := LockKey("documents_list:w1")

	ok, err := c.TryLock(ctx, key, "holder-a", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second holder must not acquire while the lock is held.
	ok, err = c.TryLock(ctx, key, "holder-b", 5*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	// A non-owner release is a no-op.
	c.Unlock(ctx, key, "holder-b")
	ok, err = c.TryLock(ctx, key, "holder-b", 5*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	// The owner releases; the lock becomes available.
	c.Unlock(ctx, key, "holder-a")
	ok, err = c.TryLock(ctx, key, "holder-b", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockExpires(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()
	key := LockKey("member:p1:w1")

	ok, err := c.TryLock(ctx, key, "holder-a", 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(6 * time.Second)

	ok, err = c.TryLock(ctx, key, "holder-b", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "expired lock must be acquirable")
}

func TestDeletePattern(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	for page := 1; page <= 250; page++ {
		key := TasksListKey("w1", page, 20)
		require.NoError(t, c.setRaw(ctx, key, []byte("{}"), time.Minute))
	}
	require.NoError(t, c.setRaw(ctx, TasksListKey("w2", 1, 20), []byte("{}"), time.Minute))

	c.DeletePattern(ctx, TasksListPattern("w1"))

	_, ok := c.getRaw(ctx, TasksListKey("w1", 1, 20))
	assert.False(t, ok)
	_, ok = c.getRaw(ctx, TasksListKey("w1", 250, 20))
	assert.False(t, ok)
	_, ok = c.getRaw(ctx, TasksListKey("w2", 1, 20))
	assert.True(t, ok, "other workspaces must be untouched")

	// Idempotent: deleting again is harmless.
	c.DeletePattern(ctx, TasksListPattern("w1"))
}

func TestStats(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	for i := range 5 {
		require.NoError(t, c.setRaw(ctx, fmt.Sprintf("workspace:w%d", i), []byte("{}"), time.Minute))
	}

	stats := c.Stats(ctx)
	assert.False(t, stats.Unreachable)
	assert.Equal(t, int64(5), stats.KeyCount)
}

func TestStatsUnreachable(t *testing.T) {
	c, mr := newTestClient(t)
	mr.Close()

	stats := c.Stats(context.Background())
	assert.True(t, stats.Unreachable)
}
