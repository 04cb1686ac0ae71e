package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Operation timeouts. Cache round-trips target 50 ms; anything beyond the
// hard limit is treated as an outage and the caller proceeds without the
// cache.
const (
	opTimeout = 200 * time.Millisecond

	// deleteScanCount bounds each SCAN page so pattern deletion never
	// blocks the datastore.
	deleteScanCount = 100
)

// ErrInvalidTTL is returned by Set when the TTL is zero or negative.
var ErrInvalidTTL = errors.New("cache: ttl must be positive")

// MetricsRecorder receives cache events. Implementations must be safe for
// concurrent use.
type MetricsRecorder interface {
	RecordCacheHit(ctx context.Context, namespace string)
	RecordCacheMiss(ctx context.Context, namespace string)
	RecordCacheError(ctx context.Context, operation string)
}

// noopMetricsRecorder is a no-op implementation of MetricsRecorder.
type noopMetricsRecorder struct{}

func (noopMetricsRecorder) RecordCacheHit(context.Context, string)   {}
func (noopMetricsRecorder) RecordCacheMiss(context.Context, string)  {}
func (noopMetricsRecorder) RecordCacheError(context.Context, string) {}

// unlockScript releases a lock only when the stored token matches the
// caller's. Holders must not release tokens they do not own.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// incrementScript increments a counter and binds the window TTL on the first
// increment only, keeping the window fixed rather than sliding.
var incrementScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// Client is the typed cache client. All cache mutations in the backend go
// through it.
type Client struct {
	rdb     *redis.Client
	logger  *slog.Logger
	metrics MetricsRecorder

	// group collapses concurrent per-key computations on this replica.
	group singleflight.Group
}

// Option is a functional option for configuring Client.
type Option func(*Client)

// WithLogger sets the logger for the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder for the client.
func WithMetrics(metrics MetricsRecorder) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// New connects to the cache datastore at url (redis://...).
func New(url string, opts ...Option) (*Client, error) {
	parsed, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing cache url: %w", err)
	}
	parsed.DialTimeout = 2 * time.Second
	parsed.ReadTimeout = opTimeout
	parsed.WriteTimeout = opTimeout
	return NewFromRedis(redis.NewClient(parsed), opts...), nil
}

// NewFromRedis wraps an existing datastore connection. Used by tests to
// point the client at an in-process server.
func NewFromRedis(rdb *redis.Client, opts ...Option) *Client {
	c := &Client{
		rdb:     rdb,
		logger:  slog.Default(),
		metrics: noopMetricsRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies connectivity and returns the observed round-trip latency.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	start := time.Now()
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

// getRaw reads a key. A missing key and an unreachable datastore both report
// ok=false; the caller falls back to the source of truth either way.
func (c *Client) getRaw(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		return data, true
	case errors.Is(err, redis.Nil):
		return nil, false
	default:
		c.metrics.RecordCacheError(ctx, "get")
		c.logger.Warn("cache read failed, treating as absent", "key", key, "error", err)
		return nil, false
	}
}

// setRaw writes a key with a TTL. ttl must be positive.
func (c *Client) setRaw(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		c.metrics.RecordCacheError(ctx, "set")
		c.logger.Warn("cache write failed", "key", key, "error", err)
		return err
	}
	return nil
}

// Delete removes the given keys. Unreachable datastore errors are logged and
// swallowed; a delete that cannot happen only shortens staleness by TTL.
func (c *Client) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.metrics.RecordCacheError(ctx, "delete")
		c.logger.Warn("cache delete failed", "keys", strings.Join(keys, ","), "error", err)
	}
}

// DeletePattern removes every key matching the glob pattern using cursor
// scans, never a blocking sweep. The operation is idempotent.
func (c *Client) DeletePattern(ctx context.Context, pattern string) {
	iter := c.rdb.Scan(ctx, 0, pattern, deleteScanCount).Iterator()

	batch := make([]string, 0, deleteScanCount)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := c.rdb.Del(ctx, batch...).Err(); err != nil {
			c.metrics.RecordCacheError(ctx, "delete_pattern")
			c.logger.Warn("cache pattern delete failed", "pattern", pattern, "error", err)
		}
		batch = batch[:0]
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= deleteScanCount {
			flush()
		}
	}
	flush()

	if err := iter.Err(); err != nil {
		c.metrics.RecordCacheError(ctx, "delete_pattern")
		c.logger.Warn("cache pattern scan failed", "pattern", pattern, "error", err)
	}
}

// Increment atomically increments a counter. The first increment binds the
// window TTL to the key; later increments leave the deadline untouched.
func (c *Client) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	n, err := incrementScript.Run(ctx, c.rdb, []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		c.metrics.RecordCacheError(ctx, "increment")
		return 0, err
	}
	return n, nil
}

// TTL returns the remaining lifetime of a key. Keys without expiry or
// missing keys report zero.
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	ttl, err := c.rdb.TTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// TryLock attempts to acquire the mutex key for ttl, storing holderToken.
// It succeeds only when the key is absent.
func (c *Client) TryLock(ctx context.Context, key, holderToken string, ttl time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	ok, err := c.rdb.SetNX(ctx, key, holderToken, ttl).Result()
	if err != nil {
		c.metrics.RecordCacheError(ctx, "try_lock")
		return false, err
	}
	return ok, nil
}

// Unlock releases the mutex only if holderToken still owns it. Releasing a
// lock whose token has rotated is a no-op.
func (c *Client) Unlock(ctx context.Context, key, holderToken string) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := unlockScript.Run(ctx, c.rdb, []string{key}, holderToken).Err(); err != nil && !errors.Is(err, redis.Nil) {
		c.metrics.RecordCacheError(ctx, "unlock")
		c.logger.Warn("cache unlock failed", "key", key, "error", err)
	}
}

// Stats describes the datastore for the cache admin surface.
type Stats struct {
	KeyCount    int64   `json:"keyCount"`
	MemoryUsed  int64   `json:"memoryUsedBytes"`
	HitRate     float64 `json:"hitRate"`
	LatencyMS   float64 `json:"latencyMs"`
	Unreachable bool    `json:"unreachable,omitempty"`
}

// Stats gathers datastore statistics. An unreachable datastore yields a
// zero-valued Stats with Unreachable set rather than an error.
func (c *Client) Stats(ctx context.Context) Stats {
	latency, err := c.Ping(ctx)
	if err != nil {
		return Stats{Unreachable: true}
	}

	stats := Stats{LatencyMS: float64(latency.Microseconds()) / 1000}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if n, err := c.rdb.DBSize(ctx).Result(); err == nil {
		stats.KeyCount = n
	}

	info, err := c.rdb.Info(ctx, "memory", "stats").Result()
	if err != nil {
		return stats
	}
	var hits, misses int64
	for line := range strings.Lines(info) {
		line = strings.TrimSpace(line)
		if value, ok := strings.CutPrefix(line, "used_memory:"); ok {
			stats.MemoryUsed, _ = strconv.ParseInt(value, 10, 64)
		}
		if value, ok := strings.CutPrefix(line, "keyspace_hits:"); ok {
			hits, _ = strconv.ParseInt(value, 10, 64)
		}
		if value, ok := strings.CutPrefix(line, "keyspace_misses:"); ok {
			misses, _ = strconv.ParseInt(value, 10, 64)
		}
	}
	if hits+misses > 0 {
		stats.HitRate = float64(hits) / float64(hits+misses)
	}
	return stats
}
