package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/kollabhq/kollab/internal/cache"
	"github.com/kollabhq/kollab/internal/logging"
)

// BlockRecorder receives limiter block events for metrics.
type BlockRecorder interface {
	RecordLimiterBlock(ctx context.Context, bucket string)
}

// noopBlockRecorder is a no-op implementation of BlockRecorder.
type noopBlockRecorder struct{}

func (noopBlockRecorder) RecordLimiterBlock(context.Context, string) {}

// Decision is the outcome of a limiter check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int

	// RetryAfter is the remaining window when blocked.
	RetryAfter time.Duration

	// Reset is when the current window expires.
	Reset time.Time

	// Degraded marks a fail-open pass caused by a cache outage.
	Degraded bool
}

// Limiter checks fixed-window counters stored in the shared cache.
type Limiter struct {
	cache   *cache.Client
	logger  *slog.Logger
	metrics BlockRecorder
	now     func() time.Time
}

// LimiterOption is a functional option for configuring Limiter.
type LimiterOption func(*Limiter)

// WithLogger sets the logger for the limiter.
func WithLogger(logger *slog.Logger) LimiterOption {
	return func(l *Limiter) {
		l.logger = logger
	}
}

// WithBlockRecorder sets the metrics recorder for block events.
func WithBlockRecorder(metrics BlockRecorder) LimiterOption {
	return func(l *Limiter) {
		l.metrics = metrics
	}
}

// withClock sets the clock function for testing.
func withClock(now func() time.Time) LimiterOption {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a Limiter backed by the shared cache client.
func New(c *cache.Client, opts ...LimiterOption) *Limiter {
	l := &Limiter{
		cache:   c,
		logger:  slog.Default(),
		metrics: noopBlockRecorder{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check increments the window counter for (bucket, key) and decides whether
// the request passes. A counter exactly at the bucket maximum still passes;
// the first increment beyond it blocks.
func (l *Limiter) Check(ctx context.Context, bucket Bucket, key string) Decision {
	counterKey := cache.RateLimitKey(bucket.Name, key)

	count, err := l.cache.Increment(ctx, counterKey, bucket.Window)
	if err != nil {
		l.logger.Warn("rate limiter degraded, failing open",
			logging.Bucket(bucket.Name), logging.Err(err))
		return Decision{
			Allowed:   true,
			Limit:     bucket.Max,
			Remaining: bucket.Max,
			Degraded:  true,
		}
	}

	remainingWindow, err := l.cache.TTL(ctx, counterKey)
	if err != nil || remainingWindow <= 0 {
		remainingWindow = bucket.Window
	}

	d := Decision{
		Limit: bucket.Max,
		Reset: l.now().Add(remainingWindow),
	}
	if count <= int64(bucket.Max) {
		d.Allowed = true
		d.Remaining = bucket.Max - int(count)
		return d
	}

	d.RetryAfter = remainingWindow
	l.metrics.RecordLimiterBlock(ctx, bucket.Name)
	l.logger.Debug("rate limit exceeded",
		logging.Bucket(bucket.Name), slog.Int64("count", count))
	return d
}
