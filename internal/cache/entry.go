package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Outcome reports what a typed lookup found.
type Outcome int

const (
	// Miss means the key was not cached (or the datastore was unreachable).
	Miss Outcome = iota
	// Hit means a value was cached.
	Hit
	// HitAbsent means the key cached a negative sentinel: the value was
	// authoritatively verified absent.
	HitAbsent
)

// envelope is the wire form of a cached entry. The explicit absent variant
// keeps "verified not present" distinguishable from "not cached".
type envelope[T any] struct {
	Present *T   `json:"present,omitempty"`
	Absent  bool `json:"absent,omitempty"`
}

// Get reads a typed entry. Undecodable payloads are treated as a miss; the
// source of truth repopulates them on the next write.
func Get[T any](ctx context.Context, c *Client, key string) (T, Outcome) {
	var zero T
	data, ok := c.getRaw(ctx, key)
	if !ok {
		c.metrics.RecordCacheMiss(ctx, Namespace(key))
		return zero, Miss
	}

	var env envelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Warn("cache entry undecodable, treating as miss", "key", key, "error", err)
		c.metrics.RecordCacheMiss(ctx, Namespace(key))
		return zero, Miss
	}

	c.metrics.RecordCacheHit(ctx, Namespace(key))
	if env.Absent || env.Present == nil {
		return zero, HitAbsent
	}
	return *env.Present, Hit
}

// Set caches a value under key for ttl.
func Set[T any](ctx context.Context, c *Client, key string, value T, ttl time.Duration) error {
	data, err := json.Marshal(envelope[T]{Present: &value})
	if err != nil {
		return err
	}
	return c.setRaw(ctx, key, data, ttl)
}

// SetAbsent caches the negative sentinel under key for ttl. Negative results
// get the same TTL as positive ones to prevent negative-lookup amplification.
func SetAbsent(ctx context.Context, c *Client, key string, ttl time.Duration) error {
	data, err := json.Marshal(envelope[struct{}]{Absent: true})
	if err != nil {
		return err
	}
	return c.setRaw(ctx, key, data, ttl)
}
