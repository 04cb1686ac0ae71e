// Package ratelimit implements the fixed-window request limiter shared by
// every API route.
//
// Counters live in the cache datastore under the rate_limit namespace, so
// replicas share one window per (bucket, principal) pair. The limiter fails
// open: when the datastore is unreachable, requests pass with a warning
// header rather than blocking users on cache outages.
package ratelimit
