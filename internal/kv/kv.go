// Package kv defines the fast-path key/value contract shared by the token
// subsystem and the fraud engine: plain string GET/SET, set-if-absent with
// TTL, and the sorted-set primitives velocity tracking needs. Every method
// takes a context so callers can bound KV calls the same way they bound
// everything else on the hot path.
package kv

import (
	"context"
	"time"
)

// Client is the KV contract every component here depends on. It is
// satisfied by the Redis implementation in this package and can be
// satisfied by a fake in tests.
type Client interface {
	// Get returns the stored value and whether the key existed.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes key=value with the given TTL (0 means no expiry).
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetNX writes key=value with TTL only if key is absent, atomically.
	// Returns true iff this call performed the write.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Del deletes a key. Deleting an absent key is not an error.
	Del(ctx context.Context, key string) error

	// Exists reports whether a key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Expire resets a key's TTL.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// ZAdd adds member with the given score to a sorted set.
	ZAdd(ctx context.Context, key string, score float64, member string) error

	// ZCount counts members in a sorted set with score in [min, max].
	ZCount(ctx context.Context, key string, min, max float64) (int64, error)

	// Ping verifies connectivity, used by health checks.
	Ping(ctx context.Context) error

	Close() error
}

// Client methods report a missing key through Get's bool return, never
// through an error value.
