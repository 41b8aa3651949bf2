// Package kv provides the key-value store abstraction shared by the
// rate limiter and the revocation registry. Two interchangeable backends
// exist: an in-process map for single-instance deployments and a Redis
// backend for anything running more than one serving process, since
// rate-limit and revocation correctness depend on a consistent view
// across instances.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned (wrapped) when the backing store cannot be
// reached. Callers decide the failure policy: the revocation registry
// fails closed on it, the rate limiter fails open.
var ErrUnavailable = errors.New("kv store unavailable")

// Store is an async key-value store with TTL support. All methods must be
// safe for concurrent use. ListKeys is a diagnostics helper and must not
// be used on request hot paths.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key. A positive ttl bounds the entry's
	// lifetime; ttl <= 0 stores it without expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// ListKeys returns all live keys beginning with prefix.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}
