// Package revocation records revoked token IDs (jti) until their natural
// expiry. Entries carry a TTL equal to the token's remaining lifetime, so
// the registry never grows beyond the set of live tokens and needs no
// sweeping.
package revocation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/draycottmotors/adminauth/kv"
)

const keyPrefix = "rvk:"

// Registry tracks revoked jti values in a kv.Store.
type Registry struct {
	store kv.Store
	log   *zap.Logger
}

// NewRegistry creates a Registry over the given store. A nil logger
// falls back to zap.NewNop.
func NewRegistry(store kv.Store, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{store: store, log: log}
}

// Revoke records jti as revoked until expiresAt. Revoking an already
// expired token is a no-op: verification rejects it on expiry anyway.
func (r *Registry) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	return r.store.Set(ctx, keyPrefix+jti, "1", ttl)
}

// IsRevoked reports whether jti has been revoked. Absence of an entry
// means not revoked.
//
// Policy: a store failure here is treated as revoked (fail closed).
// Trusting a token that should be revoked is the worse failure mode, so
// availability is sacrificed for correctness on this specific check.
func (r *Registry) IsRevoked(ctx context.Context, jti string) bool {
	_, ok, err := r.store.Get(ctx, keyPrefix+jti)
	if err != nil {
		r.log.Warn("revocation lookup failed, failing closed",
			zap.String("jti", jti),
			zap.Error(err),
		)
		return true
	}

	return ok
}

// ListRevoked returns the currently revoked jti values. Diagnostics only.
func (r *Registry) ListRevoked(ctx context.Context) ([]string, error) {
	keys, err := r.store.ListKeys(ctx, keyPrefix)
	if err != nil {
		return nil, err
	}

	jtis := make([]string, len(keys))
	for i, key := range keys {
		jtis[i] = key[len(keyPrefix):]
	}
	return jtis, nil
}
