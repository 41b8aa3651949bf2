// Package ratelimit implements fixed-window attempt limiting over a
// kv.Store, keyed by caller identity (source IP or account).
package ratelimit

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"sync"
	"time"
)

const keyPrefix = "rl:"

const lockStripes = 64

// Config holds rate limiter tuning parameters.
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

// Status is a read-only snapshot of one identity's window, used for
// diagnostics and response headers.
type Status struct {
	Count     int
	Remaining int
	ResetAt   time.Time
}

// Limiter enforces per-identity attempt budgets within a rolling
// fixed window. The read-modify-write on a single key is serialized
// through striped locks so that two concurrent attempts from the same
// identity cannot both slip through as the Nth request.
//
// With the Redis backend the locks serialize writers within one process;
// cross-instance strictness is bounded by the shared store's view, which
// is why multi-instance deployments must not use the memory backend.
type Limiter struct {
	store  store
	config Config
	locks  [lockStripes]sync.Mutex

	now func() time.Time
}

// store is the subset of kv.Store the limiter needs.
type store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// New creates a Limiter backed by the given store.
func New(st store, cfg Config) (*Limiter, error) {
	if cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("ratelimit: MaxAttempts must be positive, got %d", cfg.MaxAttempts)
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("ratelimit: Window must be positive, got %v", cfg.Window)
	}

	return &Limiter{store: st, config: cfg, now: time.Now}, nil
}

// Allow consumes one attempt for key and reports whether it is within
// budget. The first attempt in a window creates a fresh record with
// count=1. Once the budget is exhausted the counter stops incrementing,
// so a flood of rejected attempts cannot grow the counter without bound.
// Once the window's reset instant passes, the record is replaced as if
// new.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	lock := l.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	now := l.now()

	record, ok, err := l.load(ctx, key)
	if err != nil {
		return false, err
	}

	if !ok || !now.Before(record.resetAt) {
		fresh := windowRecord{count: 1, resetAt: now.Add(l.config.Window)}
		if err := l.save(ctx, key, fresh); err != nil {
			return false, err
		}
		return true, nil
	}

	if record.count >= l.config.MaxAttempts {
		return false, nil
	}

	record.count++
	if err := l.save(ctx, key, record); err != nil {
		return false, err
	}

	return true, nil
}

// Status returns the current window state for key without consuming an
// attempt. An absent or lapsed record reads as a full budget.
func (l *Limiter) Status(ctx context.Context, key string) (Status, error) {
	record, ok, err := l.load(ctx, key)
	if err != nil {
		return Status{}, err
	}

	if !ok || !l.now().Before(record.resetAt) {
		return Status{Count: 0, Remaining: l.config.MaxAttempts}, nil
	}

	remaining := l.config.MaxAttempts - record.count
	if remaining < 0 {
		remaining = 0
	}

	return Status{Count: record.count, Remaining: remaining, ResetAt: record.resetAt}, nil
}

type windowRecord struct {
	count   int
	resetAt time.Time
}

func (l *Limiter) load(ctx context.Context, key string) (windowRecord, bool, error) {
	raw, ok, err := l.store.Get(ctx, keyPrefix+key)
	if err != nil {
		return windowRecord{}, false, err
	}
	if !ok {
		return windowRecord{}, false, nil
	}

	record, err := decodeRecord(raw)
	if err != nil {
		// A corrupt record is replaced rather than trusted.
		return windowRecord{}, false, nil
	}

	return record, true, nil
}

func (l *Limiter) save(ctx context.Context, key string, record windowRecord) error {
	// Retention horizon equals the window: the entry dies with the window
	// unless renewed activity rewrites it.
	ttl := record.resetAt.Sub(l.now())
	if ttl <= 0 {
		ttl = time.Second
	}

	return l.store.Set(ctx, keyPrefix+key, encodeRecord(record), ttl)
}

func (l *Limiter) lockFor(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &l.locks[h.Sum32()%lockStripes]
}

func encodeRecord(record windowRecord) string {
	return strconv.Itoa(record.count) + ":" + strconv.FormatInt(record.resetAt.Unix(), 10)
}

func decodeRecord(raw string) (windowRecord, error) {
	countStr, resetStr, ok := strings.Cut(raw, ":")
	if !ok {
		return windowRecord{}, fmt.Errorf("ratelimit: malformed record %q", raw)
	}

	count, err := strconv.Atoi(countStr)
	if err != nil {
		return windowRecord{}, fmt.Errorf("ratelimit: malformed count in %q", raw)
	}
	resetUnix, err := strconv.ParseInt(resetStr, 10, 64)
	if err != nil {
		return windowRecord{}, fmt.Errorf("ratelimit: malformed reset in %q", raw)
	}

	return windowRecord{count: count, resetAt: time.Unix(resetUnix, 0)}, nil
}
