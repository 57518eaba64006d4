// Package ttlcache is a keyed get-or-compute cache with per-entry expiry.
//
// An entry is live iff clock.Now() is strictly before its expiry. Concurrent
// misses for the same key are collapsed into a single computation. Storage is
// pluggable so the same TTL rules apply to in-process and Redis-backed caches.
package ttlcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/alem-hub/learnpulse/pkg/timeutil"
)

// Entry is a cached value and the instant it stops being valid.
type Entry[V any] struct {
	Value     V         `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Live reports whether the entry may still be served at now.
func (e Entry[V]) Live(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Backend stores entries. Implementations must be safe for concurrent use.
type Backend[V any] interface {
	Load(ctx context.Context, key string) (Entry[V], bool, error)
	Store(ctx context.Context, key string, e Entry[V]) error
	Delete(ctx context.Context, key string) error
}

// Expirer lets a value carry its own expiry, overriding the cache TTL.
type Expirer interface {
	Expiry() time.Time
}

// ErrNoStore, returned by a ComputeFunc together with its value, hands the
// value to the caller without caching it.
var ErrNoStore = errors.New("ttlcache: value not stored")

// ComputeFunc produces a fresh value on a miss.
type ComputeFunc[V any] func(ctx context.Context) (V, error)

// Stats counts cache outcomes.
type Stats struct {
	Hits         int64
	Misses       int64
	BackendError int64
}

// Cache is a get-or-compute cache over a Backend.
type Cache[V any] struct {
	backend Backend[V]
	clock   timeutil.Clock
	ttl     time.Duration
	group   singleflight.Group

	mu    sync.Mutex
	stats Stats
}

// New creates a cache. A nil clock uses the real clock.
func New[V any](backend Backend[V], ttl time.Duration, clock timeutil.Clock) *Cache[V] {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Cache[V]{backend: backend, clock: clock, ttl: ttl}
}

// TTL returns the default lifetime of an entry.
func (c *Cache[V]) TTL() time.Duration {
	return c.ttl
}

// GetOrCompute returns the live cached value for key, or runs compute and
// stores its result. The boolean is true on a cache hit. Backend read errors
// are treated as misses; backend write errors are returned alongside the
// freshly computed value.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, compute ComputeFunc[V]) (V, bool, error) {
	if v, ok := c.lookup(ctx, key); ok {
		return v, true, nil
	}

	type result struct {
		value V
		hit   bool
		err   error
	}

	res, err, _ := c.group.Do(key, func() (any, error) {
		// Another caller may have filled the entry while we waited.
		if v, ok := c.lookup(ctx, key); ok {
			return result{value: v, hit: true}, nil
		}

		c.count(func(s *Stats) { s.Misses++ })
		v, err := compute(ctx)
		if errors.Is(err, ErrNoStore) {
			return result{value: v}, nil
		}
		if err != nil {
			return nil, err
		}

		entry := Entry[V]{Value: v, ExpiresAt: c.expiryFor(v)}
		if storeErr := c.backend.Store(ctx, key, entry); storeErr != nil {
			c.count(func(s *Stats) { s.BackendError++ })
			return result{value: v, err: fmt.Errorf("ttlcache: store %q: %w", key, storeErr)}, nil
		}
		return result{value: v}, nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}

	r := res.(result)
	return r.value, r.hit, r.err
}

// Peek returns a live entry without computing.
func (c *Cache[V]) Peek(ctx context.Context, key string) (V, bool) {
	e, ok, err := c.backend.Load(ctx, key)
	if err != nil || !ok || !e.Live(c.clock.Now()) {
		var zero V
		return zero, false
	}
	return e.Value, true
}

// Invalidate drops key so the next call recomputes.
func (c *Cache[V]) Invalidate(ctx context.Context, key string) error {
	return c.backend.Delete(ctx, key)
}

// Stats returns a copy of the hit/miss counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Cache[V]) lookup(ctx context.Context, key string) (V, bool) {
	e, ok, err := c.backend.Load(ctx, key)
	if err != nil {
		c.count(func(s *Stats) { s.BackendError++ })
	}
	if err != nil || !ok || !e.Live(c.clock.Now()) {
		var zero V
		return zero, false
	}
	c.count(func(s *Stats) { s.Hits++ })
	return e.Value, true
}

func (c *Cache[V]) expiryFor(v V) time.Time {
	if exp, ok := any(v).(Expirer); ok {
		return exp.Expiry()
	}
	return c.clock.Now().Add(c.ttl)
}

func (c *Cache[V]) count(fn func(*Stats)) {
	c.mu.Lock()
	fn(&c.stats)
	c.mu.Unlock()
}
