package redis

import (
	"context"
	"errors"
	"time"

	"github.com/alem-hub/learnpulse/pkg/timeutil"
	"github.com/alem-hub/learnpulse/pkg/ttlcache"
)

// minKeyTTL keeps already-expired entries around briefly so ttlcache, not
// Redis, decides liveness.
const minKeyTTL = time.Second

// Backend stores ttlcache entries as JSON under a key prefix. Redis key
// expiry follows the entry's ExpiresAt so stale keys are reclaimed.
type Backend[V any] struct {
	cache  *Cache
	prefix string
	clock  timeutil.Clock
}

// NewBackend creates a backend. A nil clock uses the real clock.
func NewBackend[V any](cache *Cache, prefix string, clock timeutil.Clock) *Backend[V] {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Backend[V]{cache: cache, prefix: prefix, clock: clock}
}

var _ ttlcache.Backend[int] = (*Backend[int])(nil)

// Load implements ttlcache.Backend.
func (b *Backend[V]) Load(ctx context.Context, key string) (ttlcache.Entry[V], bool, error) {
	var e ttlcache.Entry[V]
	err := b.cache.Get(ctx, b.prefix+key, &e)
	if errors.Is(err, ErrCacheMiss) {
		return ttlcache.Entry[V]{}, false, nil
	}
	if err != nil {
		return ttlcache.Entry[V]{}, false, err
	}
	return e, true, nil
}

// Store implements ttlcache.Backend.
func (b *Backend[V]) Store(ctx context.Context, key string, e ttlcache.Entry[V]) error {
	return b.cache.Set(ctx, b.prefix+key, e, keyTTL(e.ExpiresAt, b.clock.Now()))
}

// Delete implements ttlcache.Backend.
func (b *Backend[V]) Delete(ctx context.Context, key string) error {
	return b.cache.Delete(ctx, b.prefix+key)
}

func keyTTL(expiresAt, now time.Time) time.Duration {
	ttl := expiresAt.Sub(now)
	if ttl < minKeyTTL {
		return minKeyTTL
	}
	return ttl
}
