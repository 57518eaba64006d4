package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/learnpulse/internal/domain/profile"
	"github.com/alem-hub/learnpulse/internal/domain/shared"
	"github.com/alem-hub/learnpulse/pkg/timeutil"
	"github.com/alem-hub/learnpulse/pkg/ttlcache"
)

// testCache connects to REDIS_TEST_URL or skips.
func testCache(t *testing.T) *Cache {
	t.Helper()
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	c, err := NewCache(context.Background(), Config{URL: url})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestConfig_Options(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Password = "secret"
	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 10, opts.PoolSize)

	opts, err = Config{URL: "redis://:pw@cache:6380/2", PoolSize: 4}.Options()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 4, opts.PoolSize)

	_, err = Config{URL: "http://nope"}.Options()
	assert.Error(t, err)
}

func TestKeyTTL(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Hour, keyTTL(now.Add(time.Hour), now))
	assert.Equal(t, minKeyTTL, keyTTL(now, now))
	assert.Equal(t, minKeyTTL, keyTTL(now.Add(-time.Minute), now))
}

func TestBackend_RoundTripThroughCache(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()
	clock := timeutil.NewFakeClock(time.Now())

	backend := NewBackend[string](c, "learnpulse:test:path:", clock)
	cache := ttlcache.New[string](backend, time.Hour, clock)
	key := uuid.NewString()
	t.Cleanup(func() { _ = backend.Delete(ctx, key) })

	calls := 0
	compute := func(context.Context) (string, error) {
		calls++
		return "path-v1", nil
	}

	v, hit, err := cache.GetOrCompute(ctx, key, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "path-v1", v)

	v, hit, err = cache.GetOrCompute(ctx, key, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "path-v1", v)
	assert.Equal(t, 1, calls)

	clock.Advance(time.Hour)
	_, hit, err = cache.GetOrCompute(ctx, key, compute)
	require.NoError(t, err)
	assert.False(t, hit, "entry is not live at its expiry instant")
	assert.Equal(t, 2, calls)
}

func TestProfileStore(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()
	store := NewProfileStore(c, time.Minute)
	userID := uuid.NewString()
	t.Cleanup(func() { _ = c.Delete(ctx, PrefixProfile+userID) })

	_, err := store.Get(ctx, userID)
	assert.ErrorIs(t, err, shared.ErrProfileNotFound)

	p := profile.LearningProfile{UserID: userID, LearningStyle: profile.StyleAuditory}
	require.NoError(t, store.Save(ctx, p))

	got, err := store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, profile.StyleAuditory, got.LearningStyle)

	assert.ErrorIs(t, store.Save(ctx, profile.LearningProfile{}), shared.ErrEmptyUserID)
}
