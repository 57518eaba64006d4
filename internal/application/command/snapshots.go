// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"sync"
	"time"

	"github.com/alem-hub/learnpulse/internal/domain/shared"
	"github.com/alem-hub/learnpulse/internal/domain/stats"
	"github.com/alem-hub/learnpulse/pkg/circuitbreaker"
	"github.com/alem-hub/learnpulse/pkg/logger"
	"github.com/alem-hub/learnpulse/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT SOURCE
// Fetches learner snapshots from the statistics provider with retries and
// falls back to the last snapshot seen for the learner when the provider
// stays unavailable. An optional circuit breaker skips the provider
// entirely while it keeps failing.
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotSource wraps a stats.Provider with retry and last-known fallback.
type SnapshotSource struct {
	provider stats.Provider
	retrier  *retry.Retrier
	breaker  *circuitbreaker.Breaker
	timeout  time.Duration
	log      *logger.Logger

	mu        sync.RWMutex
	lastKnown map[string]stats.Snapshot
}

// NewSnapshotSource creates a SnapshotSource. A nil retrier makes a single
// attempt; a zero timeout leaves the caller's deadline in charge.
func NewSnapshotSource(provider stats.Provider, retrier *retry.Retrier, timeout time.Duration, log *logger.Logger) *SnapshotSource {
	if retrier == nil {
		retrier = retry.New(retry.WithMaxAttempts(1))
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &SnapshotSource{
		provider:  provider,
		retrier:   retrier,
		timeout:   timeout,
		log:       log.With(logger.Component("snapshot_source")),
		lastKnown: make(map[string]stats.Snapshot),
	}
}

// WithBreaker guards every provider call with b. Call before use.
func (s *SnapshotSource) WithBreaker(b *circuitbreaker.Breaker) *SnapshotSource {
	s.breaker = b
	return s
}

// Provider returns the wrapped provider.
func (s *SnapshotSource) Provider() stats.Provider {
	return s.provider
}

// Get returns the learner's current snapshot. When the provider fails the
// last known snapshot is returned with degraded set. Without one the result
// is ErrStatsUnavailable: an unseen learner has no data to analyze.
func (s *SnapshotSource) Get(ctx context.Context, userID string) (snap stats.Snapshot, degraded bool, err error) {
	snap, err = guarded(ctx, s, func(ctx context.Context) (stats.Snapshot, error) {
		return s.provider.Snapshot(ctx, userID)
	})
	if err == nil {
		s.mu.Lock()
		s.lastKnown[userID] = snap
		s.mu.Unlock()
		return snap, false, nil
	}

	s.mu.RLock()
	last, ok := s.lastKnown[userID]
	s.mu.RUnlock()

	s.log.Warn("statistics unavailable, using fallback snapshot",
		logger.UserID(userID),
		logger.Bool("last_known", ok),
		logger.Err(err),
	)
	if !ok {
		return stats.Snapshot{}, true, shared.WrapError("stats", "Fetch", shared.ErrServiceUnavailable,
			shared.ErrStatsUnavailable.Message, err)
	}
	return last, true, nil
}

// Fetch is Get for callers that render whatever is available: a miss yields
// an empty snapshot.
func (s *SnapshotSource) Fetch(ctx context.Context, userID string) (stats.Snapshot, bool) {
	snap, degraded, err := s.Get(ctx, userID)
	if err != nil {
		return stats.Snapshot{UserID: userID}, true
	}
	return snap, degraded
}

// Series returns per-day points inside r. Failures are logged and yield an
// empty series.
func (s *SnapshotSource) Series(ctx context.Context, userID string, r stats.TimeRange) ([]stats.DailyPoint, bool) {
	points, err := guarded(ctx, s, func(ctx context.Context) ([]stats.DailyPoint, error) {
		return s.provider.DailySeries(ctx, userID, r)
	})
	if err != nil {
		s.log.Warn("daily series unavailable",
			logger.UserID(userID),
			logger.Time("start", r.Start),
			logger.Err(err),
		)
		return nil, false
	}
	return points, true
}

// guarded runs call under the per-attempt timeout and the retrier, inside
// the breaker when one is set.
func guarded[T any](ctx context.Context, s *SnapshotSource, call func(context.Context) (T, error)) (T, error) {
	attempts := func(ctx context.Context) (T, error) {
		return retry.DoValue(ctx, s.retrier, func(ctx context.Context) (T, error) {
			if s.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, s.timeout)
				defer cancel()
			}
			return call(ctx)
		})
	}
	if s.breaker == nil {
		return attempts(ctx)
	}
	return circuitbreaker.Do(ctx, s.breaker, attempts)
}
