// Package memory holds in-process implementations of the persistence
// contracts, used for local development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/alem-hub/learnpulse/internal/domain/stats"
)

// StatsProvider is a seedable stats.Provider.
type StatsProvider struct {
	mu        sync.RWMutex
	snapshots map[string]stats.Snapshot
	series    map[string][]stats.DailyPoint
	failWith  error
}

// NewStatsProvider creates an empty provider.
func NewStatsProvider() *StatsProvider {
	return &StatsProvider{
		snapshots: make(map[string]stats.Snapshot),
		series:    make(map[string][]stats.DailyPoint),
	}
}

var _ stats.Provider = (*StatsProvider)(nil)

// Put stores a learner's current snapshot.
func (p *StatsProvider) Put(s stats.Snapshot) {
	p.mu.Lock()
	p.snapshots[s.UserID] = s
	p.mu.Unlock()
}

// AddDaily appends per-day points, keeping the series ordered by date.
func (p *StatsProvider) AddDaily(userID string, points ...stats.DailyPoint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	series := append(p.series[userID], points...)
	sort.SliceStable(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	p.series[userID] = series
}

// FailWith makes every call return err until cleared with nil.
func (p *StatsProvider) FailWith(err error) {
	p.mu.Lock()
	p.failWith = err
	p.mu.Unlock()
}

// Snapshot implements stats.Provider. Unknown learners get an empty snapshot.
func (p *StatsProvider) Snapshot(_ context.Context, userID string) (stats.Snapshot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.failWith != nil {
		return stats.Snapshot{}, p.failWith
	}
	s, ok := p.snapshots[userID]
	if !ok {
		return stats.Snapshot{UserID: userID}, nil
	}
	return s.Normalize(), nil
}

// DailySeries implements stats.Provider.
func (p *StatsProvider) DailySeries(_ context.Context, userID string, r stats.TimeRange) ([]stats.DailyPoint, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.failWith != nil {
		return nil, p.failWith
	}
	out := []stats.DailyPoint{}
	for _, d := range p.series[userID] {
		if r.Contains(d.Date) {
			out = append(out, d)
		}
	}
	return out, nil
}

// ActiveUsers implements stats.Provider using snapshot capture times.
func (p *StatsProvider) ActiveUsers(_ context.Context, since time.Time) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.failWith != nil {
		return nil, p.failWith
	}
	users := []string{}
	for id, s := range p.snapshots {
		if !s.CapturedAt.Before(since) {
			users = append(users, id)
		}
	}
	sort.Strings(users)
	return users, nil
}
