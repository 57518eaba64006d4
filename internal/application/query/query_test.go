package query

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/learnpulse/internal/domain/alert"
	"github.com/alem-hub/learnpulse/internal/domain/analytics"
	"github.com/alem-hub/learnpulse/internal/domain/intervention"
	"github.com/alem-hub/learnpulse/internal/domain/path"
	"github.com/alem-hub/learnpulse/internal/domain/profile"
	"github.com/alem-hub/learnpulse/internal/domain/risk"
	"github.com/alem-hub/learnpulse/internal/domain/shared"
	"github.com/alem-hub/learnpulse/internal/domain/stats"
	"github.com/alem-hub/learnpulse/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/learnpulse/pkg/timeutil"
	"github.com/alem-hub/learnpulse/pkg/ttlcache"
)

var now = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

// ══════════════════════════════════════════════════════════════════════════════
// FAKES
// ══════════════════════════════════════════════════════════════════════════════

type fakeData struct {
	snap       stats.Snapshot
	series     []stats.DailyPoint
	seriesDown bool
}

func (f *fakeData) Fetch(_ context.Context, userID string) (stats.Snapshot, bool) {
	s := f.snap
	s.UserID = userID
	return s, false
}

func (f *fakeData) Series(_ context.Context, _ string, r stats.TimeRange) ([]stats.DailyPoint, bool) {
	if f.seriesDown {
		return nil, false
	}
	var out []stats.DailyPoint
	for _, p := range f.series {
		if r.Contains(p.Date) {
			out = append(out, p)
		}
	}
	return out, true
}

// correlatedWeek has sessions and time spent moving in lockstep.
func correlatedWeek() []stats.DailyPoint {
	var out []stats.DailyPoint
	for i := 0; i < 6; i++ {
		out = append(out, stats.DailyPoint{
			Date:              now.Add(-time.Duration(i)*24*time.Hour - time.Hour),
			Sessions:          i + 1,
			CompletedSessions: i + 1,
			Accuracy:          float64(60 + 5*i),
			TimeSpent:         float64(15 * (i + 1)),
			Reviews:           2 * (i + 1),
		})
	}
	return out
}

type fakeProfiles struct {
	calls atomic.Int32
	err   error
	stale bool
}

func (f *fakeProfiles) Rebuild(_ context.Context, userID string) (profile.LearningProfile, bool, error) {
	f.calls.Add(1)
	if f.err != nil {
		return profile.LearningProfile{}, false, f.err
	}
	return profile.LearningProfile{
		UserID:        userID,
		LearningStyle: profile.StyleVisual,
		Scores:        profile.Scores{FocusStrength: 50, MemoryRetention: 60, PronunciationSkill: 55, MotivationLevel: 20},
		WeakAreas:     []string{profile.AreaFocus},
		LastUpdated:   now,
	}, !f.stale, nil
}

type cacheCounter struct{ hits, misses int }

func (c *cacheCounter) PathCache(hit bool) {
	if hit {
		c.hits++
		return
	}
	c.misses++
}

type recorder struct{ events []shared.Event }

func (r *recorder) Publish(e shared.Event) error {
	r.events = append(r.events, e)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ALERTS
// ══════════════════════════════════════════════════════════════════════════════

func TestGetVisibleAlerts(t *testing.T) {
	clock := timeutil.NewFakeClock(now)
	m := alert.NewManager(clock, shared.SequentialIDs("a"), 0)
	h := NewGetVisibleAlertsHandler(m)

	res, err := h.Handle(context.Background(), "u-1")
	require.NoError(t, err)
	assert.NotNil(t, res.Alerts)
	assert.Zero(t, res.Count)

	m.Create("u-1", []alert.Pair{
		{Risk: risk.LearningRisk{ID: "r1", Type: risk.MemoryDecay, Severity: risk.SeverityMedium, Probability: 0.7, TimeToImpactHours: 48}},
		{Risk: risk.LearningRisk{ID: "r2", Type: risk.MotivationDrop, Severity: risk.SeverityCritical, Probability: 1, TimeToImpactHours: 72}},
	})
	res, err = h.Handle(context.Background(), "u-1")
	require.NoError(t, err)
	require.Equal(t, 2, res.Count)
	assert.Equal(t, risk.MotivationDrop, res.Alerts[0].Risk.Type)

	_, err = h.Handle(context.Background(), "")
	assert.ErrorIs(t, err, shared.ErrEmptyUserID)
}

// ══════════════════════════════════════════════════════════════════════════════
// INTERVENTIONS
// ══════════════════════════════════════════════════════════════════════════════

func TestGetInterventions_StatusFilter(t *testing.T) {
	ctx := context.Background()
	clock := timeutil.NewFakeClock(now)
	exec := intervention.NewExecutor(memory.NewInterventionRepository(), nil, clock, shared.SequentialIDs("x"))
	h := NewGetActiveInterventionsHandler(exec)

	userID := gofakeit.UUID()
	active, err := exec.Execute(ctx, "s-1", userID)
	require.NoError(t, err)
	clock.Advance(time.Minute)
	done, err := exec.Execute(ctx, "s-2", userID)
	require.NoError(t, err)
	_, err = exec.Complete(ctx, done.ID, "ok")
	require.NoError(t, err)

	res, err := h.Handle(ctx, GetInterventionsQuery{UserID: userID})
	require.NoError(t, err)
	assert.Equal(t, "active", res.Status)
	require.Equal(t, 1, res.Count)
	assert.Equal(t, active.ID, res.Executions[0].ID)

	res, err = h.Handle(ctx, GetInterventionsQuery{UserID: userID, Status: "all"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, done.ID, res.Executions[0].ID, "newest first")

	res, err = h.Handle(ctx, GetInterventionsQuery{UserID: userID, Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)

	_, err = h.Handle(ctx, GetInterventionsQuery{UserID: userID, Status: "paused"})
	assert.True(t, shared.IsValidation(err))

	res, err = h.Handle(ctx, GetInterventionsQuery{UserID: "nobody"})
	require.NoError(t, err)
	assert.NotNil(t, res.Executions)
	assert.Zero(t, res.Count)
}

// ══════════════════════════════════════════════════════════════════════════════
// REPORT
// ══════════════════════════════════════════════════════════════════════════════

func newReportHandler(data LearnerData, gate FeatureGate) *GenerateReportHandler {
	return NewGenerateReportHandler(data, analytics.NewGenerator(0, shared.SequentialIDs("rep")), gate,
		timeutil.NewFakeClock(now), nil, ReportConfig{WindowDays: 7, MinCorrelation: 0.5})
}

func TestGenerateReport_DefaultWindow(t *testing.T) {
	h := newReportHandler(&fakeData{series: correlatedWeek()}, nil)

	res, err := h.Handle(context.Background(), GenerateReportQuery{UserID: "u-1"})
	require.NoError(t, err)
	assert.False(t, res.Degraded)
	assert.Equal(t, stats.LastDays(now, 7), res.Range)
	assert.Equal(t, now, res.GeneratedAt)
	assert.NotEmpty(t, res.Trends)
	assert.NotEmpty(t, res.Correlations)

	var fromCorrelation bool
	for _, in := range res.Insights {
		fromCorrelation = fromCorrelation || in.Source == "correlation"
	}
	assert.True(t, fromCorrelation)
}

func TestGenerateReport_CorrelationsGatedOff(t *testing.T) {
	h := newReportHandler(&fakeData{series: correlatedWeek()}, func(string) bool { return false })

	res, err := h.Handle(context.Background(), GenerateReportQuery{UserID: "u-1"})
	require.NoError(t, err)
	assert.NotNil(t, res.Correlations)
	assert.Empty(t, res.Correlations)
	for _, in := range res.Insights {
		assert.NotEqual(t, "correlation", in.Source)
	}
}

func TestGenerateReport_Validation(t *testing.T) {
	h := newReportHandler(&fakeData{}, nil)
	ctx := context.Background()

	_, err := h.Handle(ctx, GenerateReportQuery{})
	assert.ErrorIs(t, err, shared.ErrEmptyUserID)

	_, err = h.Handle(ctx, GenerateReportQuery{UserID: "u", Range: stats.TimeRange{Start: now, End: now}})
	assert.ErrorIs(t, err, shared.ErrInvalidTimeRange)

	bad := 1.5
	_, err = h.Handle(ctx, GenerateReportQuery{UserID: "u", MinCorrelation: &bad})
	assert.True(t, shared.IsValidation(err))
}

func TestGenerateReport_DegradedSeries(t *testing.T) {
	h := newReportHandler(&fakeData{seriesDown: true}, nil)

	res, err := h.Handle(context.Background(), GenerateReportQuery{UserID: "u-1"})
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.NotNil(t, res.Trends)
	assert.NotNil(t, res.Patterns)
	assert.Empty(t, res.Correlations)
}

// ══════════════════════════════════════════════════════════════════════════════
// PATH
// ══════════════════════════════════════════════════════════════════════════════

func newPathHandler(profiles ProfileSource, gate FeatureGate) (*GetOptimizedPathHandler, *timeutil.FakeClock, *cacheCounter, *recorder) {
	clock := timeutil.NewFakeClock(now)
	cache := ttlcache.New[path.OptimizedLearningPath](ttlcache.NewMemoryBackend[path.OptimizedLearningPath](), path.DefaultTTL, clock)
	counter := &cacheCounter{}
	events := &recorder{}
	h := NewGetOptimizedPathHandler(cache, profiles, path.NewOptimizer(path.DefaultTTL, shared.SequentialIDs("p")),
		gate, events, counter, clock, nil)
	return h, clock, counter, events
}

func TestGetOptimizedPath_CachedUntilValidUntil(t *testing.T) {
	profiles := &fakeProfiles{}
	h, clock, counter, events := newPathHandler(profiles, nil)
	ctx := context.Background()

	first, err := h.Handle(ctx, "u-1")
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, now.Add(24*time.Hour), first.Path.ValidUntil)

	clock.Advance(23 * time.Hour)
	second, err := h.Handle(ctx, "u-1")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Path.ID, second.Path.ID)
	assert.EqualValues(t, 1, profiles.calls.Load(), "cache hit skips profile rebuild")

	clock.Advance(time.Hour)
	third, err := h.Handle(ctx, "u-1")
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.NotEqual(t, first.Path.ID, third.Path.ID)

	assert.Equal(t, 1, counter.hits)
	assert.Equal(t, 2, counter.misses)
	assert.Len(t, events.events, 2)
}

func TestGetOptimizedPath_AdjustmentsGate(t *testing.T) {
	h, _, _, _ := newPathHandler(&fakeProfiles{}, func(userID string) bool { return userID != "plain" })

	res, err := h.Handle(context.Background(), "plain")
	require.NoError(t, err)
	assert.NotNil(t, res.Path.AdaptiveAdjustments)
	assert.Empty(t, res.Path.AdaptiveAdjustments)
}

func TestGetOptimizedPath_ProfileError(t *testing.T) {
	boom := errors.New("profile store down")
	h, _, counter, _ := newPathHandler(&fakeProfiles{err: boom}, nil)

	_, err := h.Handle(context.Background(), "u-1")
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, counter.hits+counter.misses)

	_, err = h.Handle(context.Background(), "")
	assert.ErrorIs(t, err, shared.ErrEmptyUserID)
}

func TestGetOptimizedPath_StaleProfileNotCached(t *testing.T) {
	profiles := &fakeProfiles{stale: true}
	h, _, counter, _ := newPathHandler(profiles, nil)
	ctx := context.Background()

	first, err := h.Handle(ctx, "u-1")
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.NotEmpty(t, first.Path.ID)

	profiles.stale = false
	second, err := h.Handle(ctx, "u-1")
	require.NoError(t, err)
	assert.False(t, second.Cached, "path from fallback data is recomputed")
	assert.NotEqual(t, first.Path.ID, second.Path.ID)

	third, err := h.Handle(ctx, "u-1")
	require.NoError(t, err)
	assert.True(t, third.Cached)
	assert.EqualValues(t, 2, profiles.calls.Load())
	assert.Equal(t, 2, counter.misses)
}

func TestGetOptimizedPath_Invalidate(t *testing.T) {
	profiles := &fakeProfiles{}
	h, _, _, _ := newPathHandler(profiles, nil)
	ctx := context.Background()

	_, err := h.Handle(ctx, "u-1")
	require.NoError(t, err)
	require.NoError(t, h.Invalidate(ctx, "u-1"))

	res, err := h.Handle(ctx, "u-1")
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.EqualValues(t, 2, profiles.calls.Load())
}
