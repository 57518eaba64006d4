package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/learnpulse/internal/domain/intervention"
	"github.com/alem-hub/learnpulse/internal/domain/profile"
	"github.com/alem-hub/learnpulse/internal/domain/shared"
	"github.com/alem-hub/learnpulse/internal/domain/stats"
)

var day0 = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

func TestStatsProvider_Snapshot(t *testing.T) {
	ctx := context.Background()
	p := NewStatsProvider()
	userID := gofakeit.UUID()

	s, err := p.Snapshot(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, userID, s.UserID)
	assert.Zero(t, s.Overall.TotalSessions)

	snap := stats.Snapshot{UserID: userID, CapturedAt: day0}
	snap.Overall.TotalSessions = -3
	snap.Overall.OverallAccuracy = 81
	p.Put(snap)

	s, err = p.Snapshot(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, s.Overall.TotalSessions, "negative counters are clamped")
	assert.Equal(t, 81.0, s.Overall.OverallAccuracy)
}

func TestStatsProvider_DailySeries(t *testing.T) {
	ctx := context.Background()
	p := NewStatsProvider()
	p.AddDaily("u1",
		stats.DailyPoint{Date: day0.AddDate(0, 0, 2), Sessions: 3},
		stats.DailyPoint{Date: day0, Sessions: 1},
		stats.DailyPoint{Date: day0.AddDate(0, 0, 7), Sessions: 9},
	)

	r, err := stats.NewTimeRange(day0, day0.AddDate(0, 0, 7))
	require.NoError(t, err)

	points, err := p.DailySeries(ctx, "u1", r)
	require.NoError(t, err)
	require.Len(t, points, 2, "end is exclusive")
	assert.Equal(t, 1, points[0].Sessions)
	assert.Equal(t, 3, points[1].Sessions)

	points, err = p.DailySeries(ctx, "nobody", r)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestStatsProvider_ActiveUsersAndFailure(t *testing.T) {
	ctx := context.Background()
	p := NewStatsProvider()
	p.Put(stats.Snapshot{UserID: "b", CapturedAt: day0.Add(2 * time.Hour)})
	p.Put(stats.Snapshot{UserID: "a", CapturedAt: day0.Add(time.Hour)})
	p.Put(stats.Snapshot{UserID: "old", CapturedAt: day0.Add(-time.Hour)})

	users, err := p.ActiveUsers(ctx, day0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, users)

	boom := errors.New("aggregator down")
	p.FailWith(boom)
	_, err = p.Snapshot(ctx, "a")
	assert.ErrorIs(t, err, boom)
	_, err = p.ActiveUsers(ctx, day0)
	assert.ErrorIs(t, err, boom)

	p.FailWith(nil)
	_, err = p.Snapshot(ctx, "a")
	assert.NoError(t, err)
}

func TestInterventionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewInterventionRepository()

	_, err := repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, shared.ErrExecutionNotFound)

	older := &intervention.Execution{ID: "e1", UserID: "u1", Status: intervention.StatusActive, StartedAt: day0}
	newer := &intervention.Execution{ID: "e2", UserID: "u1", Status: intervention.StatusCompleted, StartedAt: day0.Add(time.Hour)}
	other := &intervention.Execution{ID: "e3", UserID: "u2", Status: intervention.StatusActive, StartedAt: day0}
	for _, e := range []*intervention.Execution{older, newer, other} {
		require.NoError(t, repo.Save(ctx, e))
	}

	all, err := repo.FindByUser(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "e2", all[0].ID, "newest first")

	active, err := repo.FindByUser(ctx, "u1", intervention.StatusActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "e1", active[0].ID)

	got, err := repo.FindByID(ctx, "e1")
	require.NoError(t, err)
	got.Status = intervention.StatusFailed
	again, err := repo.FindByID(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, intervention.StatusActive, again.Status, "stored copy is isolated")
}

func TestProfileStore(t *testing.T) {
	ctx := context.Background()
	store := NewProfileStore()
	userID := gofakeit.UUID()

	_, err := store.Get(ctx, userID)
	assert.ErrorIs(t, err, shared.ErrProfileNotFound)
	assert.ErrorIs(t, store.Save(ctx, profile.LearningProfile{}), shared.ErrEmptyUserID)

	require.NoError(t, store.Save(ctx, profile.LearningProfile{UserID: userID, LearningStyle: profile.StyleVisual}))
	require.NoError(t, store.Save(ctx, profile.LearningProfile{UserID: userID, LearningStyle: profile.StyleMixed}))

	got, err := store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, profile.StyleMixed, got.LearningStyle, "latest profile wins")
}
