package path

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/learnpulse/internal/domain/profile"
	"github.com/alem-hub/learnpulse/internal/domain/shared"
)

var now = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

func TestPhaseFor_Boundaries(t *testing.T) {
	tests := []struct {
		avg  float64
		want Phase
	}{
		{0, PhaseFoundation},
		{39.9, PhaseFoundation},
		{40.0, PhaseDevelopment},
		{69.9, PhaseDevelopment},
		{70.0, PhaseMastery},
		{89.9, PhaseMastery},
		{90.0, PhaseMaintenance},
		{100, PhaseMaintenance},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PhaseFor(tt.avg), "avg %.1f", tt.avg)
	}
}

func learner(focus, memory, pron, consistency, motivation float64) profile.LearningProfile {
	return profile.LearningProfile{
		UserID:        "u-1",
		LearningStyle: profile.StyleAuditory,
		Scores: profile.Scores{
			FocusStrength:      focus,
			MemoryRetention:    memory,
			PronunciationSkill: pron,
			ConsistencyScore:   consistency,
			MotivationLevel:    motivation,
		},
		WeakAreas: []string{},
	}
}

func TestOptimize_Basics(t *testing.T) {
	o := NewOptimizer(0, shared.SequentialIDs("p"))
	p := learner(70, 70, 70, 60, 60)

	got := o.Optimize(p, now)
	assert.Equal(t, "p-1", got.ID)
	assert.Equal(t, "u-1", got.UserID)
	assert.Equal(t, PhaseMastery, got.CurrentPhase)
	assert.Equal(t, now, got.GeneratedAt)
	assert.Equal(t, now.Add(24*time.Hour), got.ValidUntil)
	assert.Equal(t, got.ValidUntil, got.Expiry())
	assert.True(t, got.ValidAt(now.Add(24*time.Hour-time.Nanosecond)))
	assert.False(t, got.ValidAt(now.Add(24*time.Hour)))
	assert.Equal(t, MilestonesFor(PhaseMastery), got.NextMilestones)
}

func TestOptimize_RecommendationOrder(t *testing.T) {
	o := NewOptimizer(time.Hour, nil)
	p := learner(30, 30, 30, 60, 60)
	p.WeakAreas = []string{profile.AreaMemory, "grammar"}

	recs := o.Optimize(p, now).Recommendations
	require.Len(t, recs, 5)

	assert.Equal(t, KindWeakArea, recs[0].Kind)
	assert.Equal(t, profile.AreaMemory, recs[0].Area)
	assert.Equal(t, 9, recs[0].Priority)
	assert.Equal(t, "grammar", recs[1].Area)
	assert.Equal(t, KindPhaseStrategy, recs[2].Kind)
	assert.Equal(t, "Build a daily habit", recs[2].Title)
	assert.Equal(t, 7, recs[2].Priority)
	assert.Equal(t, 6, recs[3].Priority)
	assert.Equal(t, KindLearningStyle, recs[4].Kind)
	assert.Equal(t, "Learn by listening", recs[4].Title)

	for i := 1; i < len(recs); i++ {
		assert.GreaterOrEqual(t, recs[i-1].Priority, recs[i].Priority)
	}
}

func TestOptimize_Insights(t *testing.T) {
	o := NewOptimizer(time.Hour, nil)

	good := o.Optimize(learner(85, 80, 85, 70, 70), now).Insights
	require.Len(t, good, 2)
	for _, in := range good {
		assert.Equal(t, ImpactPositive, in.Impact)
	}

	bad := o.Optimize(learner(50, 40, 50, 45, 30), now).Insights
	require.Len(t, bad, 3)
	assert.Equal(t, "Irregular schedule", bad[0].Title)
	for _, in := range bad {
		assert.Equal(t, ImpactNegative, in.Impact)
	}
}

func TestOptimize_Adjustments(t *testing.T) {
	o := NewOptimizer(time.Hour, nil)

	adj := o.Optimize(learner(35, 45, 50, 40, 30), now).AdaptiveAdjustments
	var params []string
	for _, a := range adj {
		params = append(params, a.Parameter)
	}
	assert.Equal(t, []string{"daily_goal_minutes", "reminders", "session_length_minutes", "review_frequency"}, params)

	high := o.Optimize(learner(90, 90, 90, 80, 80), now).AdaptiveAdjustments
	require.Len(t, high, 1)
	assert.Equal(t, "difficulty", high[0].Parameter)

	off := o.WithoutAdjustments().Optimize(learner(35, 45, 50, 40, 30), now)
	assert.Empty(t, off.AdaptiveAdjustments)
	assert.NotNil(t, off.AdaptiveAdjustments)
}
