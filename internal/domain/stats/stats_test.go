package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/learnpulse/internal/domain/shared"
)

func TestSnapshot_RatiosGuardZeroDenominators(t *testing.T) {
	var s Snapshot

	assert.Equal(t, 0.0, s.CompletionRate())
	assert.Equal(t, 0.0, s.FocusTriggerFrequency())
	assert.Equal(t, 0.0, s.RescueTriggerRatio())
	assert.Equal(t, 0.0, s.AverageSessionMinutes())
	assert.Equal(t, 0.0, s.GraduationRatio())
	assert.Equal(t, 1.0, s.ErrorRate())
}

func TestSnapshot_Ratios(t *testing.T) {
	s := Snapshot{
		Overall:       Overall{TotalSessions: 50, CompletedSessions: 25, OverallAccuracy: 70, TotalTimeSpent: 500},
		FocusMode:     FocusMode{Triggered: 25},
		RescueMode:    RescueMode{Triggered: 10},
		Pronunciation: Pronunciation{Assessments: 10},
		SRS:           SRS{ReviewsToday: 5, CardsTotal: 40, GraduatedCards: 10},
	}

	assert.Equal(t, 0.5, s.CompletionRate())
	assert.Equal(t, 0.5, s.FocusTriggerFrequency())
	assert.Equal(t, 0.2, s.RescueTriggerRatio())
	assert.InDelta(t, 0.3, s.ErrorRate(), 1e-9)
	assert.Equal(t, 10.0, s.AverageSessionMinutes())
	assert.Equal(t, 0.5, s.NormalizedSessionDuration())
	assert.InDelta(t, 50.0/30.0, s.SessionFrequency(), 1e-9)
	assert.Equal(t, 1.0, s.FeatureEngagementRatio())
	assert.Equal(t, 0.25, s.GraduationRatio())
	assert.Equal(t, 20, s.ExpectedReviews(20))
	assert.Equal(t, 30, s.ExpectedReviews(100))
}

func TestSnapshot_Normalize(t *testing.T) {
	s := Snapshot{
		Overall:       Overall{TotalSessions: -3, OverallAccuracy: -10},
		SRS:           SRS{CardsTotal: -1},
		Pronunciation: Pronunciation{Improvement: -4},
	}.Normalize()

	assert.Equal(t, 0, s.Overall.TotalSessions)
	assert.Equal(t, 0.0, s.Overall.OverallAccuracy)
	assert.Equal(t, 0, s.SRS.CardsTotal)
	assert.Equal(t, -4.0, s.Pronunciation.Improvement)
}

func TestParseTimeRange(t *testing.T) {
	r, err := ParseTimeRange("2024-03-01T00:00:00Z", "2024-03-08T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 7, r.Days())
	assert.Equal(t, time.Date(2024, 2, 23, 0, 0, 0, 0, time.UTC), r.Previous().Start)
	assert.Equal(t, r.Start, r.Previous().End)

	r, err = ParseTimeRange("2024-03-01", "2024-03-02")
	require.NoError(t, err)
	assert.Equal(t, 1, r.Days())
	assert.True(t, r.Contains(r.Start))
	assert.False(t, r.Contains(r.End))

	_, err = ParseTimeRange("2024-03-02T00:00:00Z", "2024-03-02T00:00:00Z")
	assert.ErrorIs(t, err, shared.ErrInvalidTimeRange)

	_, err = ParseTimeRange("yesterday", "2024-03-02")
	assert.True(t, shared.IsValidation(err))
}

func TestRollup(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	points := []DailyPoint{
		{Date: day, Sessions: 2, CompletedSessions: 2, Accuracy: 90, TimeSpent: 30, Assessments: 1, PronunciationScore: 80, Reviews: 10, ReviewAccuracy: 70},
		{Date: day.AddDate(0, 0, 1), Sessions: 2, CompletedSessions: 1, Accuracy: 70, TimeSpent: 10, FocusTriggers: 3, Reviews: 5, ReviewAccuracy: 100},
	}

	s := Rollup("u-1", points, day)
	assert.Equal(t, 4, s.Overall.TotalSessions)
	assert.Equal(t, 3, s.Overall.CompletedSessions)
	assert.Equal(t, 80.0, s.Overall.OverallAccuracy)
	assert.Equal(t, 40.0, s.Overall.TotalTimeSpent)
	assert.Equal(t, 3, s.FocusMode.Triggered)
	assert.Equal(t, 80.0, s.Pronunciation.AverageScore)
	assert.InDelta(t, 80.0, s.SRS.AccuracyRate, 1e-9)
	assert.Equal(t, 5, s.SRS.ReviewsToday)
}

func TestMetricValue(t *testing.T) {
	p := DailyPoint{Sessions: 4, CompletedSessions: 3, Reviews: 7}
	assert.Equal(t, 0.75, MetricCompletionRate.Value(p))
	assert.Equal(t, 7.0, MetricReviews.Value(p))
	assert.Equal(t, []float64{4}, MetricSessions.Values([]DailyPoint{p}))
	assert.Len(t, AllMetrics(), 8)
}
