package profile

import (
	"math"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/learnpulse/internal/domain/stats"
)

var now = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

func TestBuild_EmptySnapshot(t *testing.T) {
	p := Builder{}.Build("u-1", stats.Snapshot{}, now)

	assert.Equal(t, "u-1", p.UserID)
	assert.Equal(t, now, p.LastUpdated)
	assert.Equal(t, StyleMixed, p.LearningStyle)
	assert.Equal(t, DifficultyEasy, p.DifficultyPreference)
	assert.Equal(t, PaceModerate, p.PacePreference)

	assert.InDelta(t, 40.0, p.FocusStrength, 1e-9, "base 50 minus the effectiveness term")
	assert.Equal(t, 0.0, p.MemoryRetention)
	assert.Equal(t, 0.0, p.PronunciationSkill)
	assert.Equal(t, 50.0, p.ConsistencyScore)
	assert.Equal(t, 50.0, p.MotivationLevel)
	assert.Empty(t, p.WeakAreas)
	assert.Empty(t, p.StrongAreas)
	assert.NotNil(t, p.WeakAreas)
}

func TestBuild_StrongLearner(t *testing.T) {
	s := stats.Snapshot{
		Overall:       stats.Overall{TotalSessions: 60, CompletedSessions: 58, OverallAccuracy: 90, TotalTimeSpent: 60 * 20},
		FocusMode:     stats.FocusMode{Triggered: 2, SuccessRate: 90, Effectiveness: 80},
		Pronunciation: stats.Pronunciation{AverageScore: 85, Assessments: 30, Improvement: 4},
		RescueMode:    stats.RescueMode{Triggered: 1},
		SRS:           stats.SRS{AccuracyRate: 90, ReviewsToday: 25, CardsTotal: 100, GraduatedCards: 50},
	}
	p := Builder{}.Build("u-1", s, now)

	assert.InDelta(t, 76.0, p.FocusStrength, 1e-9)                 // 50 + 20 + 30*0.2
	assert.InDelta(t, 0.7*90+0.3*50, p.MemoryRetention, 1e-9)      // 78
	assert.Equal(t, 95.0, p.PronunciationSkill)                    // 85 + 5 + 5
	assert.Equal(t, 100.0, p.ConsistencyScore)                     // 50 + 20 + 30, clamped at 100
	assert.Equal(t, 95.0, p.MotivationLevel)                       // 50 + 15 + 15 + 15
	assert.Equal(t, DifficultyChallenging, p.DifficultyPreference) // acc > 85, rescues < 5
	assert.Equal(t, PaceModerate, p.PacePreference)
	assert.ElementsMatch(t, []string{AreaMemory, AreaPronunciation, AreaFocus, AreaConsistency, AreaAccuracy}, p.StrongAreas)
	assert.Empty(t, p.WeakAreas)
	assert.ElementsMatch(t, []string{AreaPronunciation, AreaVocabulary, AreaFocus}, p.PreferredTopics)
}

func TestBuild_WeakAreas(t *testing.T) {
	s := stats.Snapshot{
		Overall:       stats.Overall{TotalSessions: 10, CompletedSessions: 4, OverallAccuracy: 55},
		FocusMode:     stats.FocusMode{Triggered: 25, SuccessRate: 30},
		Pronunciation: stats.Pronunciation{AverageScore: 40, Assessments: 5},
		RescueMode:    stats.RescueMode{Triggered: 16},
		SRS:           stats.SRS{AccuracyRate: 50, CardsTotal: 40},
	}
	p := Builder{}.Build("u-1", s, now)

	assert.Equal(t, []string{
		AreaLearningPersistence, AreaFocus, AreaMemory, AreaPronunciation, AreaSessionCompletion,
	}, p.WeakAreas)
	assert.Equal(t, DifficultyEasy, p.DifficultyPreference)
	assert.Equal(t, StyleKinesthetic, p.LearningStyle)
	assert.InDelta(t, 15.0, p.FocusStrength, 1e-9) // 50 - 15 - 10 - 10
}

func TestLearningStyle(t *testing.T) {
	assert.Equal(t, StyleVisual, learningStyle(stats.Snapshot{SRS: stats.SRS{CardsTotal: 300}, Pronunciation: stats.Pronunciation{Assessments: 10}}))
	assert.Equal(t, StyleAuditory, learningStyle(stats.Snapshot{Pronunciation: stats.Pronunciation{Assessments: 40}, SRS: stats.SRS{CardsTotal: 100}}))
	assert.Equal(t, StyleMixed, learningStyle(stats.Snapshot{Pronunciation: stats.Pronunciation{Assessments: 12}, SRS: stats.SRS{CardsTotal: 100}}))
}

func TestPacePreference(t *testing.T) {
	slow := stats.Snapshot{Overall: stats.Overall{TotalSessions: 10, TotalTimeSpent: 400}}
	fast := stats.Snapshot{Overall: stats.Overall{TotalSessions: 40, TotalTimeSpent: 400}}
	assert.Equal(t, PaceSlow, pacePreference(slow))
	assert.Equal(t, PaceFast, pacePreference(fast))
}

func TestBuild_ScoresAlwaysClamped(t *testing.T) {
	f := gofakeit.New(7)
	for i := 0; i < 500; i++ {
		s := stats.Snapshot{
			Overall: stats.Overall{
				TotalSessions:     f.IntRange(-50, 500),
				CompletedSessions: f.IntRange(-50, 1000),
				OverallAccuracy:   f.Float64Range(-100, 300),
				TotalTimeSpent:    f.Float64Range(-100, 50000),
			},
			FocusMode:     stats.FocusMode{Triggered: f.IntRange(-10, 200), SuccessRate: f.Float64Range(-50, 250), Effectiveness: f.Float64Range(-500, 500)},
			Pronunciation: stats.Pronunciation{AverageScore: f.Float64Range(-50, 400), Assessments: f.IntRange(-5, 100), Improvement: f.Float64Range(-50, 50)},
			RescueMode:    stats.RescueMode{Triggered: f.IntRange(-5, 100)},
			SRS:           stats.SRS{AccuracyRate: f.Float64Range(-50, 300), ReviewsToday: f.IntRange(-5, 100), CardsTotal: f.IntRange(-5, 50), GraduatedCards: f.IntRange(-5, 500)},
		}
		p := Builder{}.Build("u", s, now)
		for _, v := range []float64{p.FocusStrength, p.MemoryRetention, p.PronunciationSkill, p.ConsistencyScore, p.MotivationLevel} {
			require.False(t, math.IsNaN(v))
			require.GreaterOrEqual(t, v, 0.0)
			require.LessOrEqual(t, v, 100.0)
		}
	}
}

func TestAverageSkill(t *testing.T) {
	s := Scores{FocusStrength: 30, MemoryRetention: 60, PronunciationSkill: 90, MotivationLevel: 0}
	assert.Equal(t, 60.0, s.AverageSkill())
}
