// Package profile derives a learner's style, preferences and skill scores
// from a statistics snapshot.
package profile

import (
	"context"
	"time"
)

// LearningStyle is the learner's dominant way of engaging with content.
type LearningStyle string

const (
	StyleVisual      LearningStyle = "visual"
	StyleAuditory    LearningStyle = "auditory"
	StyleKinesthetic LearningStyle = "kinesthetic"
	StyleMixed       LearningStyle = "mixed"
)

// Difficulty is the preferred content difficulty.
type Difficulty string

const (
	DifficultyEasy        Difficulty = "easy"
	DifficultyModerate    Difficulty = "moderate"
	DifficultyChallenging Difficulty = "challenging"
)

// Pace is the preferred study rhythm.
type Pace string

const (
	PaceSlow     Pace = "slow"
	PaceModerate Pace = "moderate"
	PaceFast     Pace = "fast"
)

// Area names used for weak, strong and preferred areas.
const (
	AreaLearningPersistence = "learning_persistence"
	AreaFocus               = "focus"
	AreaMemory              = "memory"
	AreaPronunciation       = "pronunciation"
	AreaSessionCompletion   = "session_completion"
	AreaConsistency         = "consistency"
	AreaAccuracy            = "accuracy"
	AreaVocabulary          = "vocabulary"
)

// Scores are the five derived skill and behavior scores, each in [0,100].
type Scores struct {
	FocusStrength      float64 `json:"focusStrength"`
	MemoryRetention    float64 `json:"memoryRetention"`
	PronunciationSkill float64 `json:"pronunciationSkill"`
	ConsistencyScore   float64 `json:"consistencyScore"`
	MotivationLevel    float64 `json:"motivationLevel"`
}

// AverageSkill is the mean of the three skill scores.
func (s Scores) AverageSkill() float64 {
	return (s.FocusStrength + s.MemoryRetention + s.PronunciationSkill) / 3
}

// LearningProfile is rebuilt wholesale on every analysis. Only the latest
// version per learner is kept.
type LearningProfile struct {
	UserID               string        `json:"userId"`
	LearningStyle        LearningStyle `json:"learningStyle"`
	DifficultyPreference Difficulty    `json:"difficultyPreference"`
	PacePreference       Pace          `json:"pacePreference"`
	Scores
	PreferredTopics []string  `json:"preferredTopics"`
	WeakAreas       []string  `json:"weakAreas"`
	StrongAreas     []string  `json:"strongAreas"`
	LastUpdated     time.Time `json:"lastUpdated"`
}

// HasWeakArea reports whether area is listed as weak.
func (p LearningProfile) HasWeakArea(area string) bool {
	for _, a := range p.WeakAreas {
		if a == area {
			return true
		}
	}
	return false
}

// Store keeps the latest profile per learner.
type Store interface {
	Save(ctx context.Context, p LearningProfile) error
	// Get returns shared.ErrProfileNotFound when the learner has none.
	Get(ctx context.Context, userID string) (LearningProfile, error)
}
