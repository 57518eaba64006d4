package profile

import (
	"math"
	"time"

	"github.com/alem-hub/learnpulse/internal/domain/stats"
)

// Thresholds used by the profile rules.
const (
	baseScore = 50.0

	focusLowTriggers     = 5
	focusHighTriggers    = 20
	focusGoodSuccessRate = 80.0
	focusPoorSuccessRate = 50.0

	memoryAccuracyWeight   = 0.7
	memoryGraduationWeight = 0.3

	pronunciationVolumeAssessments = 20
	pronunciationBonus             = 5.0

	idealSessionMinMinutes = 10.0
	idealSessionMaxMinutes = 30.0
	idealSessionBonus      = 20.0
	frequencyBonusMax      = 30.0

	challengingAccuracy   = 85.0
	challengingMaxRescues = 5
	easyAccuracy          = 60.0
	easyMinRescues        = 15

	weakRescueTriggers = 15
)

// Builder derives profiles. It holds no state.
type Builder struct{}

// Build derives the learner's profile from s at now.
func (Builder) Build(userID string, s stats.Snapshot, now time.Time) LearningProfile {
	s = s.Normalize()
	return LearningProfile{
		UserID:               userID,
		LearningStyle:        learningStyle(s),
		DifficultyPreference: difficultyPreference(s),
		PacePreference:       pacePreference(s),
		Scores: Scores{
			FocusStrength:      focusStrength(s),
			MemoryRetention:    memoryRetention(s),
			PronunciationSkill: pronunciationSkill(s),
			ConsistencyScore:   consistencyScore(s),
			MotivationLevel:    motivationLevel(s),
		},
		PreferredTopics: preferredTopics(s),
		WeakAreas:       weakAreas(s),
		StrongAreas:     strongAreas(s),
		LastUpdated:     now,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Scores
// ─────────────────────────────────────────────────────────────────────────────

func focusStrength(s stats.Snapshot) float64 {
	score := baseScore
	f := s.FocusMode
	if f.Triggered < focusLowTriggers && f.SuccessRate > focusGoodSuccessRate {
		score += 20
	}
	if f.Triggered > focusHighTriggers {
		score -= 15
	}
	if f.Triggered > 0 && f.SuccessRate < focusPoorSuccessRate {
		score -= 10
	}
	score += (f.Effectiveness - 50) * 0.2
	return clampScore(score)
}

func memoryRetention(s stats.Snapshot) float64 {
	return clampScore(memoryAccuracyWeight*s.SRS.AccuracyRate + memoryGraduationWeight*s.GraduationRatio()*100)
}

func pronunciationSkill(s stats.Snapshot) float64 {
	p := s.Pronunciation
	score := p.AverageScore
	if p.Assessments > pronunciationVolumeAssessments {
		score += pronunciationBonus
	}
	if p.Improvement > 0 {
		score += pronunciationBonus
	}
	return clampScore(score)
}

func consistencyScore(s stats.Snapshot) float64 {
	score := baseScore
	if avg := s.AverageSessionMinutes(); avg >= idealSessionMinMinutes && avg <= idealSessionMaxMinutes {
		score += idealSessionBonus
	}
	score += math.Min(1, s.SessionFrequency()) * frequencyBonusMax
	return clampScore(score)
}

func motivationLevel(s stats.Snapshot) float64 {
	score := baseScore

	switch n := s.Overall.TotalSessions; {
	case n > 100:
		score += 20
	case n > 50:
		score += 15
	case n > 20:
		score += 10
	case n > 5:
		score += 5
	}

	switch acc := s.Overall.OverallAccuracy; {
	case acc > 85:
		score += 15
	case acc > 70:
		score += 10
	case acc > 50:
		score += 5
	}

	switch r := s.SRS.ReviewsToday; {
	case r >= 20:
		score += 15
	case r >= 10:
		score += 10
	case r > 0:
		score += 5
	}

	return clampScore(score)
}

// clampScore bounds v to [0,100]; NaN maps to 0.
func clampScore(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Preferences
// ─────────────────────────────────────────────────────────────────────────────

// learningStyle picks the dominant feature family. A family dominates when
// its usage is at least 1.5 times every other family.
func learningStyle(s stats.Snapshot) LearningStyle {
	usage := []struct {
		style LearningStyle
		value float64
	}{
		{StyleVisual, float64(s.SRS.CardsTotal) / 10},
		{StyleAuditory, float64(s.Pronunciation.Assessments)},
		{StyleKinesthetic, float64(s.FocusMode.Triggered + s.RescueMode.Triggered)},
	}

	best := 0
	for i := range usage {
		if usage[i].value > usage[best].value {
			best = i
		}
	}
	if usage[best].value == 0 {
		return StyleMixed
	}
	for i := range usage {
		if i != best && usage[best].value < 1.5*usage[i].value {
			return StyleMixed
		}
	}
	return usage[best].style
}

func difficultyPreference(s stats.Snapshot) Difficulty {
	acc := s.Overall.OverallAccuracy
	rescues := s.RescueMode.Triggered
	switch {
	case acc > challengingAccuracy && rescues < challengingMaxRescues:
		return DifficultyChallenging
	case acc < easyAccuracy || rescues > easyMinRescues:
		return DifficultyEasy
	default:
		return DifficultyModerate
	}
}

func pacePreference(s stats.Snapshot) Pace {
	avg := s.AverageSessionMinutes()
	switch {
	case avg > idealSessionMaxMinutes:
		return PaceSlow
	case s.SessionFrequency() >= 1 && avg <= 15:
		return PaceFast
	default:
		return PaceModerate
	}
}

func preferredTopics(s stats.Snapshot) []string {
	topics := []string{}
	if s.Pronunciation.Assessments > 10 {
		topics = append(topics, AreaPronunciation)
	}
	if s.SRS.CardsTotal > 50 {
		topics = append(topics, AreaVocabulary)
	}
	if s.FocusMode.Triggered > 0 && s.FocusMode.SuccessRate > 70 {
		topics = append(topics, AreaFocus)
	}
	return topics
}

// ─────────────────────────────────────────────────────────────────────────────
// Areas
// ─────────────────────────────────────────────────────────────────────────────

func weakAreas(s stats.Snapshot) []string {
	areas := []string{}
	if s.RescueMode.Triggered > weakRescueTriggers {
		areas = append(areas, AreaLearningPersistence)
	}
	if s.FocusMode.Triggered > 0 && s.FocusMode.SuccessRate < focusPoorSuccessRate {
		areas = append(areas, AreaFocus)
	}
	if s.SRS.CardsTotal > 0 && s.SRS.AccuracyRate < 70 {
		areas = append(areas, AreaMemory)
	}
	if s.Pronunciation.Assessments > 0 && s.Pronunciation.AverageScore < 60 {
		areas = append(areas, AreaPronunciation)
	}
	if s.Overall.TotalSessions > 0 && s.CompletionRate() < 0.6 {
		areas = append(areas, AreaSessionCompletion)
	}
	return areas
}

func strongAreas(s stats.Snapshot) []string {
	areas := []string{}
	if s.SRS.CardsTotal > 0 && s.SRS.AccuracyRate >= 85 {
		areas = append(areas, AreaMemory)
	}
	if s.Pronunciation.Assessments > 0 && s.Pronunciation.AverageScore >= 80 {
		areas = append(areas, AreaPronunciation)
	}
	if s.FocusMode.Triggered > 0 && s.FocusMode.SuccessRate >= focusGoodSuccessRate {
		areas = append(areas, AreaFocus)
	}
	if s.Overall.TotalSessions >= 10 && s.CompletionRate() >= 0.9 {
		areas = append(areas, AreaConsistency)
	}
	if s.Overall.OverallAccuracy >= 85 {
		areas = append(areas, AreaAccuracy)
	}
	return areas
}
