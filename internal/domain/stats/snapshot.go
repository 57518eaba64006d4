// Package stats defines the learner activity counters consumed by the engine.
//
// The counters are produced by an external statistics aggregator. A Snapshot
// is a value: every computation receives a copy and nothing in the engine
// mutates it. Zero or missing counters are legitimate defaults, never errors;
// every ratio guards its denominator with max(1, x).
package stats

import (
	"math"
	"time"
)

// MotivationWindowDays is the window used to turn session totals into a
// per-day frequency.
const MotivationWindowDays = 30

// IdealSessionMinutes normalizes average session duration.
const IdealSessionMinutes = 20.0

// Overall holds global session counters. Accuracy is a percentage (0-100),
// TotalTimeSpent is in minutes.
type Overall struct {
	TotalSessions     int     `json:"totalSessions"`
	CompletedSessions int     `json:"completedSessions"`
	OverallAccuracy   float64 `json:"overallAccuracy"`
	TotalTimeSpent    float64 `json:"totalTimeSpent"`
}

// FocusMode holds focus-assistance counters. Rates are percentages.
type FocusMode struct {
	Triggered     int     `json:"triggered"`
	SuccessRate   float64 `json:"successRate"`
	Effectiveness float64 `json:"effectiveness"`
}

// Pronunciation holds pronunciation assessment counters. Improvement is the
// score delta against the previous period and may be negative.
type Pronunciation struct {
	AverageScore float64 `json:"averageScore"`
	Assessments  int     `json:"assessments"`
	Improvement  float64 `json:"improvement"`
}

// RescueMode holds rescue-assistance counters.
type RescueMode struct {
	Triggered     int     `json:"triggered"`
	Effectiveness float64 `json:"effectiveness"`
}

// SRS holds spaced-repetition counters.
type SRS struct {
	AccuracyRate   float64 `json:"accuracyRate"`
	ReviewsToday   int     `json:"reviewsToday"`
	CardsTotal     int     `json:"cardsTotal"`
	GraduatedCards int     `json:"graduatedCards"`
}

// Snapshot is the rolled-up counter bundle for one learner.
type Snapshot struct {
	UserID        string        `json:"userId"`
	Overall       Overall       `json:"overall"`
	FocusMode     FocusMode     `json:"focusMode"`
	Pronunciation Pronunciation `json:"pronunciation"`
	RescueMode    RescueMode    `json:"rescueMode"`
	SRS           SRS           `json:"srs"`
	CapturedAt    time.Time     `json:"capturedAt"`
}

// Normalize returns a copy with negative counters and rates clamped to zero.
func (s Snapshot) Normalize() Snapshot {
	s.Overall.TotalSessions = maxInt(0, s.Overall.TotalSessions)
	s.Overall.CompletedSessions = maxInt(0, s.Overall.CompletedSessions)
	s.Overall.OverallAccuracy = nonNeg(s.Overall.OverallAccuracy)
	s.Overall.TotalTimeSpent = nonNeg(s.Overall.TotalTimeSpent)

	s.FocusMode.Triggered = maxInt(0, s.FocusMode.Triggered)
	s.FocusMode.SuccessRate = nonNeg(s.FocusMode.SuccessRate)
	s.FocusMode.Effectiveness = nonNeg(s.FocusMode.Effectiveness)

	s.Pronunciation.AverageScore = nonNeg(s.Pronunciation.AverageScore)
	s.Pronunciation.Assessments = maxInt(0, s.Pronunciation.Assessments)
	if math.IsNaN(s.Pronunciation.Improvement) || math.IsInf(s.Pronunciation.Improvement, 0) {
		s.Pronunciation.Improvement = 0
	}

	s.RescueMode.Triggered = maxInt(0, s.RescueMode.Triggered)
	s.RescueMode.Effectiveness = nonNeg(s.RescueMode.Effectiveness)

	s.SRS.AccuracyRate = nonNeg(s.SRS.AccuracyRate)
	s.SRS.ReviewsToday = maxInt(0, s.SRS.ReviewsToday)
	s.SRS.CardsTotal = maxInt(0, s.SRS.CardsTotal)
	s.SRS.GraduatedCards = maxInt(0, s.SRS.GraduatedCards)
	return s
}

// ─────────────────────────────────────────────────────────────────────────────
// Derived ratios
// ─────────────────────────────────────────────────────────────────────────────

func (s Snapshot) sessions() float64 {
	return float64(maxInt(1, s.Overall.TotalSessions))
}

// CompletionRate is completed / max(1, total) sessions.
func (s Snapshot) CompletionRate() float64 {
	return float64(s.Overall.CompletedSessions) / s.sessions()
}

// FocusTriggerFrequency is focus triggers per session.
func (s Snapshot) FocusTriggerFrequency() float64 {
	return float64(s.FocusMode.Triggered) / s.sessions()
}

// RescueTriggerRatio is rescue triggers per session.
func (s Snapshot) RescueTriggerRatio() float64 {
	return float64(s.RescueMode.Triggered) / s.sessions()
}

// ErrorRate is 1 - accuracy as a fraction.
func (s Snapshot) ErrorRate() float64 {
	return 1 - s.Overall.OverallAccuracy/100
}

// AverageSessionMinutes is time spent per session.
func (s Snapshot) AverageSessionMinutes() float64 {
	return s.Overall.TotalTimeSpent / s.sessions()
}

// SessionFrequency is sessions per day over the motivation window.
func (s Snapshot) SessionFrequency() float64 {
	return float64(s.Overall.TotalSessions) / MotivationWindowDays
}

// NormalizedSessionDuration is average session length relative to the ideal.
func (s Snapshot) NormalizedSessionDuration() float64 {
	return s.AverageSessionMinutes() / IdealSessionMinutes
}

// FeatureEngagementRatio is assistance and practice feature uses per session.
func (s Snapshot) FeatureEngagementRatio() float64 {
	uses := s.FocusMode.Triggered + s.RescueMode.Triggered + s.Pronunciation.Assessments + s.SRS.ReviewsToday
	return float64(uses) / s.sessions()
}

// GraduationRatio is graduated / max(1, total) SRS cards.
func (s Snapshot) GraduationRatio() float64 {
	return float64(s.SRS.GraduatedCards) / float64(maxInt(1, s.SRS.CardsTotal))
}

// ExpectedReviews is the number of reviews a learner should do today:
// the outstanding (non-graduated) cards, capped at dailyCap.
func (s Snapshot) ExpectedReviews(dailyCap int) int {
	outstanding := maxInt(0, s.SRS.CardsTotal-s.SRS.GraduatedCards)
	if outstanding < dailyCap {
		return outstanding
	}
	return dailyCap
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func nonNeg(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}
