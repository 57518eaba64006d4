// Package path builds phase-aware learning plans from learning profiles.
package path

import (
	"time"

	"github.com/alem-hub/learnpulse/internal/domain/profile"
)

// DefaultTTL is how long a generated path stays valid.
const DefaultTTL = 24 * time.Hour

// Phase is a learning stage ordered by average skill.
type Phase string

const (
	PhaseFoundation  Phase = "foundation"
	PhaseDevelopment Phase = "development"
	PhaseMastery     Phase = "mastery"
	PhaseMaintenance Phase = "maintenance"
)

// Phase boundaries on the average skill score. Lower bounds are inclusive.
const (
	developmentFrom = 40.0
	masteryFrom     = 70.0
	maintenanceFrom = 90.0
)

// PhaseFor maps an average skill score to a phase.
func PhaseFor(avgSkill float64) Phase {
	switch {
	case avgSkill >= maintenanceFrom:
		return PhaseMaintenance
	case avgSkill >= masteryFrom:
		return PhaseMastery
	case avgSkill >= developmentFrom:
		return PhaseDevelopment
	default:
		return PhaseFoundation
	}
}

// RecommendationKind says which rule produced a recommendation.
type RecommendationKind string

const (
	KindWeakArea      RecommendationKind = "weak_area"
	KindPhaseStrategy RecommendationKind = "phase_strategy"
	KindLearningStyle RecommendationKind = "learning_style"
)

// Recommendation is one ranked suggestion.
type Recommendation struct {
	Kind        RecommendationKind `json:"kind"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Area        string             `json:"area,omitempty"`
	Priority    int                `json:"priority"`
}

// Impact is the direction of an insight.
type Impact string

const (
	ImpactPositive Impact = "positive"
	ImpactNegative Impact = "negative"
)

// Insight is an observation derived from a score threshold.
type Insight struct {
	Title      string  `json:"title"`
	Message    string  `json:"message"`
	Impact     Impact  `json:"impact"`
	Suggestion string  `json:"suggestion"`
	Score      float64 `json:"score"`
}

// Milestone is a target for the current phase.
type Milestone struct {
	Title         string  `json:"title"`
	Metric        string  `json:"metric"`
	TargetValue   float64 `json:"targetValue"`
	EstimatedDays int     `json:"estimatedDays"`
}

// Adjustment is a setting change suggested by the current scores.
type Adjustment struct {
	Parameter string `json:"parameter"`
	Value     string `json:"value"`
	Reason    string `json:"reason"`
}

// OptimizedLearningPath is a cached plan for one learner.
type OptimizedLearningPath struct {
	ID                  string                  `json:"id"`
	UserID              string                  `json:"userId"`
	CurrentPhase        Phase                   `json:"currentPhase"`
	AverageSkill        float64                 `json:"averageSkill"`
	Recommendations     []Recommendation        `json:"recommendations"`
	Insights            []Insight               `json:"insights"`
	NextMilestones      []Milestone             `json:"nextMilestones"`
	AdaptiveAdjustments []Adjustment            `json:"adaptiveAdjustments"`
	Profile             profile.LearningProfile `json:"profile"`
	GeneratedAt         time.Time               `json:"generatedAt"`
	ValidUntil          time.Time               `json:"validUntil"`
}

// Expiry lets caches expire the path exactly at ValidUntil.
func (p OptimizedLearningPath) Expiry() time.Time {
	return p.ValidUntil
}

// ValidAt reports whether the path is still valid at now.
func (p OptimizedLearningPath) ValidAt(now time.Time) bool {
	return now.Before(p.ValidUntil)
}
