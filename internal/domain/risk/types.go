package risk

import (
	"time"

	"github.com/alem-hub/learnpulse/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RISK TYPE
// ══════════════════════════════════════════════════════════════════════════════

// RiskType identifies a kind of learning risk.
type RiskType string

const (
	// AttentionDecline: the learner loses focus during sessions.
	AttentionDecline RiskType = "attention_decline"

	// MotivationDrop: the learner practices less often and for shorter periods.
	MotivationDrop RiskType = "motivation_drop"

	// SkillPlateau: results are good but no longer improving.
	SkillPlateau RiskType = "skill_plateau"

	// MemoryDecay: spaced-repetition reviews are failing or skipped.
	MemoryDecay RiskType = "memory_decay"

	// PronunciationRegression: low pronunciation scores with heavy rescue use.
	PronunciationRegression RiskType = "pronunciation_regression"
)

// AllRiskTypes returns every risk type in evaluation order.
func AllRiskTypes() []RiskType {
	return []RiskType{
		AttentionDecline,
		MotivationDrop,
		SkillPlateau,
		MemoryDecay,
		PronunciationRegression,
	}
}

// IsValid reports whether t is a known risk type.
func (t RiskType) IsValid() bool {
	switch t {
	case AttentionDecline, MotivationDrop, SkillPlateau, MemoryDecay, PronunciationRegression:
		return true
	default:
		return false
	}
}

// String returns the wire name.
func (t RiskType) String() string {
	return string(t)
}

// ParseRiskType validates a wire name.
func ParseRiskType(s string) (RiskType, error) {
	t := RiskType(s)
	if !t.IsValid() {
		return "", shared.ErrInvalidRiskType
	}
	return t, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SEVERITY
// ══════════════════════════════════════════════════════════════════════════════

// Severity is an ordered risk level.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities: low=1 .. critical=4. Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// AtLeast reports whether s is as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// IsValid reports whether s is a known severity.
func (s Severity) IsValid() bool {
	return s.Rank() > 0
}

// severityFromScore maps a weighted score to a severity tier.
func severityFromScore(score float64) Severity {
	switch {
	case score > 0.9:
		return SeverityCritical
	case score > 0.8:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// INDICATOR & RISK
// ══════════════════════════════════════════════════════════════════════════════

// TrendTag describes how an indicator is moving.
type TrendTag string

const (
	TrendDeclining TrendTag = "declining"
	TrendStagnant  TrendTag = "stagnant"
	TrendVolatile  TrendTag = "volatile"
)

// Indicator is one observed metric inside a risk.
type Indicator struct {
	Metric       string   `json:"metric"`
	CurrentValue float64  `json:"currentValue"`
	Threshold    float64  `json:"threshold"`
	Trend        TrendTag `json:"trend"`
	Exceeded     bool     `json:"exceeded"`
}

// LearningRisk is a quantified hypothesis that a learner is about to
// disengage, stagnate or regress. It is never mutated after creation.
type LearningRisk struct {
	ID                string      `json:"id"`
	UserID            string      `json:"userId"`
	Type              RiskType    `json:"riskType"`
	Severity          Severity    `json:"severity"`
	Probability       float64     `json:"probability"`
	Score             float64     `json:"score"`
	TimeToImpactHours float64     `json:"timeToImpact"`
	AffectedAreas     []string    `json:"affectedAreas"`
	Indicators        []Indicator `json:"indicators"`
	DetectedAt        time.Time   `json:"detectedAt"`
}

// TimeToImpact returns the impact horizon as a Duration.
func (r LearningRisk) TimeToImpact() time.Duration {
	return time.Duration(r.TimeToImpactHours * float64(time.Hour))
}

// Evidence carries analytics-derived signals some models need.
type Evidence struct {
	// StableTrendRatio is the fraction of trends classified stable.
	StableTrendRatio float64
	// HasTrends is false when no trend analysis was available.
	HasTrends bool
}
