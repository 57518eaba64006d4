// Package strategy maps learning risks to intervention strategies.
//
// Each risk type has exactly one template. The table is checked for
// exhaustiveness when the package loads, so a new risk type without a
// template fails every binary and test immediately.
package strategy

import (
	"time"

	"github.com/alem-hub/learnpulse/internal/domain/risk"
)

// InterventionType describes how an intervention is rolled out.
type InterventionType string

const (
	Immediate  InterventionType = "immediate"
	Gradual    InterventionType = "gradual"
	Preventive InterventionType = "preventive"
)

// Priority ranks strategies.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Weight orders priorities: urgent=4, high=3, medium=2, low=1.
func (p Priority) Weight() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// escalate raises p to floor if floor is higher. It never lowers p.
func escalate(p, floor Priority) Priority {
	if floor.Weight() > p.Weight() {
		return floor
	}
	return p
}

// SuccessMetric says what improvement counts as success and by when.
type SuccessMetric struct {
	Metric         string  `json:"metric"`
	TargetValue    float64 `json:"targetValue"`
	TimeframeHours float64 `json:"timeframe"`
}

// InterventionStrategy is a template instantiated for one risk occurrence.
type InterventionStrategy struct {
	ID                     string           `json:"id"`
	Key                    string           `json:"key"`
	Name                   string           `json:"name"`
	UserID                 string           `json:"userId"`
	RiskID                 string           `json:"riskId"`
	TargetRisk             risk.RiskType    `json:"targetRisk"`
	InterventionType       InterventionType `json:"interventionType"`
	Priority               Priority         `json:"priority"`
	Actions                []Action         `json:"actions"`
	SuccessMetrics         []SuccessMetric  `json:"successMetrics"`
	RelatedFeatures        []string         `json:"relatedFeatures"`
	Confidence             float64          `json:"confidence"`
	EstimatedEffectiveness float64          `json:"estimatedEffectiveness"`
	CreatedAt              time.Time        `json:"createdAt"`
}

// Template is the fixed recipe for one risk type.
type Template struct {
	Key                    string
	Name                   string
	InterventionType       InterventionType
	DefaultPriority        Priority
	Actions                []Action
	SuccessMetrics         []SuccessMetric
	RelatedFeatures        []string
	Confidence             float64
	EstimatedEffectiveness float64
}
