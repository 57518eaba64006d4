// Package alert turns learning risks and their strategies into time-boxed,
// dismissible predictive alerts.
package alert

import (
	"fmt"
	"time"

	"github.com/alem-hub/learnpulse/internal/domain/risk"
	"github.com/alem-hub/learnpulse/internal/domain/strategy"
)

// DefaultHistoryCap bounds the alert history kept per learner.
const DefaultHistoryCap = 100

// AlertType classifies an alert for display.
type AlertType string

const (
	TypeWarning     AlertType = "warning"
	TypeCritical    AlertType = "critical"
	TypeOpportunity AlertType = "opportunity"
)

// PredictiveAlert bundles a risk with the strategies recommended for it.
type PredictiveAlert struct {
	ID                    string                          `json:"id"`
	UserID                string                          `json:"userId"`
	AlertType             AlertType                       `json:"alertType"`
	Title                 string                          `json:"title"`
	Message               string                          `json:"message"`
	Risk                  risk.LearningRisk               `json:"risk"`
	RecommendedStrategies []strategy.InterventionStrategy `json:"recommendedStrategies"`
	Urgency               float64                         `json:"urgency"`
	AutoExecutable        bool                            `json:"autoExecutable"`
	UserActionRequired    bool                            `json:"userActionRequired"`
	CreatedAt             time.Time                       `json:"createdAt"`
	ExpiresAt             time.Time                       `json:"expiresAt"`
}

// Expired reports whether the alert is past its expiry at now.
// At exactly ExpiresAt the alert is still live.
func (a PredictiveAlert) Expired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}

// Pair is one risk together with the strategies generated for it.
type Pair struct {
	Risk       risk.LearningRisk
	Strategies []strategy.InterventionStrategy
}

// Pairs groups strategies under the risks they target. Risks without a
// strategy still get a pair with no strategies.
func Pairs(risks []risk.LearningRisk, strategies []strategy.InterventionStrategy) []Pair {
	byRisk := strategy.GroupByRisk(strategies)
	out := make([]Pair, 0, len(risks))
	for _, r := range risks {
		out = append(out, Pair{Risk: r, Strategies: byRisk[r.ID]})
	}
	return out
}

// severityMultiplier scales probability into urgency.
func severityMultiplier(s risk.Severity) float64 {
	switch s {
	case risk.SeverityCritical:
		return 1.0
	case risk.SeverityHigh:
		return 0.8
	default:
		return 0.6
	}
}

var titles = map[risk.RiskType]string{
	risk.AttentionDecline:        "Attention is slipping",
	risk.MotivationDrop:          "Practice is fading",
	risk.SkillPlateau:            "Progress has plateaued",
	risk.MemoryDecay:             "Reviews are falling behind",
	risk.PronunciationRegression: "Pronunciation needs support",
}

func title(r risk.LearningRisk) string {
	if t, ok := titles[r.Type]; ok {
		return t
	}
	return "Learning risk detected"
}

func message(r risk.LearningRisk, strategies []strategy.InterventionStrategy) string {
	msg := fmt.Sprintf("%s risk at %.0f%% probability, expected impact within %.0f hours.",
		r.Severity, r.Probability*100, r.TimeToImpactHours)
	if len(strategies) == 0 {
		return msg + " No automatic strategy is available; please review manually."
	}
	return msg + " Recommended: " + strategies[0].Name + "."
}
