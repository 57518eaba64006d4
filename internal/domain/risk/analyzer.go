package risk

import (
	"github.com/alem-hub/learnpulse/internal/domain/shared"
	"github.com/alem-hub/learnpulse/internal/domain/stats"
	"github.com/alem-hub/learnpulse/pkg/timeutil"
)

// Filter decides whether a risk type is evaluated for a learner.
type Filter func(userID string, t RiskType) bool

// Analyzer evaluates every registered model against a snapshot.
type Analyzer struct {
	registry *Registry
	clock    timeutil.Clock
	ids      shared.IDGenerator
	filter   Filter
}

// NewAnalyzer creates an Analyzer over registry.
func NewAnalyzer(registry *Registry, clock timeutil.Clock, ids shared.IDGenerator) *Analyzer {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if ids == nil {
		ids = shared.SequentialIDs("risk")
	}
	return &Analyzer{registry: registry, clock: clock, ids: ids}
}

// WithFilter returns a copy that skips risk types rejected by f.
func (a *Analyzer) WithFilter(f Filter) *Analyzer {
	cp := *a
	cp.filter = f
	return &cp
}

// Registry returns the model registry in use.
func (a *Analyzer) Registry() *Registry {
	return a.registry
}

// Analyze emits zero or one LearningRisk per registered type, in registry
// order. The snapshot is normalized first; it is never modified.
func (a *Analyzer) Analyze(userID string, s stats.Snapshot, ev Evidence) []LearningRisk {
	s = s.Normalize()
	now := a.clock.Now()

	risks := make([]LearningRisk, 0, len(a.registry.order))
	for _, t := range a.registry.order {
		if a.filter != nil && !a.filter(userID, t) {
			continue
		}
		m := a.registry.models[t]
		eval := m.Evaluate(s, ev)
		if !eval.Emitted() {
			continue
		}

		areas := make([]string, len(m.AffectedAreas()))
		copy(areas, m.AffectedAreas())

		risks = append(risks, LearningRisk{
			ID:                a.ids(),
			UserID:            userID,
			Type:              t,
			Severity:          eval.Severity,
			Probability:       eval.Probability,
			Score:             eval.Score,
			TimeToImpactHours: m.TimeToImpactHours(),
			AffectedAreas:     areas,
			Indicators:        eval.Indicators,
			DetectedAt:        now,
		})
	}
	return risks
}

// Evaluate runs one model without building a risk. Useful for diagnostics.
func (a *Analyzer) Evaluate(t RiskType, s stats.Snapshot, ev Evidence) (Evaluation, bool) {
	m, ok := a.registry.Model(t)
	if !ok {
		return Evaluation{}, false
	}
	return m.Evaluate(s.Normalize(), ev), true
}
