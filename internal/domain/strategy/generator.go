package strategy

import (
	"sort"

	"github.com/alem-hub/learnpulse/internal/domain/risk"
	"github.com/alem-hub/learnpulse/internal/domain/shared"
	"github.com/alem-hub/learnpulse/pkg/timeutil"
)

// SkipFunc is called for every risk that yields no strategy.
type SkipFunc func(r risk.LearningRisk, reason string)

// Generator instantiates templates for risks.
type Generator struct {
	templates TemplateSet
	clock     timeutil.Clock
	ids       shared.IDGenerator
	onSkip    SkipFunc
}

// NewGenerator creates a Generator over templates.
func NewGenerator(templates TemplateSet, clock timeutil.Clock, ids shared.IDGenerator, onSkip SkipFunc) *Generator {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if ids == nil {
		ids = shared.SequentialIDs("strategy")
	}
	if onSkip == nil {
		onSkip = func(risk.LearningRisk, string) {}
	}
	return &Generator{templates: templates, clock: clock, ids: ids, onSkip: onSkip}
}

// ForRisk instantiates the template for r, if there is one.
func (g *Generator) ForRisk(r risk.LearningRisk) (InterventionStrategy, bool) {
	if !r.Type.IsValid() {
		g.onSkip(r, "unknown risk type")
		return InterventionStrategy{}, false
	}
	tpl, ok := g.templates.Lookup(r.Type)
	if !ok {
		g.onSkip(r, "no template")
		return InterventionStrategy{}, false
	}

	priority := tpl.DefaultPriority
	switch r.Severity {
	case risk.SeverityCritical:
		priority = escalate(priority, PriorityUrgent)
	case risk.SeverityHigh:
		priority = escalate(priority, PriorityHigh)
	}

	return InterventionStrategy{
		ID:                     g.ids(),
		Key:                    tpl.Key,
		Name:                   tpl.Name,
		UserID:                 r.UserID,
		RiskID:                 r.ID,
		TargetRisk:             r.Type,
		InterventionType:       tpl.InterventionType,
		Priority:               priority,
		Actions:                append([]Action(nil), tpl.Actions...),
		SuccessMetrics:         append([]SuccessMetric(nil), tpl.SuccessMetrics...),
		RelatedFeatures:        append([]string(nil), tpl.RelatedFeatures...),
		Confidence:             confidence(tpl.Confidence, r.Probability),
		EstimatedEffectiveness: tpl.EstimatedEffectiveness,
		CreatedAt:              g.clock.Now(),
	}, true
}

// Generate maps every risk to at most one strategy and returns them sorted
// by descending priority weight. Ties keep risk order.
func (g *Generator) Generate(risks []risk.LearningRisk) []InterventionStrategy {
	out := make([]InterventionStrategy, 0, len(risks))
	for _, r := range risks {
		if s, ok := g.ForRisk(r); ok {
			out = append(out, s)
		}
	}
	SortByPriority(out)
	return out
}

// GroupByRisk returns the strategies for each risk, keyed by risk id.
func GroupByRisk(strategies []InterventionStrategy) map[string][]InterventionStrategy {
	out := make(map[string][]InterventionStrategy, len(strategies))
	for _, s := range strategies {
		out[s.RiskID] = append(out[s.RiskID], s)
	}
	return out
}

// SortByPriority stable-sorts strategies by descending priority weight.
func SortByPriority(s []InterventionStrategy) {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].Priority.Weight() > s[j].Priority.Weight()
	})
}

// confidence scales template confidence by how likely the risk is.
func confidence(base, probability float64) float64 {
	c := base * (0.7 + 0.3*probability)
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
