package risk

import (
	"math"

	"github.com/alem-hub/learnpulse/internal/domain/stats"
)

// Model thresholds. They have no documented derivation and are kept as
// named constants for product/data review rather than tuned here.
const (
	AttentionTrigger           = 0.6
	AttentionFocusFreqMax      = 0.3
	AttentionCompletionMin     = 0.7
	AttentionErrorRateMax      = 0.2
	AttentionTimeToImpactHours = 24.0

	MotivationTrigger           = 0.5
	MotivationFrequencyMin      = 0.5
	MotivationDurationMin       = 0.5
	MotivationEngagementMin     = 0.3
	MotivationTimeToImpactHours = 72.0

	PlateauStableRatioMin    = 0.7
	PlateauAccuracyMin       = 70.0
	PlateauTimeToImpactHours = 168.0

	MemoryAccuracyMin       = 70.0
	MemoryHighSeverityBelow = 50.0
	MemoryProbability       = 0.7
	MemoryTimeToImpactHours = 48.0

	PronunciationScoreMin          = 70.0
	PronunciationRescueRatioMax    = 0.3
	PronunciationHighSeverityBelow = 50.0
	PronunciationProbability       = 0.65
	PronunciationTimeToImpactHours = 96.0

	// ruleTrigger is the cut-off for boolean rule models scored 1 or 0.
	ruleTrigger = 0.5

	// scorePrecision rounds weighted sums so 0.35+0.25 compares equal to 0.6.
	scorePrecision = 1e6
)

// Config holds the tunables that are not fixed model constants.
type Config struct {
	// ExpectedDailyReviews caps the expected SRS review count per day.
	ExpectedDailyReviews int
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{ExpectedDailyReviews: 20}
}

// Direction says which side of a threshold is unfavorable.
type Direction int

const (
	// Above flags values strictly greater than the threshold.
	Above Direction = iota
	// Below flags values strictly less than the threshold.
	Below
)

func (d Direction) exceeded(value, threshold float64) bool {
	if d == Above {
		return value > threshold
	}
	return value < threshold
}

// IndicatorSpec defines one weighted indicator.
type IndicatorSpec struct {
	Metric    string
	Weight    float64
	Threshold float64
	Direction Direction
	Trend     TrendTag
	Observe   func(stats.Snapshot) float64
}

// Evaluation is the result of running one model.
type Evaluation struct {
	Score       float64
	Trigger     float64
	Severity    Severity
	Probability float64
	Indicators  []Indicator
}

// Emitted reports whether the score strictly exceeds the trigger.
func (e Evaluation) Emitted() bool {
	return e.Score > e.Trigger
}

// Model evaluates one risk type.
type Model interface {
	Type() RiskType
	TimeToImpactHours() float64
	AffectedAreas() []string
	Evaluate(s stats.Snapshot, ev Evidence) Evaluation
}

// ══════════════════════════════════════════════════════════════════════════════
// WEIGHTED MODEL
// ══════════════════════════════════════════════════════════════════════════════

// WeightedModel sums the weights of exceeded indicators.
type WeightedModel struct {
	RiskType     RiskType
	Trigger      float64
	ImpactHours  float64
	Areas        []string
	IndicatorSet []IndicatorSpec
}

func (m *WeightedModel) Type() RiskType             { return m.RiskType }
func (m *WeightedModel) TimeToImpactHours() float64 { return m.ImpactHours }
func (m *WeightedModel) AffectedAreas() []string    { return m.Areas }

// TotalWeight returns the sum of indicator weights.
func (m *WeightedModel) TotalWeight() float64 {
	var w float64
	for _, spec := range m.IndicatorSet {
		w += spec.Weight
	}
	return roundScore(w)
}

// Evaluate implements Model.
func (m *WeightedModel) Evaluate(s stats.Snapshot, _ Evidence) Evaluation {
	var score float64
	indicators := make([]Indicator, 0, len(m.IndicatorSet))
	for _, spec := range m.IndicatorSet {
		v := spec.Observe(s)
		hit := spec.Direction.exceeded(v, spec.Threshold)
		if hit {
			score += spec.Weight
		}
		indicators = append(indicators, Indicator{
			Metric:       spec.Metric,
			CurrentValue: v,
			Threshold:    spec.Threshold,
			Trend:        spec.Trend,
			Exceeded:     hit,
		})
	}
	score = roundScore(score)
	return Evaluation{
		Score:       score,
		Trigger:     m.Trigger,
		Severity:    severityFromScore(score),
		Probability: clamp01(score),
		Indicators:  indicators,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// RULE MODEL
// ══════════════════════════════════════════════════════════════════════════════

// RuleResult is what a rule function reports.
type RuleResult struct {
	Fired       bool
	Severity    Severity
	Probability float64
	Indicators  []Indicator
}

// RuleModel is a boolean condition scored 1 when fired.
type RuleModel struct {
	RiskType    RiskType
	ImpactHours float64
	Areas       []string
	Rule        func(s stats.Snapshot, ev Evidence) RuleResult
}

func (m *RuleModel) Type() RiskType             { return m.RiskType }
func (m *RuleModel) TimeToImpactHours() float64 { return m.ImpactHours }
func (m *RuleModel) AffectedAreas() []string    { return m.Areas }

// Evaluate implements Model.
func (m *RuleModel) Evaluate(s stats.Snapshot, ev Evidence) Evaluation {
	res := m.Rule(s, ev)
	score := 0.0
	if res.Fired {
		score = 1.0
	}
	return Evaluation{
		Score:       score,
		Trigger:     ruleTrigger,
		Severity:    res.Severity,
		Probability: clamp01(res.Probability),
		Indicators:  res.Indicators,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// REGISTRY
// ══════════════════════════════════════════════════════════════════════════════

// Registry holds one model per risk type. Construct it once and inject it.
type Registry struct {
	order  []RiskType
	models map[RiskType]Model
}

// NewRegistry builds the reference models.
func NewRegistry(cfg Config) *Registry {
	if cfg.ExpectedDailyReviews <= 0 {
		cfg.ExpectedDailyReviews = DefaultConfig().ExpectedDailyReviews
	}
	r := &Registry{models: make(map[RiskType]Model)}
	r.register(attentionModel())
	r.register(motivationModel())
	r.register(plateauModel())
	r.register(memoryModel(cfg.ExpectedDailyReviews))
	r.register(pronunciationModel())
	return r
}

func (r *Registry) register(m Model) {
	if _, dup := r.models[m.Type()]; !dup {
		r.order = append(r.order, m.Type())
	}
	r.models[m.Type()] = m
}

// Model returns the model for t.
func (r *Registry) Model(t RiskType) (Model, bool) {
	m, ok := r.models[t]
	return m, ok
}

// Types returns registered risk types in evaluation order.
func (r *Registry) Types() []RiskType {
	out := make([]RiskType, len(r.order))
	copy(out, r.order)
	return out
}

func attentionModel() *WeightedModel {
	return &WeightedModel{
		RiskType:    AttentionDecline,
		Trigger:     AttentionTrigger,
		ImpactHours: AttentionTimeToImpactHours,
		Areas:       []string{"focus", "session_completion", "accuracy"},
		IndicatorSet: []IndicatorSpec{
			{
				Metric: "focus_trigger_frequency", Weight: 0.4, Threshold: AttentionFocusFreqMax,
				Direction: Above, Trend: TrendDeclining,
				Observe: stats.Snapshot.FocusTriggerFrequency,
			},
			{
				Metric: "session_completion_rate", Weight: 0.35, Threshold: AttentionCompletionMin,
				Direction: Below, Trend: TrendDeclining,
				Observe: stats.Snapshot.CompletionRate,
			},
			{
				Metric: "error_rate", Weight: 0.25, Threshold: AttentionErrorRateMax,
				Direction: Above, Trend: TrendVolatile,
				Observe: stats.Snapshot.ErrorRate,
			},
		},
	}
}

func motivationModel() *WeightedModel {
	return &WeightedModel{
		RiskType:    MotivationDrop,
		Trigger:     MotivationTrigger,
		ImpactHours: MotivationTimeToImpactHours,
		Areas:       []string{"engagement", "consistency"},
		IndicatorSet: []IndicatorSpec{
			{
				Metric: "session_frequency", Weight: 0.5, Threshold: MotivationFrequencyMin,
				Direction: Below, Trend: TrendDeclining,
				Observe: stats.Snapshot.SessionFrequency,
			},
			{
				Metric: "normalized_session_duration", Weight: 0.3, Threshold: MotivationDurationMin,
				Direction: Below, Trend: TrendDeclining,
				Observe: stats.Snapshot.NormalizedSessionDuration,
			},
			{
				Metric: "feature_engagement_ratio", Weight: 0.2, Threshold: MotivationEngagementMin,
				Direction: Below, Trend: TrendStagnant,
				Observe: stats.Snapshot.FeatureEngagementRatio,
			},
		},
	}
}

func plateauModel() *RuleModel {
	return &RuleModel{
		RiskType:    SkillPlateau,
		ImpactHours: PlateauTimeToImpactHours,
		Areas:       []string{"skill_growth"},
		Rule: func(s stats.Snapshot, ev Evidence) RuleResult {
			ratio := 0.0
			if ev.HasTrends {
				ratio = ev.StableTrendRatio
			}
			acc := s.Overall.OverallAccuracy
			stable := ratio > PlateauStableRatioMin
			accurate := acc > PlateauAccuracyMin
			return RuleResult{
				Fired:       stable && accurate,
				Severity:    SeverityLow,
				Probability: ratio,
				Indicators: []Indicator{
					{Metric: "stable_trend_ratio", CurrentValue: ratio, Threshold: PlateauStableRatioMin, Trend: TrendStagnant, Exceeded: stable},
					{Metric: "overall_accuracy", CurrentValue: acc, Threshold: PlateauAccuracyMin, Trend: TrendStagnant, Exceeded: accurate},
				},
			}
		},
	}
}

func memoryModel(dailyCap int) *RuleModel {
	return &RuleModel{
		RiskType:    MemoryDecay,
		ImpactHours: MemoryTimeToImpactHours,
		Areas:       []string{"memory", "srs_reviews"},
		Rule: func(s stats.Snapshot, _ Evidence) RuleResult {
			acc := s.SRS.AccuracyRate
			expected := float64(s.ExpectedReviews(dailyCap))
			reviews := float64(s.SRS.ReviewsToday)

			lowAccuracy := acc < MemoryAccuracyMin
			behind := reviews < expected/2

			sev := SeverityMedium
			if acc < MemoryHighSeverityBelow {
				sev = SeverityHigh
			}
			return RuleResult{
				Fired:       lowAccuracy || behind,
				Severity:    sev,
				Probability: MemoryProbability,
				Indicators: []Indicator{
					{Metric: "srs_accuracy_rate", CurrentValue: acc, Threshold: MemoryAccuracyMin, Trend: TrendDeclining, Exceeded: lowAccuracy},
					{Metric: "reviews_today", CurrentValue: reviews, Threshold: expected / 2, Trend: TrendDeclining, Exceeded: behind},
				},
			}
		},
	}
}

func pronunciationModel() *RuleModel {
	return &RuleModel{
		RiskType:    PronunciationRegression,
		ImpactHours: PronunciationTimeToImpactHours,
		Areas:       []string{"pronunciation", "rescue_dependency"},
		Rule: func(s stats.Snapshot, _ Evidence) RuleResult {
			avg := s.Pronunciation.AverageScore
			rescue := s.RescueTriggerRatio()

			lowScore := avg < PronunciationScoreMin
			reliant := rescue > PronunciationRescueRatioMax

			sev := SeverityMedium
			if avg < PronunciationHighSeverityBelow {
				sev = SeverityHigh
			}
			return RuleResult{
				Fired:       lowScore && reliant,
				Severity:    sev,
				Probability: PronunciationProbability,
				Indicators: []Indicator{
					{Metric: "pronunciation_average_score", CurrentValue: avg, Threshold: PronunciationScoreMin, Trend: TrendDeclining, Exceeded: lowScore},
					{Metric: "rescue_trigger_ratio", CurrentValue: rescue, Threshold: PronunciationRescueRatioMax, Trend: TrendVolatile, Exceeded: reliant},
				},
			}
		},
	}
}

func roundScore(v float64) float64 {
	return math.Round(v*scorePrecision) / scorePrecision
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
