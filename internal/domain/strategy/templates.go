package strategy

import (
	"fmt"

	"github.com/alem-hub/learnpulse/internal/domain/risk"
)

// TemplateSet is the dispatch table from risk type to template.
type TemplateSet struct {
	byType map[risk.RiskType]Template
}

// NewTemplateSet builds a set from m. It may be partial; use Validate to
// require every risk type.
func NewTemplateSet(m map[risk.RiskType]Template) TemplateSet {
	cp := make(map[risk.RiskType]Template, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return TemplateSet{byType: cp}
}

// Lookup returns the template for t.
func (s TemplateSet) Lookup(t risk.RiskType) (Template, bool) {
	tpl, ok := s.byType[t]
	return tpl, ok
}

// Validate checks that every known risk type has a complete template.
func (s TemplateSet) Validate() error {
	for _, t := range risk.AllRiskTypes() {
		tpl, ok := s.byType[t]
		if !ok {
			return fmt.Errorf("strategy: no template for risk type %q", t)
		}
		if tpl.Key == "" || tpl.Name == "" || len(tpl.Actions) == 0 {
			return fmt.Errorf("strategy: incomplete template for risk type %q", t)
		}
		if tpl.DefaultPriority.Weight() == 0 {
			return fmt.Errorf("strategy: template %q has invalid priority %q", tpl.Key, tpl.DefaultPriority)
		}
		for i, a := range tpl.Actions {
			if a.Params == nil {
				return fmt.Errorf("strategy: template %q action %d has no parameters", tpl.Key, i)
			}
		}
	}
	return nil
}

var defaultTemplates = NewTemplateSet(map[risk.RiskType]Template{
	risk.AttentionDecline: {
		Key:              "focus_restoration",
		Name:             "Focus Restoration",
		InterventionType: Immediate,
		DefaultPriority:  PriorityHigh,
		Actions: []Action{
			{
				Description:       "Enable focus mode for upcoming sessions",
				Params:            FeatureToggleParams{Feature: "focus_mode", Enabled: true, DurationHours: 48},
				ExpectedImpact:    "Fewer abandoned sessions",
				TimeToEffectHours: 1,
			},
			{
				Description:       "Switch to shorter sessions with breaks",
				Params:            ScheduleParams{SessionMinutes: 15, SessionsPerDay: 2, BreakMinutes: 5},
				ExpectedImpact:    "Higher completion rate",
				TimeToEffectHours: 24,
			},
			{
				Description:       "Send a focus tip before the next session",
				Params:            NotificationParams{Channel: "in_app", Template: "focus_tip"},
				ExpectedImpact:    "Learner is aware of attention drift",
				TimeToEffectHours: 1,
			},
		},
		SuccessMetrics: []SuccessMetric{
			{Metric: "session_completion_rate", TargetValue: 0.8, TimeframeHours: 72},
			{Metric: "focus_trigger_frequency", TargetValue: 0.2, TimeframeHours: 72},
		},
		RelatedFeatures:        []string{"focus_mode", "session_timer"},
		Confidence:             0.75,
		EstimatedEffectiveness: 0.7,
	},
	risk.MotivationDrop: {
		Key:              "re_engagement",
		Name:             "Re-engagement Plan",
		InterventionType: Gradual,
		DefaultPriority:  PriorityMedium,
		Actions: []Action{
			{
				Description:       "Schedule a daily practice reminder",
				Params:            NotificationParams{Channel: "push", Template: "daily_reminder"},
				ExpectedImpact:    "More frequent sessions",
				TimeToEffectHours: 24,
			},
			{
				Description:       "Recommend short, rewarding lessons",
				Params:            ContentParams{Kind: "short_lesson", Count: 3},
				ExpectedImpact:    "Lower barrier to start a session",
				TimeToEffectHours: 48,
			},
			{
				Description:       "Set a small daily goal",
				Params:            ScheduleParams{SessionMinutes: 10, SessionsPerDay: 1},
				ExpectedImpact:    "Steady habit rebuilding",
				TimeToEffectHours: 72,
			},
		},
		SuccessMetrics: []SuccessMetric{
			{Metric: "session_frequency", TargetValue: 0.5, TimeframeHours: 168},
			{Metric: "feature_engagement_ratio", TargetValue: 0.3, TimeframeHours: 168},
		},
		RelatedFeatures:        []string{"reminders", "daily_goal"},
		Confidence:             0.65,
		EstimatedEffectiveness: 0.6,
	},
	risk.SkillPlateau: {
		Key:              "challenge_escalation",
		Name:             "Challenge Escalation",
		InterventionType: Gradual,
		DefaultPriority:  PriorityLow,
		Actions: []Action{
			{
				Description:       "Raise content difficulty one level",
				Params:            DifficultyParams{Steps: 1, MinAccuracy: 70},
				ExpectedImpact:    "Renewed skill growth",
				TimeToEffectHours: 72,
			},
			{
				Description:       "Recommend advanced exercises",
				Params:            ContentParams{Kind: "advanced_exercise", Count: 5},
				ExpectedImpact:    "Exposure to new material",
				TimeToEffectHours: 48,
			},
		},
		SuccessMetrics: []SuccessMetric{
			{Metric: "overall_accuracy", TargetValue: 75, TimeframeHours: 336},
		},
		RelatedFeatures:        []string{"adaptive_difficulty"},
		Confidence:             0.6,
		EstimatedEffectiveness: 0.55,
	},
	risk.MemoryDecay: {
		Key:              "review_reinforcement",
		Name:             "Review Reinforcement",
		InterventionType: Immediate,
		DefaultPriority:  PriorityHigh,
		Actions: []Action{
			{
				Description:       "Start a focused review session on lapsed cards",
				Params:            ReviewParams{CardLimit: 30, PrioritizeLapsed: true},
				ExpectedImpact:    "Recovered recall on weak cards",
				TimeToEffectHours: 2,
			},
			{
				Description:       "Send a review reminder",
				Params:            NotificationParams{Channel: "push", Template: "review_reminder", DelayMinutes: 60},
				ExpectedImpact:    "Reviews done before cards lapse further",
				TimeToEffectHours: 1,
			},
			{
				Description:       "Enable the daily review goal",
				Params:            FeatureToggleParams{Feature: "srs_daily_goal", Enabled: true, DurationHours: 168},
				ExpectedImpact:    "Consistent review volume",
				TimeToEffectHours: 24,
			},
		},
		SuccessMetrics: []SuccessMetric{
			{Metric: "srs_accuracy_rate", TargetValue: 75, TimeframeHours: 96},
			{Metric: "reviews_today", TargetValue: 10, TimeframeHours: 48},
		},
		RelatedFeatures:        []string{"srs", "reminders"},
		Confidence:             0.8,
		EstimatedEffectiveness: 0.75,
	},
	risk.PronunciationRegression: {
		Key:              "pronunciation_coaching",
		Name:             "Pronunciation Coaching",
		InterventionType: Preventive,
		DefaultPriority:  PriorityMedium,
		Actions: []Action{
			{
				Description:       "Recommend targeted pronunciation drills",
				Params:            ContentParams{Kind: "pronunciation_drill", Count: 5},
				ExpectedImpact:    "Higher assessment scores",
				TimeToEffectHours: 48,
			},
			{
				Description:       "Lower speaking exercise difficulty one level",
				Params:            DifficultyParams{Steps: -1, MinAccuracy: 60},
				ExpectedImpact:    "Less reliance on rescue mode",
				TimeToEffectHours: 24,
			},
			{
				Description:       "Enable slow playback for model audio",
				Params:            FeatureToggleParams{Feature: "slow_playback", Enabled: true, DurationHours: 72},
				ExpectedImpact:    "Clearer pronunciation targets",
				TimeToEffectHours: 1,
			},
		},
		SuccessMetrics: []SuccessMetric{
			{Metric: "pronunciation_average_score", TargetValue: 70, TimeframeHours: 192},
			{Metric: "rescue_trigger_ratio", TargetValue: 0.3, TimeframeHours: 192},
		},
		RelatedFeatures:        []string{"pronunciation", "rescue_mode"},
		Confidence:             0.7,
		EstimatedEffectiveness: 0.65,
	},
})

func init() {
	if err := defaultTemplates.Validate(); err != nil {
		panic(err)
	}
}

// DefaultTemplates returns the built-in, exhaustive template table.
func DefaultTemplates() TemplateSet {
	return defaultTemplates
}
