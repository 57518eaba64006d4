package path

import (
	"sort"
	"time"

	"github.com/alem-hub/learnpulse/internal/domain/profile"
	"github.com/alem-hub/learnpulse/internal/domain/shared"
)

// Recommendation priorities, highest first.
const (
	priorityWeakArea       = 9
	priorityPhasePrimary   = 7
	priorityPhaseSecondary = 6
	priorityLearningStyle  = 5
)

// Optimizer derives paths from profiles.
type Optimizer struct {
	ttl         time.Duration
	ids         shared.IDGenerator
	adjustments bool
}

// NewOptimizer creates an Optimizer. A non-positive ttl uses DefaultTTL.
func NewOptimizer(ttl time.Duration, ids shared.IDGenerator) *Optimizer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if ids == nil {
		ids = shared.SequentialIDs("path")
	}
	return &Optimizer{ttl: ttl, ids: ids, adjustments: true}
}

// WithoutAdjustments returns a copy that never emits adaptive adjustments.
func (o *Optimizer) WithoutAdjustments() *Optimizer {
	cp := *o
	cp.adjustments = false
	return &cp
}

// TTL returns the validity window of generated paths.
func (o *Optimizer) TTL() time.Duration {
	return o.ttl
}

// Optimize builds a fresh path for p at now.
func (o *Optimizer) Optimize(p profile.LearningProfile, now time.Time) OptimizedLearningPath {
	avg := p.AverageSkill()
	phase := PhaseFor(avg)

	path := OptimizedLearningPath{
		ID:              o.ids(),
		UserID:          p.UserID,
		CurrentPhase:    phase,
		AverageSkill:    avg,
		Recommendations: recommendations(p, phase),
		Insights:        insights(p),
		NextMilestones:  append([]Milestone(nil), milestones[phase]...),
		Profile:         p,
		GeneratedAt:     now,
		ValidUntil:      now.Add(o.ttl),
	}
	path.AdaptiveAdjustments = []Adjustment{}
	if o.adjustments {
		path.AdaptiveAdjustments = adjustments(p)
	}
	return path
}

// ─────────────────────────────────────────────────────────────────────────────
// Recommendations
// ─────────────────────────────────────────────────────────────────────────────

var weakAreaAdvice = map[string]Recommendation{
	profile.AreaLearningPersistence: {Title: "Build persistence", Description: "Try each exercise twice before opening rescue hints."},
	profile.AreaFocus:               {Title: "Protect your focus", Description: "Use short focus blocks and silence notifications while studying."},
	profile.AreaMemory:              {Title: "Strengthen recall", Description: "Clear due reviews first and shorten review intervals for lapsed cards."},
	profile.AreaPronunciation:       {Title: "Practice pronunciation", Description: "Record and compare short phrases with the model audio daily."},
	profile.AreaSessionCompletion:   {Title: "Finish what you start", Description: "Pick shorter lessons you can complete in one sitting."},
}

var phaseAdvice = map[Phase][2]Recommendation{
	PhaseFoundation: {
		{Title: "Build a daily habit", Description: "Study a little every day to establish a routine."},
		{Title: "Learn core vocabulary", Description: "Add high-frequency words to your review deck."},
	},
	PhaseDevelopment: {
		{Title: "Mix review with new material", Description: "Balance spaced reviews with one new lesson per session."},
		{Title: "Speak every session", Description: "Add a pronunciation drill to each session."},
	},
	PhaseMastery: {
		{Title: "Take on advanced content", Description: "Move to authentic texts and harder exercises."},
		{Title: "Work on fluency", Description: "Practice longer spoken answers without hints."},
	},
	PhaseMaintenance: {
		{Title: "Keep skills fresh", Description: "Use light spaced reviews to maintain what you know."},
		{Title: "Produce original content", Description: "Write and speak about new topics to stay challenged."},
	},
}

var styleAdvice = map[profile.LearningStyle]Recommendation{
	profile.StyleVisual:      {Title: "Learn visually", Description: "Use flashcards with images and color-coded notes."},
	profile.StyleAuditory:    {Title: "Learn by listening", Description: "Favor audio lessons and repeat phrases aloud."},
	profile.StyleKinesthetic: {Title: "Learn by doing", Description: "Choose interactive exercises and role-play tasks."},
	profile.StyleMixed:       {Title: "Vary your formats", Description: "Alternate between reading, listening and speaking tasks."},
}

// recommendations assembles weak-area, phase and style advice in that
// order, then stable-sorts by descending priority.
func recommendations(p profile.LearningProfile, phase Phase) []Recommendation {
	out := []Recommendation{}
	for _, area := range p.WeakAreas {
		r, ok := weakAreaAdvice[area]
		if !ok {
			r = Recommendation{Title: "Improve " + area, Description: "Focus extra practice on " + area + "."}
		}
		r.Kind = KindWeakArea
		r.Area = area
		r.Priority = priorityWeakArea
		out = append(out, r)
	}

	advice := phaseAdvice[phase]
	for i, r := range advice {
		r.Kind = KindPhaseStrategy
		r.Priority = priorityPhasePrimary
		if i > 0 {
			r.Priority = priorityPhaseSecondary
		}
		out = append(out, r)
	}

	style := p.LearningStyle
	if _, ok := styleAdvice[style]; !ok {
		style = profile.StyleMixed
	}
	r := styleAdvice[style]
	r.Kind = KindLearningStyle
	r.Priority = priorityLearningStyle
	out = append(out, r)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Insights, milestones, adjustments
// ─────────────────────────────────────────────────────────────────────────────

func insights(p profile.LearningProfile) []Insight {
	out := []Insight{}
	if p.PronunciationSkill > 80 {
		out = append(out, Insight{
			Title:      "Strong pronunciation",
			Message:    "Your pronunciation scores are consistently high.",
			Impact:     ImpactPositive,
			Suggestion: "Try harder speaking content.",
			Score:      p.PronunciationSkill,
		})
	}
	if p.FocusStrength > 80 {
		out = append(out, Insight{
			Title:      "Excellent focus",
			Message:    "You rarely need focus assistance.",
			Impact:     ImpactPositive,
			Suggestion: "Longer sessions are within reach.",
			Score:      p.FocusStrength,
		})
	}
	if p.ConsistencyScore < 50 {
		out = append(out, Insight{
			Title:      "Irregular schedule",
			Message:    "Your study sessions are irregular.",
			Impact:     ImpactNegative,
			Suggestion: "Set a fixed daily study time.",
			Score:      p.ConsistencyScore,
		})
	}
	if p.MemoryRetention < 50 {
		out = append(out, Insight{
			Title:      "Recall is slipping",
			Message:    "Many reviewed cards are being forgotten.",
			Impact:     ImpactNegative,
			Suggestion: "Review more often with fewer new cards.",
			Score:      p.MemoryRetention,
		})
	}
	if p.MotivationLevel < 40 {
		out = append(out, Insight{
			Title:      "Low momentum",
			Message:    "Your recent activity is low.",
			Impact:     ImpactNegative,
			Suggestion: "Set a small goal you can meet every day.",
			Score:      p.MotivationLevel,
		})
	}
	return out
}

var milestones = map[Phase][]Milestone{
	PhaseFoundation: {
		{Title: "Seven-day streak", Metric: "session_frequency", TargetValue: 1, EstimatedDays: 7},
		{Title: "First 100 cards", Metric: "srs_cards_total", TargetValue: 100, EstimatedDays: 21},
		{Title: "Average skill 40", Metric: "average_skill", TargetValue: 40, EstimatedDays: 30},
	},
	PhaseDevelopment: {
		{Title: "Review accuracy 75%", Metric: "srs_accuracy_rate", TargetValue: 75, EstimatedDays: 21},
		{Title: "Pronunciation score 70", Metric: "pronunciation_average_score", TargetValue: 70, EstimatedDays: 30},
		{Title: "Average skill 70", Metric: "average_skill", TargetValue: 70, EstimatedDays: 60},
	},
	PhaseMastery: {
		{Title: "Accuracy 90%", Metric: "overall_accuracy", TargetValue: 90, EstimatedDays: 30},
		{Title: "Graduate half your deck", Metric: "srs_graduation_ratio", TargetValue: 0.5, EstimatedDays: 45},
		{Title: "Average skill 90", Metric: "average_skill", TargetValue: 90, EstimatedDays: 90},
	},
	PhaseMaintenance: {
		{Title: "Hold accuracy above 90%", Metric: "overall_accuracy", TargetValue: 90, EstimatedDays: 30},
		{Title: "Keep a weekly streak", Metric: "session_frequency", TargetValue: 0.5, EstimatedDays: 30},
	},
}

// MilestonesFor returns the fixed milestone table entry for phase.
func MilestonesFor(phase Phase) []Milestone {
	return append([]Milestone(nil), milestones[phase]...)
}

func adjustments(p profile.LearningProfile) []Adjustment {
	out := []Adjustment{}
	if p.MotivationLevel < 40 {
		out = append(out, Adjustment{Parameter: "daily_goal_minutes", Value: "10", Reason: "low motivation"})
	}
	if p.ConsistencyScore < 50 {
		out = append(out, Adjustment{Parameter: "reminders", Value: "enabled", Reason: "irregular schedule"})
	}
	if p.FocusStrength < 40 {
		out = append(out, Adjustment{Parameter: "session_length_minutes", Value: "15", Reason: "weak focus"})
	}
	if p.MemoryRetention < 50 {
		out = append(out, Adjustment{Parameter: "review_frequency", Value: "increased", Reason: "weak recall"})
	}
	if p.AverageSkill() > 80 && p.MotivationLevel >= 60 {
		out = append(out, Adjustment{Parameter: "difficulty", Value: "+1", Reason: "high skill and motivation"})
	}
	return out
}
