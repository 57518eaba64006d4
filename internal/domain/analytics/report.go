package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/alem-hub/learnpulse/internal/domain/shared"
	"github.com/alem-hub/learnpulse/internal/domain/stats"
)

// DefaultMinCorrelation is used when the caller supplies no minimum.
const DefaultMinCorrelation = 0.5

// Insight is a short, prioritized reading of the report.
type Insight struct {
	Source      string `json:"source"` // trend, pattern or correlation
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      Impact `json:"impact"`
	Priority    int    `json:"priority"`
	Actionable  bool   `json:"actionable"`
}

// Report bundles trends, patterns, correlations and insights for one
// learner over one window. Generated fresh on every request.
type Report struct {
	ID           string          `json:"id"`
	UserID       string          `json:"userId"`
	Range        stats.TimeRange `json:"timeRange"`
	Trends       []Trend         `json:"trends"`
	Patterns     []Pattern       `json:"patterns"`
	Correlations []Correlation   `json:"correlations"`
	Insights     []Insight       `json:"insights"`
	GeneratedAt  time.Time       `json:"generatedAt"`
}

// StableTrendRatio exposes plateau evidence for risk analysis.
func (r Report) StableTrendRatio() float64 {
	return StableRatio(r.Trends)
}

// ReportInput is the data a report is built from.
type ReportInput struct {
	UserID   string
	Range    stats.TimeRange
	Current  []stats.DailyPoint // daily points inside Range
	Baseline []stats.DailyPoint // daily points inside Range.Previous()
	Live     stats.Snapshot     // current snapshot, supplies SRS card totals
	// MinCorrelation filters correlations; <= 0 selects the default.
	MinCorrelation float64
}

// Generator assembles reports.
type Generator struct {
	trends       TrendAnalyzer
	patterns     PatternDetector
	correlations CorrelationFinder
	ids          shared.IDGenerator
}

// NewGenerator creates a Generator with the given stable epsilon.
func NewGenerator(epsilonPct float64, ids shared.IDGenerator) *Generator {
	if ids == nil {
		ids = shared.SequentialIDs("report")
	}
	return &Generator{trends: NewTrendAnalyzer(epsilonPct), ids: ids}
}

// Generate builds a report. generatedAt is supplied by the caller's clock.
func (g *Generator) Generate(in ReportInput, generatedAt time.Time) Report {
	current := stats.Rollup(in.UserID, in.Current, generatedAt)
	baseline := stats.Rollup(in.UserID, in.Baseline, generatedAt)

	// Card totals and today's reviews are not tracked per day.
	periodView := current
	periodView.SRS.CardsTotal = in.Live.SRS.CardsTotal
	periodView.SRS.GraduatedCards = in.Live.SRS.GraduatedCards
	periodView.SRS.ReviewsToday = in.Live.SRS.ReviewsToday

	minCorr := in.MinCorrelation
	if minCorr <= 0 {
		minCorr = DefaultMinCorrelation
	}

	trends := g.trends.Analyze(current, baseline, in.Range.Days())
	patterns := g.patterns.Detect(periodView, in.Current)
	correlations := Relevant(g.correlations.Find(in.Current), minCorr)

	return Report{
		ID:           g.ids(),
		UserID:       in.UserID,
		Range:        in.Range,
		Trends:       trends,
		Patterns:     patterns,
		Correlations: correlations,
		Insights:     deriveInsights(trends, patterns, correlations),
		GeneratedAt:  generatedAt,
	}
}

// keyMetrics are the trends worth surfacing as insights.
var keyMetrics = map[stats.Metric]bool{
	stats.MetricSessions:           true,
	stats.MetricAccuracy:           true,
	stats.MetricCompletionRate:     true,
	stats.MetricPronunciationScore: true,
	stats.MetricReviews:            true,
}

func deriveInsights(trends []Trend, patterns []Pattern, correlations []Correlation) []Insight {
	var out []Insight

	for _, t := range trends {
		if !keyMetrics[t.Metric] || t.Direction == Stable || math.Abs(t.ChangePercent) < 20 {
			continue
		}
		impact := ImpactPositive
		verb := "rose"
		if t.Direction == Decreasing {
			impact = ImpactNegative
			verb = "fell"
		}
		priority := 6
		if impact == ImpactNegative {
			priority = 8
		}
		out = append(out, Insight{
			Source:      "trend",
			Title:       fmt.Sprintf("%s %s", t.Metric, verb),
			Description: fmt.Sprintf("%s %s by %.0f%% compared to the previous period", t.Metric, verb, math.Abs(t.ChangePercent)),
			Impact:      impact,
			Priority:    priority,
			Actionable:  impact == ImpactNegative,
		})
	}

	for _, p := range patterns {
		priority := 5
		switch p.Impact {
		case ImpactNegative:
			priority = 7
		case ImpactNeutral:
			priority = 3
		}
		out = append(out, Insight{
			Source:      "pattern",
			Title:       p.Name,
			Description: p.Description,
			Impact:      p.Impact,
			Priority:    priority,
			Actionable:  len(p.Recommendations) > 0 && p.Impact != ImpactPositive,
		})
	}

	if len(correlations) > 0 {
		strongest := correlations[0]
		for _, c := range correlations[1:] {
			if math.Abs(c.Coefficient) > math.Abs(strongest.Coefficient) {
				strongest = c
			}
		}
		relation := "move together"
		if strongest.Coefficient < 0 {
			relation = "move in opposite directions"
		}
		out = append(out, Insight{
			Source:      "correlation",
			Title:       fmt.Sprintf("%s and %s %s", strongest.MetricA, strongest.MetricB, relation),
			Description: fmt.Sprintf("Correlation %.2f over %d days", strongest.Coefficient, strongest.SampleSize),
			Impact:      ImpactNeutral,
			Priority:    4,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}
