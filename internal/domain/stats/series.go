package stats

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/alem-hub/learnpulse/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// TIME RANGE
// ═══════════════════════════════════════════════════════════════════════════

// TimeRange is a half-open analysis window [Start, End).
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewTimeRange validates that end is strictly after start.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if !end.After(start) {
		return TimeRange{}, shared.ErrInvalidTimeRange
	}
	return TimeRange{Start: start.UTC(), End: end.UTC()}, nil
}

// ParseTimeRange parses ISO-8601 timestamps. Date-only values are accepted
// and interpreted as midnight UTC.
func ParseTimeRange(start, end string) (TimeRange, error) {
	s, err := parseISO(start)
	if err != nil {
		return TimeRange{}, shared.WrapError("stats", "ParseTimeRange", shared.ErrInvalidFormat, "invalid start", err)
	}
	e, err := parseISO(end)
	if err != nil {
		return TimeRange{}, shared.WrapError("stats", "ParseTimeRange", shared.ErrInvalidFormat, "invalid end", err)
	}
	return NewTimeRange(s, e)
}

func parseISO(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}

// LastDays returns the window of n days ending at now.
func LastDays(now time.Time, n int) TimeRange {
	return TimeRange{Start: now.AddDate(0, 0, -n).UTC(), End: now.UTC()}
}

// Duration returns End - Start.
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Days returns the number of (partial) days covered, at least 1.
func (r TimeRange) Days() int {
	d := int(math.Ceil(r.Duration().Hours() / 24))
	if d < 1 {
		return 1
	}
	return d
}

// Previous returns the window of equal length immediately before r.
func (r TimeRange) Previous() TimeRange {
	return TimeRange{Start: r.Start.Add(-r.Duration()), End: r.Start}
}

// Contains reports whether t falls inside [Start, End).
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// ═══════════════════════════════════════════════════════════════════════════
// DAILY SERIES
// ═══════════════════════════════════════════════════════════════════════════

// DailyPoint holds one learner's counters for one calendar day.
type DailyPoint struct {
	Date               time.Time `json:"date"`
	Sessions           int       `json:"sessions"`
	CompletedSessions  int       `json:"completedSessions"`
	Accuracy           float64   `json:"accuracy"`
	TimeSpent          float64   `json:"timeSpent"`
	FocusTriggers      int       `json:"focusTriggers"`
	RescueTriggers     int       `json:"rescueTriggers"`
	PronunciationScore float64   `json:"pronunciationScore"`
	Assessments        int       `json:"assessments"`
	Reviews            int       `json:"reviews"`
	ReviewAccuracy     float64   `json:"reviewAccuracy"`
}

// Metric names a per-day series the analytics package can trend and correlate.
type Metric string

const (
	MetricSessions           Metric = "sessions"
	MetricCompletionRate     Metric = "completion_rate"
	MetricAccuracy           Metric = "accuracy"
	MetricTimeSpent          Metric = "time_spent"
	MetricFocusTriggers      Metric = "focus_triggers"
	MetricRescueTriggers     Metric = "rescue_triggers"
	MetricPronunciationScore Metric = "pronunciation_score"
	MetricReviews            Metric = "reviews"
)

// AllMetrics lists metrics in report order.
func AllMetrics() []Metric {
	return []Metric{
		MetricSessions,
		MetricCompletionRate,
		MetricAccuracy,
		MetricTimeSpent,
		MetricFocusTriggers,
		MetricRescueTriggers,
		MetricPronunciationScore,
		MetricReviews,
	}
}

// Value extracts the metric from a daily point.
func (m Metric) Value(p DailyPoint) float64 {
	switch m {
	case MetricSessions:
		return float64(p.Sessions)
	case MetricCompletionRate:
		return float64(p.CompletedSessions) / float64(maxInt(1, p.Sessions))
	case MetricAccuracy:
		return p.Accuracy
	case MetricTimeSpent:
		return p.TimeSpent
	case MetricFocusTriggers:
		return float64(p.FocusTriggers)
	case MetricRescueTriggers:
		return float64(p.RescueTriggers)
	case MetricPronunciationScore:
		return p.PronunciationScore
	case MetricReviews:
		return float64(p.Reviews)
	default:
		return 0
	}
}

// SnapshotValue extracts the comparable aggregate of the metric from a snapshot.
func (m Metric) SnapshotValue(s Snapshot) float64 {
	switch m {
	case MetricSessions:
		return float64(s.Overall.TotalSessions)
	case MetricCompletionRate:
		return s.CompletionRate()
	case MetricAccuracy:
		return s.Overall.OverallAccuracy
	case MetricTimeSpent:
		return s.Overall.TotalTimeSpent
	case MetricFocusTriggers:
		return float64(s.FocusMode.Triggered)
	case MetricRescueTriggers:
		return float64(s.RescueMode.Triggered)
	case MetricPronunciationScore:
		return s.Pronunciation.AverageScore
	case MetricReviews:
		return float64(s.SRS.ReviewsToday)
	default:
		return 0
	}
}

// Values extracts the metric for every point.
func (m Metric) Values(points []DailyPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = m.Value(p)
	}
	return out
}

// Rollup folds a daily series into a period snapshot. Accuracy-style rates
// are averaged with session (or review) counts as weights; SRS card totals
// are not tracked per day and stay zero.
func Rollup(userID string, points []DailyPoint, capturedAt time.Time) Snapshot {
	s := Snapshot{UserID: userID, CapturedAt: capturedAt}
	var accWeighted, pronWeighted, reviewAccWeighted float64
	var pronWeight, reviewWeight int

	for _, p := range points {
		s.Overall.TotalSessions += p.Sessions
		s.Overall.CompletedSessions += p.CompletedSessions
		s.Overall.TotalTimeSpent += p.TimeSpent
		s.FocusMode.Triggered += p.FocusTriggers
		s.RescueMode.Triggered += p.RescueTriggers
		s.Pronunciation.Assessments += p.Assessments
		accWeighted += p.Accuracy * float64(p.Sessions)

		if p.Assessments > 0 {
			pronWeighted += p.PronunciationScore * float64(p.Assessments)
			pronWeight += p.Assessments
		}
		if p.Reviews > 0 {
			reviewAccWeighted += p.ReviewAccuracy * float64(p.Reviews)
			reviewWeight += p.Reviews
		}
	}

	if s.Overall.TotalSessions > 0 {
		s.Overall.OverallAccuracy = accWeighted / float64(s.Overall.TotalSessions)
	}
	if pronWeight > 0 {
		s.Pronunciation.AverageScore = pronWeighted / float64(pronWeight)
	}
	if reviewWeight > 0 {
		s.SRS.AccuracyRate = reviewAccWeighted / float64(reviewWeight)
	}
	if n := len(points); n > 0 {
		s.SRS.ReviewsToday = points[n-1].Reviews
	}
	return s.Normalize()
}

// ═══════════════════════════════════════════════════════════════════════════
// PROVIDER
// ═══════════════════════════════════════════════════════════════════════════

// Provider is the statistics aggregator the engine reads from.
type Provider interface {
	// Snapshot returns the current rolled-up counters for a learner.
	Snapshot(ctx context.Context, userID string) (Snapshot, error)

	// DailySeries returns per-day counters inside r, oldest first.
	DailySeries(ctx context.Context, userID string, r TimeRange) ([]DailyPoint, error)

	// ActiveUsers returns learners with activity since the given instant.
	ActiveUsers(ctx context.Context, since time.Time) ([]string, error)
}
