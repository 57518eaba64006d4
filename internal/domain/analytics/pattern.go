package analytics

import (
	"math"

	"github.com/alem-hub/learnpulse/internal/domain/stats"
	"github.com/alem-hub/learnpulse/pkg/timeutil"
)

// Impact tags a pattern or insight as good, bad or neutral for the learner.
type Impact string

const (
	ImpactPositive Impact = "positive"
	ImpactNegative Impact = "negative"
	ImpactNeutral  Impact = "neutral"
)

// Pattern names.
const (
	PatternRescueDependency   = "frequent-rescue-dependency"
	PatternFocusReliance      = "focus-mode-reliance"
	PatternConsistentPractice = "consistent-daily-practice"
	PatternWeekendLearner     = "weekend-learner"
	PatternHighAccuracy       = "high-accuracy-performer"
	PatternReviewBacklog      = "review-backlog"
	PatternShortSessions      = "short-session-habit"
)

// Pattern is a reusable behavioral signature found in a learner's data.
type Pattern struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Impact          Impact   `json:"impact"`
	Frequency       int      `json:"frequency"`
	Confidence      float64  `json:"confidence"`
	Recommendations []string `json:"recommendations"`
}

// PatternDetector matches fixed behavioral signatures.
type PatternDetector struct{}

// Detect evaluates every signature against the period snapshot and its
// daily series. Patterns come back in a fixed order.
func (PatternDetector) Detect(s stats.Snapshot, series []stats.DailyPoint) []Pattern {
	s = s.Normalize()
	var out []Pattern

	if ratio := s.RescueTriggerRatio(); ratio > 0.3 {
		out = append(out, Pattern{
			Name:        PatternRescueDependency,
			Description: "Rescue mode is triggered in a large share of sessions",
			Impact:      ImpactNegative,
			Frequency:   s.RescueMode.Triggered,
			Confidence:  round2(math.Min(1, ratio)),
			Recommendations: []string{
				"Lower content difficulty until rescue use drops",
				"Add a short warm-up review before new material",
			},
		})
	}

	if freq := s.FocusTriggerFrequency(); freq > 0.3 {
		out = append(out, Pattern{
			Name:        PatternFocusReliance,
			Description: "Focus mode is needed to keep most sessions on track",
			Impact:      ImpactNegative,
			Frequency:   s.FocusMode.Triggered,
			Confidence:  round2(math.Min(1, freq)),
			Recommendations: []string{
				"Shorten sessions and add breaks",
				"Schedule practice at the learner's most alert hours",
			},
		})
	}

	if len(series) >= 5 {
		active, weekend, total := 0, 0, 0
		for _, p := range series {
			if p.Sessions > 0 {
				active++
			}
			if timeutil.IsWeekend(p.Date) {
				weekend += p.Sessions
			}
			total += p.Sessions
		}

		if share := float64(active) / float64(len(series)); share >= 0.8 {
			out = append(out, Pattern{
				Name:            PatternConsistentPractice,
				Description:     "Practice happens on almost every day of the period",
				Impact:          ImpactPositive,
				Frequency:       active,
				Confidence:      round2(share),
				Recommendations: []string{"Keep the daily routine; consider gradually longer sessions"},
			})
		}

		if total > 0 {
			if share := float64(weekend) / float64(total); share > 0.6 {
				out = append(out, Pattern{
					Name:            PatternWeekendLearner,
					Description:     "Most sessions happen on weekends",
					Impact:          ImpactNeutral,
					Frequency:       weekend,
					Confidence:      round2(share),
					Recommendations: []string{"Add short weekday reviews to reduce forgetting between weekends"},
				})
			}
		}
	}

	if s.Overall.OverallAccuracy >= 85 && s.Overall.TotalSessions >= 10 {
		out = append(out, Pattern{
			Name:            PatternHighAccuracy,
			Description:     "Accuracy stays high across many sessions",
			Impact:          ImpactPositive,
			Frequency:       s.Overall.TotalSessions,
			Confidence:      round2(s.Overall.OverallAccuracy / 100),
			Recommendations: []string{"Introduce more challenging material"},
		})
	}

	if outstanding := s.SRS.CardsTotal - s.SRS.GraduatedCards; outstanding > 50 && s.SRS.ReviewsToday < 10 {
		out = append(out, Pattern{
			Name:            PatternReviewBacklog,
			Description:     "Spaced-repetition cards are piling up faster than they are reviewed",
			Impact:          ImpactNegative,
			Frequency:       outstanding,
			Confidence:      round2(math.Min(1, float64(outstanding)/200)),
			Recommendations: []string{"Pause new cards and clear the review queue"},
		})
	}

	if s.Overall.TotalSessions >= 5 && s.AverageSessionMinutes() < 10 {
		out = append(out, Pattern{
			Name:            PatternShortSessions,
			Description:     "Sessions are usually shorter than ten minutes",
			Impact:          ImpactNegative,
			Frequency:       s.Overall.TotalSessions,
			Confidence:      round2(1 - s.AverageSessionMinutes()/10),
			Recommendations: []string{"Set a minimum session goal of ten minutes"},
		})
	}

	return out
}
