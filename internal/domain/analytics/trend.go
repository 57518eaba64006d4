// Package analytics computes period reports for a learner: per-metric trends
// against the previous period, named behavioral patterns, metric-pair
// correlations and the insights derived from them.
//
// Everything here is a pure function of its inputs. Fetching the daily series
// and the live snapshot is the caller's job.
package analytics

import (
	"math"

	"github.com/alem-hub/learnpulse/internal/domain/stats"
)

// DefaultStableEpsilonPct is the |change%| under which a metric is stable.
const DefaultStableEpsilonPct = 5.0

// Direction classifies a trend.
type Direction string

const (
	Increasing Direction = "increasing"
	Decreasing Direction = "decreasing"
	Stable     Direction = "stable"
)

// Trend compares a metric over the current period to the previous one.
type Trend struct {
	Metric        stats.Metric `json:"metric"`
	Direction     Direction    `json:"direction"`
	CurrentValue  float64      `json:"currentValue"`
	BaselineValue float64      `json:"baselineValue"`
	ChangePercent float64      `json:"changePercent"`
	Confidence    float64      `json:"confidence"`
}

// TrendAnalyzer classifies per-metric movement.
type TrendAnalyzer struct {
	EpsilonPct float64
}

// NewTrendAnalyzer creates an analyzer; eps <= 0 selects the default.
func NewTrendAnalyzer(eps float64) TrendAnalyzer {
	if eps <= 0 {
		eps = DefaultStableEpsilonPct
	}
	return TrendAnalyzer{EpsilonPct: eps}
}

// Analyze returns one trend per metric in stats.AllMetrics order. days is the
// number of days each period covers and feeds the confidence.
func (a TrendAnalyzer) Analyze(current, baseline stats.Snapshot, days int) []Trend {
	trends := make([]Trend, 0, len(stats.AllMetrics()))
	for _, m := range stats.AllMetrics() {
		cur := m.SnapshotValue(current)
		base := m.SnapshotValue(baseline)
		change := changePercent(cur, base)

		trends = append(trends, Trend{
			Metric:        m,
			Direction:     a.classify(change),
			CurrentValue:  cur,
			BaselineValue: base,
			ChangePercent: change,
			Confidence:    trendConfidence(change, days),
		})
	}
	return trends
}

func (a TrendAnalyzer) classify(change float64) Direction {
	switch {
	case math.Abs(change) < a.EpsilonPct:
		return Stable
	case change > 0:
		return Increasing
	default:
		return Decreasing
	}
}

// changePercent is the relative change in percent. A move away from a zero
// baseline counts as +/-100%.
func changePercent(cur, base float64) float64 {
	if base == 0 {
		switch {
		case cur > 0:
			return 100
		case cur < 0:
			return -100
		default:
			return 0
		}
	}
	return (cur - base) / math.Abs(base) * 100
}

// trendConfidence grows with the period length (saturating at two weeks)
// and with the size of the move (saturating at 50%).
func trendConfidence(change float64, days int) float64 {
	coverage := math.Min(1, float64(days)/14)
	magnitude := math.Min(1, math.Abs(change)/50)
	return round2(0.4 + 0.4*coverage + 0.2*magnitude)
}

// StableRatio is the fraction of trends classified stable, 0 when empty.
func StableRatio(trends []Trend) float64 {
	if len(trends) == 0 {
		return 0
	}
	n := 0
	for _, t := range trends {
		if t.Direction == Stable {
			n++
		}
	}
	return float64(n) / float64(len(trends))
}

// Find returns the trend for metric m.
func Find(trends []Trend, m stats.Metric) (Trend, bool) {
	for _, t := range trends {
		if t.Metric == m {
			return t, true
		}
	}
	return Trend{}, false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
