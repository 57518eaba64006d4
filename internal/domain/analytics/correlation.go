package analytics

import (
	"math"

	"github.com/alem-hub/learnpulse/internal/domain/stats"
)

// minCorrelationSamples is the smallest series length worth correlating.
const minCorrelationSamples = 3

// Correlation pairs two daily metrics.
type Correlation struct {
	MetricA      stats.Metric `json:"metricA"`
	MetricB      stats.Metric `json:"metricB"`
	Coefficient  float64      `json:"coefficient"`
	Significance float64      `json:"significance"`
	SampleSize   int          `json:"sampleSize"`
}

// CorrelationFinder computes Pearson correlations between daily metrics.
type CorrelationFinder struct{}

// Find correlates every pair of metrics with non-zero variance.
func (CorrelationFinder) Find(series []stats.DailyPoint) []Correlation {
	n := len(series)
	if n < minCorrelationSamples {
		return nil
	}

	metrics := stats.AllMetrics()
	values := make(map[stats.Metric][]float64, len(metrics))
	for _, m := range metrics {
		values[m] = m.Values(series)
	}

	var out []Correlation
	for i := 0; i < len(metrics); i++ {
		for j := i + 1; j < len(metrics); j++ {
			r, ok := pearson(values[metrics[i]], values[metrics[j]])
			if !ok {
				continue
			}
			out = append(out, Correlation{
				MetricA:      metrics[i],
				MetricB:      metrics[j],
				Coefficient:  r,
				Significance: significance(r, n),
				SampleSize:   n,
			})
		}
	}
	return out
}

// Relevant keeps correlations whose |coefficient| is at least minAbs.
func Relevant(all []Correlation, minAbs float64) []Correlation {
	out := make([]Correlation, 0, len(all))
	for _, c := range all {
		if math.Abs(c.Coefficient) >= minAbs {
			out = append(out, c)
		}
	}
	return out
}

// pearson returns the correlation coefficient clamped to [-1, 1]. ok is
// false when either series has zero variance.
func pearson(x, y []float64) (float64, bool) {
	n := float64(len(x))
	var sx, sy float64
	for i := range x {
		sx += x[i]
		sy += y[i]
	}
	mx, my := sx/n, sy/n

	var cov, vx, vy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0, false
	}
	r := cov / math.Sqrt(vx*vy)
	return math.Max(-1, math.Min(1, r)), true
}

// significance converts r to a two-sided confidence in [0, 1] using the
// t statistic and a normal approximation.
func significance(r float64, n int) float64 {
	if n <= 2 {
		return 0
	}
	if math.Abs(r) >= 1 {
		return 1
	}
	t := math.Abs(r) * math.Sqrt(float64(n-2)/(1-r*r))
	return math.Max(0, math.Min(1, 1-math.Erfc(t/math.Sqrt2)))
}
