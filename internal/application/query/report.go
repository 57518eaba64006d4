package query

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/alem-hub/learnpulse/internal/domain/analytics"
	"github.com/alem-hub/learnpulse/internal/domain/shared"
	"github.com/alem-hub/learnpulse/internal/domain/stats"
	"github.com/alem-hub/learnpulse/pkg/logger"
	"github.com/alem-hub/learnpulse/pkg/timeutil"
	"github.com/alem-hub/learnpulse/pkg/tracing"
)

// ══════════════════════════════════════════════════════════════════════════════
// GENERATE REPORT QUERY
// Builds an analytics report over a window. Reports are never cached.
// ══════════════════════════════════════════════════════════════════════════════

// LearnerData fetches the inputs of a report. Both calls degrade instead of
// failing: Fetch returns a fallback snapshot, Series reports ok=false.
type LearnerData interface {
	Fetch(ctx context.Context, userID string) (stats.Snapshot, bool)
	Series(ctx context.Context, userID string, r stats.TimeRange) ([]stats.DailyPoint, bool)
}

// GenerateReportQuery requests a report. A zero Range selects the default
// window ending now; a nil MinCorrelation selects the configured minimum.
type GenerateReportQuery struct {
	UserID         string
	Range          stats.TimeRange
	MinCorrelation *float64
}

// Validate validates the query.
func (q GenerateReportQuery) Validate() error {
	if q.UserID == "" {
		return shared.ErrEmptyUserID
	}
	if !q.Range.Start.IsZero() && !q.Range.End.After(q.Range.Start) {
		return shared.ErrInvalidTimeRange
	}
	if q.MinCorrelation != nil && (*q.MinCorrelation < 0 || *q.MinCorrelation > 1) {
		return shared.NewDomainError("analytics", "Generate", shared.ErrValueOutOfRange,
			fmt.Sprintf("min correlation %.2f outside [0,1]", *q.MinCorrelation))
	}
	return nil
}

// ReportResult is a report plus whether any input was unavailable.
type ReportResult struct {
	analytics.Report
	Degraded bool `json:"degraded"`
}

// ReportConfig holds report defaults.
type ReportConfig struct {
	WindowDays     int
	MinCorrelation float64
}

// GenerateReportHandler handles GenerateReportQuery.
type GenerateReportHandler struct {
	data         LearnerData
	generator    *analytics.Generator
	correlations FeatureGate
	clock        timeutil.Clock
	log          *logger.Logger
	cfg          ReportConfig
}

// NewGenerateReportHandler creates a handler. correlations gates the
// correlation section per learner.
func NewGenerateReportHandler(data LearnerData, generator *analytics.Generator, correlations FeatureGate, clock timeutil.Clock, log *logger.Logger, cfg ReportConfig) *GenerateReportHandler {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 7
	}
	if cfg.MinCorrelation <= 0 {
		cfg.MinCorrelation = analytics.DefaultMinCorrelation
	}
	return &GenerateReportHandler{
		data:         data,
		generator:    generator,
		correlations: correlations,
		clock:        clock,
		log:          log.With(logger.Component("report")),
		cfg:          cfg,
	}
}

// Handle executes the query.
func (h *GenerateReportHandler) Handle(ctx context.Context, q GenerateReportQuery) (res *ReportResult, err error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	now := h.clock.Now()
	r := q.Range
	if r.Start.IsZero() {
		r = stats.LastDays(now, h.cfg.WindowDays)
	}
	minCorr := h.cfg.MinCorrelation
	if q.MinCorrelation != nil {
		minCorr = *q.MinCorrelation
	}

	ctx, span := tracing.Start(ctx, "query.GenerateReport",
		attribute.String("user_id", q.UserID),
		attribute.Int("days", r.Days()),
	)
	defer func() { tracing.End(span, err) }()

	live, degraded := h.data.Fetch(ctx, q.UserID)
	current, okCur := h.data.Series(ctx, q.UserID, r)
	baseline, okBase := h.data.Series(ctx, q.UserID, r.Previous())
	degraded = degraded || !okCur || !okBase

	report := h.generator.Generate(analytics.ReportInput{
		UserID:         q.UserID,
		Range:          r,
		Current:        current,
		Baseline:       baseline,
		Live:           live,
		MinCorrelation: minCorr,
	}, now)

	if !h.correlations.enabled(q.UserID) {
		report = withoutCorrelations(report)
	}
	normalizeReport(&report)

	h.log.Debug("report generated",
		logger.UserID(q.UserID),
		logger.Int("trends", len(report.Trends)),
		logger.Int("insights", len(report.Insights)),
		logger.Bool("degraded", degraded),
	)
	return &ReportResult{Report: report, Degraded: degraded}, nil
}

func withoutCorrelations(r analytics.Report) analytics.Report {
	r.Correlations = nil
	kept := make([]analytics.Insight, 0, len(r.Insights))
	for _, in := range r.Insights {
		if in.Source != "correlation" {
			kept = append(kept, in)
		}
	}
	r.Insights = kept
	return r
}

// normalizeReport replaces nil sections with empty ones for stable JSON.
func normalizeReport(r *analytics.Report) {
	if r.Trends == nil {
		r.Trends = []analytics.Trend{}
	}
	if r.Patterns == nil {
		r.Patterns = []analytics.Pattern{}
	}
	if r.Correlations == nil {
		r.Correlations = []analytics.Correlation{}
	}
	if r.Insights == nil {
		r.Insights = []analytics.Insight{}
	}
}
