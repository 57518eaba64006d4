package command

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/alem-hub/learnpulse/internal/domain/alert"
	"github.com/alem-hub/learnpulse/internal/domain/analytics"
	"github.com/alem-hub/learnpulse/internal/domain/risk"
	"github.com/alem-hub/learnpulse/internal/domain/shared"
	"github.com/alem-hub/learnpulse/internal/domain/stats"
	"github.com/alem-hub/learnpulse/internal/domain/strategy"
	"github.com/alem-hub/learnpulse/pkg/logger"
	"github.com/alem-hub/learnpulse/pkg/timeutil"
	"github.com/alem-hub/learnpulse/pkg/tracing"
)

// ══════════════════════════════════════════════════════════════════════════════
// ANALYZE RISKS COMMAND
// Runs the learner pipeline: snapshot, trend evidence, risks, strategies and
// alerts. Concurrent requests for the same learner share one run.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultReportWindowDays is the trend window used as plateau evidence.
const DefaultReportWindowDays = 7

// AnalyzeRisksCommand requests a full analysis of one learner.
type AnalyzeRisksCommand struct {
	UserID string
}

// Validate validates the command.
func (c AnalyzeRisksCommand) Validate() error {
	if c.UserID == "" {
		return shared.ErrEmptyUserID
	}
	return nil
}

// AnalyzeRisksResult is the outcome of one pipeline run.
type AnalyzeRisksResult struct {
	UserID     string                          `json:"userId"`
	Risks      []risk.LearningRisk             `json:"risks"`
	Strategies []strategy.InterventionStrategy `json:"strategies"`
	Alerts     []alert.PredictiveAlert         `json:"alerts"`
	Suppressed []risk.RiskType                 `json:"suppressed"`

	// Degraded is true when the statistics provider failed. Risks then come
	// from the last known snapshot, or are empty for an unseen learner.
	Degraded   bool      `json:"degraded"`
	AnalyzedAt time.Time `json:"analyzedAt"`
}

// AnalyzeRisksConfig tunes the evidence window.
type AnalyzeRisksConfig struct {
	ReportWindowDays int
	TrendEpsilonPct  float64
}

// AnalyzeRisksHandler handles AnalyzeRisksCommand.
type AnalyzeRisksHandler struct {
	snapshots  *SnapshotSource
	analyzer   *risk.Analyzer
	trends     analytics.TrendAnalyzer
	strategies *strategy.Generator
	alerts     *CreateAlertsHandler
	publisher  shared.EventPublisher
	clock      timeutil.Clock
	log        *logger.Logger
	windowDays int

	group singleflight.Group
}

// NewAnalyzeRisksHandler creates a handler.
func NewAnalyzeRisksHandler(
	snapshots *SnapshotSource,
	analyzer *risk.Analyzer,
	strategies *strategy.Generator,
	alerts *CreateAlertsHandler,
	publisher shared.EventPublisher,
	clock timeutil.Clock,
	log *logger.Logger,
	cfg AnalyzeRisksConfig,
) *AnalyzeRisksHandler {
	if publisher == nil {
		publisher = shared.NopPublisher{}
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.ReportWindowDays <= 0 {
		cfg.ReportWindowDays = DefaultReportWindowDays
	}
	return &AnalyzeRisksHandler{
		snapshots:  snapshots,
		analyzer:   analyzer,
		trends:     analytics.NewTrendAnalyzer(cfg.TrendEpsilonPct),
		strategies: strategies,
		alerts:     alerts,
		publisher:  publisher,
		clock:      clock,
		log:        log.With(logger.Component("analyze_risks")),
		windowDays: cfg.ReportWindowDays,
	}
}

// Risks analyzes a learner without generating strategies or alerts. It
// publishes nothing.
func (h *AnalyzeRisksHandler) Risks(ctx context.Context, userID string) ([]risk.LearningRisk, error) {
	if userID == "" {
		return nil, shared.ErrEmptyUserID
	}
	risks, _ := h.detect(ctx, userID)
	return risks, nil
}

// Handle runs the full pipeline.
func (h *AnalyzeRisksHandler) Handle(ctx context.Context, cmd AnalyzeRisksCommand) (*AnalyzeRisksResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	v, err, dup := h.group.Do(cmd.UserID, func() (any, error) {
		return h.run(ctx, cmd.UserID)
	})
	if err != nil {
		return nil, err
	}
	if dup {
		h.log.Debug("analysis shared with concurrent caller", logger.UserID(cmd.UserID))
	}
	return v.(*AnalyzeRisksResult), nil
}

func (h *AnalyzeRisksHandler) run(ctx context.Context, userID string) (res *AnalyzeRisksResult, err error) {
	ctx, span := tracing.Start(ctx, "command.AnalyzeRisks", attribute.String("user_id", userID))
	defer func() { tracing.End(span, err) }()

	started := time.Now()
	risks, degraded := h.detect(ctx, userID)
	for _, r := range risks {
		event := shared.NewRiskDetectedEvent(r.ID, userID, string(r.Type), string(r.Severity), r.Probability, r.DetectedAt)
		if err := h.publisher.Publish(event); err != nil {
			h.log.Warn("failed to publish risk.detected", logger.UserID(userID), logger.Err(err))
		}
	}
	strategies := h.strategies.Generate(risks)
	if strategies == nil {
		strategies = []strategy.InterventionStrategy{}
	}

	created, err := h.alerts.Handle(ctx, CreateAlertsCommand{
		UserID:     userID,
		Risks:      risks,
		Strategies: strategies,
	})
	if err != nil {
		return nil, err
	}

	h.log.Info("learner analyzed",
		logger.UserID(userID),
		logger.Int("risks", len(risks)),
		logger.Int("alerts", len(created.Alerts)),
		logger.Bool("degraded", degraded),
		logger.Latency(time.Since(started)),
	)

	return &AnalyzeRisksResult{
		UserID:     userID,
		Risks:      risks,
		Strategies: strategies,
		Alerts:     created.Alerts,
		Suppressed: created.Suppressed,
		Degraded:   degraded,
		AnalyzedAt: h.clock.Now(),
	}, nil
}

// detect fetches inputs and runs the risk models. It never fails: provider
// errors degrade to the last known snapshot, and a learner never seen before
// has no risks.
func (h *AnalyzeRisksHandler) detect(ctx context.Context, userID string) ([]risk.LearningRisk, bool) {
	snap, degraded, err := h.snapshots.Get(ctx, userID)
	if err != nil {
		return []risk.LearningRisk{}, true
	}
	evidence := h.evidence(ctx, userID)

	risks := h.analyzer.Analyze(userID, snap, evidence)
	if risks == nil {
		risks = []risk.LearningRisk{}
	}
	return risks, degraded
}

// evidence compares the latest window against the one before it. Without
// any daily data there is no trend evidence.
func (h *AnalyzeRisksHandler) evidence(ctx context.Context, userID string) risk.Evidence {
	now := h.clock.Now()
	window := stats.LastDays(now, h.windowDays)

	current, ok := h.snapshots.Series(ctx, userID, window)
	if !ok {
		return risk.Evidence{}
	}
	baseline, ok := h.snapshots.Series(ctx, userID, window.Previous())
	if !ok || (len(current) == 0 && len(baseline) == 0) {
		return risk.Evidence{}
	}

	trends := h.trends.Analyze(
		stats.Rollup(userID, current, now),
		stats.Rollup(userID, baseline, now),
		window.Days(),
	)
	return risk.Evidence{
		StableTrendRatio: analytics.StableRatio(trends),
		HasTrends:        len(trends) > 0,
	}
}
