// Package jobs contains the engine's scheduled jobs.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alem-hub/learnpulse/internal/application/command"
	"github.com/alem-hub/learnpulse/pkg/logger"
	"github.com/alem-hub/learnpulse/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ANALYZE RISKS JOB
// ══════════════════════════════════════════════════════════════════════════════

// ActiveUserSource lists learners with activity since a point in time.
type ActiveUserSource interface {
	ActiveUsers(ctx context.Context, since time.Time) ([]string, error)
}

// LearnerAnalyzer runs the full analysis pipeline for one learner.
type LearnerAnalyzer interface {
	Handle(ctx context.Context, cmd command.AnalyzeRisksCommand) (*command.AnalyzeRisksResult, error)
}

// AnalyzeRisksConfig contains configuration for the analyze risks job.
type AnalyzeRisksConfig struct {
	// ActiveWindow selects learners active within this duration.
	ActiveWindow time.Duration

	// MaxConcurrentUsers bounds parallel analyses.
	MaxConcurrentUsers int

	// Timeout is the maximum duration for one run.
	Timeout time.Duration
}

// DefaultAnalyzeRisksConfig returns default configuration.
func DefaultAnalyzeRisksConfig() AnalyzeRisksConfig {
	return AnalyzeRisksConfig{
		ActiveWindow:       7 * 24 * time.Hour,
		MaxConcurrentUsers: 8,
		Timeout:            5 * time.Minute,
	}
}

// AnalyzeRunStats summarizes one run.
type AnalyzeRunStats struct {
	StartedAt time.Time
	Users     int
	Analyzed  int64
	Failed    int64
	Alerts    int64
	Degraded  int64
	Duration  time.Duration
}

// AnalyzeRisksJob analyzes every recently active learner.
type AnalyzeRisksJob struct {
	users    ActiveUserSource
	analyzer LearnerAnalyzer
	clock    timeutil.Clock
	log      *logger.Logger
	config   AnalyzeRisksConfig

	lastRunStats atomic.Value // AnalyzeRunStats
}

// NewAnalyzeRisksJob creates the job.
func NewAnalyzeRisksJob(users ActiveUserSource, analyzer LearnerAnalyzer, clock timeutil.Clock, log *logger.Logger, config AnalyzeRisksConfig) *AnalyzeRisksJob {
	def := DefaultAnalyzeRisksConfig()
	if config.ActiveWindow <= 0 {
		config.ActiveWindow = def.ActiveWindow
	}
	if config.MaxConcurrentUsers <= 0 {
		config.MaxConcurrentUsers = def.MaxConcurrentUsers
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &AnalyzeRisksJob{
		users:    users,
		analyzer: analyzer,
		clock:    clock,
		log:      log.With(logger.Component("job.analyze_risks")),
		config:   config,
	}
}

// Name returns the job name.
func (j *AnalyzeRisksJob) Name() string { return "analyze_risks" }

// Description returns the job description.
func (j *AnalyzeRisksJob) Description() string {
	return "Analyzes learning risks and raises alerts for recently active learners"
}

// Run executes the job. Per-learner failures are counted, not returned;
// the run fails only when no learner could be analyzed.
func (j *AnalyzeRisksJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	now := j.clock.Now()
	began := time.Now()
	stats := AnalyzeRunStats{StartedAt: now}

	users, err := j.users.ActiveUsers(ctx, now.Add(-j.config.ActiveWindow))
	if err != nil {
		return fmt.Errorf("list active learners: %w", err)
	}
	stats.Users = len(users)

	var analyzed, failed, alerts, degraded atomic.Int64
	var g errgroup.Group
	g.SetLimit(j.config.MaxConcurrentUsers)

	for _, userID := range users {
		if ctx.Err() != nil {
			break
		}
		userID := userID
		g.Go(func() error {
			res, err := j.analyzer.Handle(ctx, command.AnalyzeRisksCommand{UserID: userID})
			if err != nil {
				failed.Add(1)
				j.log.Warn("learner analysis failed", logger.UserID(userID), logger.Err(err))
				return nil
			}
			analyzed.Add(1)
			alerts.Add(int64(len(res.Alerts)))
			if res.Degraded {
				degraded.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	stats.Analyzed = analyzed.Load()
	stats.Failed = failed.Load()
	stats.Alerts = alerts.Load()
	stats.Degraded = degraded.Load()
	stats.Duration = time.Since(began)
	j.lastRunStats.Store(stats)

	j.log.Info("risk analysis run finished",
		logger.Int("users", stats.Users),
		logger.Int64("analyzed", stats.Analyzed),
		logger.Int64("failed", stats.Failed),
		logger.Int64("alerts", stats.Alerts),
		logger.Int64("degraded", stats.Degraded),
		logger.Latency(stats.Duration),
	)

	if err := ctx.Err(); err != nil && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("analysis run timed out after %d of %d learners: %w", stats.Analyzed, stats.Users, err)
	}
	if stats.Users > 0 && stats.Analyzed == 0 {
		return fmt.Errorf("all %d learner analyses failed", stats.Users)
	}
	return nil
}

// LastRunStats returns statistics from the last run.
func (j *AnalyzeRisksJob) LastRunStats() (AnalyzeRunStats, bool) {
	s, ok := j.lastRunStats.Load().(AnalyzeRunStats)
	return s, ok
}

// ══════════════════════════════════════════════════════════════════════════════
// SWEEP ALERTS JOB
// ══════════════════════════════════════════════════════════════════════════════

// AlertSweeper removes expired alerts.
type AlertSweeper interface {
	Handle(ctx context.Context) (*command.ClearExpiredAlertsResult, error)
}

// SweepAlertsJob clears expired alerts.
type SweepAlertsJob struct {
	sweeper AlertSweeper
	log     *logger.Logger
	removed atomic.Int64
}

// NewSweepAlertsJob creates the job.
func NewSweepAlertsJob(sweeper AlertSweeper, log *logger.Logger) *SweepAlertsJob {
	if log == nil {
		log = logger.NewNop()
	}
	return &SweepAlertsJob{sweeper: sweeper, log: log.With(logger.Component("job.sweep_alerts"))}
}

// Name returns the job name.
func (j *SweepAlertsJob) Name() string { return "sweep_alerts" }

// Description returns the job description.
func (j *SweepAlertsJob) Description() string {
	return "Removes alerts past their expiry"
}

// Run executes the job.
func (j *SweepAlertsJob) Run(ctx context.Context) error {
	res, err := j.sweeper.Handle(ctx)
	if err != nil {
		return fmt.Errorf("sweep alerts: %w", err)
	}
	j.removed.Add(int64(res.Count))
	return nil
}

// TotalRemoved returns the number of alerts removed since start.
func (j *SweepAlertsJob) TotalRemoved() int64 {
	return j.removed.Load()
}
