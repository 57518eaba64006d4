// Package main is the entry point of the learnpulse background worker.
//
// The worker runs the periodic jobs:
//   - analyze_risks: risk analysis and alerting for recently active learners
//   - sweep_alerts: removal of expired alerts
//
// With Redis configured, alerts it raises reach API instances through the
// shared event bus.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alem-hub/learnpulse/config"
	"github.com/alem-hub/learnpulse/internal/app"
	"github.com/alem-hub/learnpulse/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load(os.Getenv("CONFIG_DIR"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.Scheduler.Enabled {
		return fmt.Errorf("scheduler is disabled (SCHEDULER_ENABLED=false), nothing to run")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := app.NewLogger(cfg).With(logger.Component("worker"))
	defer func() { _ = log.Sync() }()

	log.Info("starting learnpulse worker",
		logger.String("env", string(cfg.App.Environment)),
		logger.Bool("debug", cfg.App.Debug),
		logger.String("timezone", cfg.App.Timezone),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. WIRING (database, Redis, event bus, handlers)
	// ─────────────────────────────────────────────────────────────────────────
	application, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	if application.DB == nil {
		log.Warn("worker is running on in-memory statistics; no learner will be analyzed")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	if err := application.StartScheduler(ctx); err != nil {
		_ = application.Close(context.Background())
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	log.Info("learnpulse worker is running",
		logger.Duration("analyze_interval", cfg.Scheduler.AnalyzeRisksInterval),
		logger.Duration("sweep_interval", cfg.Scheduler.SweepAlertsInterval),
		logger.String("sweep_cron", cfg.Scheduler.SweepAlertsCron),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown...", logger.Duration("timeout", cfg.App.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := application.Close(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("shutdown completed successfully")
	return nil
}
