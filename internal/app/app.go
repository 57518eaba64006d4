// Package app assembles the engine from configuration. Both binaries share
// it: the API serves HTTP, the worker runs scheduled jobs.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alem-hub/learnpulse/config"
	"github.com/alem-hub/learnpulse/internal/application/command"
	"github.com/alem-hub/learnpulse/internal/application/eventhandler"
	"github.com/alem-hub/learnpulse/internal/application/query"
	"github.com/alem-hub/learnpulse/internal/domain/alert"
	"github.com/alem-hub/learnpulse/internal/domain/analytics"
	"github.com/alem-hub/learnpulse/internal/domain/intervention"
	"github.com/alem-hub/learnpulse/internal/domain/path"
	"github.com/alem-hub/learnpulse/internal/domain/profile"
	"github.com/alem-hub/learnpulse/internal/domain/risk"
	"github.com/alem-hub/learnpulse/internal/domain/shared"
	"github.com/alem-hub/learnpulse/internal/domain/stats"
	"github.com/alem-hub/learnpulse/internal/domain/strategy"
	"github.com/alem-hub/learnpulse/internal/infrastructure/messaging"
	"github.com/alem-hub/learnpulse/internal/infrastructure/metrics"
	"github.com/alem-hub/learnpulse/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/learnpulse/internal/infrastructure/persistence/postgres"
	"github.com/alem-hub/learnpulse/internal/infrastructure/persistence/redis"
	"github.com/alem-hub/learnpulse/internal/infrastructure/scheduler"
	"github.com/alem-hub/learnpulse/internal/infrastructure/scheduler/jobs"
	httpapi "github.com/alem-hub/learnpulse/internal/interface/http"
	"github.com/alem-hub/learnpulse/internal/interface/http/handlers"
	"github.com/alem-hub/learnpulse/pkg/circuitbreaker"
	"github.com/alem-hub/learnpulse/pkg/logger"
	"github.com/alem-hub/learnpulse/pkg/retry"
	"github.com/alem-hub/learnpulse/pkg/timeutil"
	"github.com/alem-hub/learnpulse/pkg/tracing"
	"github.com/alem-hub/learnpulse/pkg/ttlcache"
)

// ══════════════════════════════════════════════════════════════════════════════
// APPLICATION
// ══════════════════════════════════════════════════════════════════════════════

// EventBus is the bus both transports implement.
type EventBus interface {
	shared.EventBus
	Wait()
	Close() error
}

// App holds every wired component.
type App struct {
	Config  *config.Config
	Log     *logger.Logger
	Clock   timeutil.Clock
	Metrics *metrics.Metrics

	DB    *postgres.Connection // nil without DATABASE_URL
	Redis *redis.Cache         // nil when disabled or unreachable
	Bus   EventBus

	Alerts    *alert.Manager
	Executor  *intervention.Executor
	Scheduler *scheduler.Scheduler
	Health    *handlers.CompositeHealthChecker

	deps     httpapi.Dependencies
	stats    stats.Provider
	tracing  tracing.ShutdownFunc
	closed   bool
	schedRun bool
}

// New connects backends and wires the application. On error every
// resource opened so far is released.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (_ *App, err error) {
	if log == nil {
		log = logger.NewNop()
	}
	a := &App{
		Config:  cfg,
		Log:     log,
		Clock:   timeutil.RealClock{},
		Metrics: metrics.New(),
		Health:  handlers.NewCompositeHealthChecker(cfg.App.Version),
	}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 1. TRACING
	// ─────────────────────────────────────────────────────────────────────────
	a.tracing, err = tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.Observability.TracingEnabled,
		ServiceName: cfg.App.Name,
		Environment: string(cfg.App.Environment),
		Version:     cfg.App.Version,
		Endpoint:    cfg.Observability.TracingEndpoint,
		Insecure:    !cfg.IsProduction(),
		SampleRate:  cfg.Observability.TracingSampleRate,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. BACKENDS
	// ─────────────────────────────────────────────────────────────────────────
	if err := a.connectPostgres(ctx); err != nil {
		return nil, err
	}
	a.connectRedis(ctx)
	a.Bus = a.newEventBus()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DOMAIN & APPLICATION SERVICES
	// ─────────────────────────────────────────────────────────────────────────
	if err := a.wire(ctx); err != nil {
		return nil, err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	if err := a.buildScheduler(); err != nil {
		return nil, err
	}
	return a, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// BACKENDS
// ══════════════════════════════════════════════════════════════════════════════

func (a *App) connectPostgres(ctx context.Context) error {
	dbc := a.Config.Database
	if dbc.URL == "" {
		a.Log.Warn("DATABASE_URL not set, using in-memory storage")
		return nil
	}

	a.Log.Info("connecting to database...")
	pcfg := postgres.Config{
		URL:               dbc.URL,
		MaxConns:          int32(dbc.MaxOpenConns),
		MinConns:          int32(dbc.MaxIdleConns),
		MaxConnLifetime:   dbc.ConnMaxLifetime,
		MaxConnIdleTime:   dbc.ConnMaxIdleTime,
		HealthCheckPeriod: time.Minute,
	}
	conn, err := retry.DoValue(ctx, retry.DatabaseRetrier(), func(ctx context.Context) (*postgres.Connection, error) {
		return postgres.NewConnection(ctx, pcfg)
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	a.DB = conn
	a.Log.Info("database connection established")

	if dbc.AutoMigrate {
		if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		a.Log.Info("database schema is up to date")
	}

	a.Health.AddCheck("postgres", handlers.NewPingCheck(conn))
	return nil
}

// connectRedis is best effort: without Redis the path cache, profiles and
// the event bus stay in process.
func (a *App) connectRedis(ctx context.Context) {
	rc := a.Config.Redis
	if rc.Disabled {
		a.Log.Info("redis disabled")
		return
	}

	cfg := redis.DefaultConfig()
	cfg.URL = rc.URL
	if rc.Host != "" {
		cfg.Host = rc.Host
	}
	if rc.Port > 0 {
		cfg.Port = rc.Port
	}
	cfg.Password = rc.Password
	cfg.DB = rc.DB
	if rc.PoolSize > 0 {
		cfg.PoolSize = rc.PoolSize
	}
	if rc.MinIdleConns > 0 {
		cfg.MinIdleConns = rc.MinIdleConns
	}
	if rc.DialTimeout > 0 {
		cfg.DialTimeout = rc.DialTimeout
	}
	if rc.ReadTimeout > 0 {
		cfg.ReadTimeout = rc.ReadTimeout
	}
	if rc.WriteTimeout > 0 {
		cfg.WriteTimeout = rc.WriteTimeout
	}

	a.Log.Info("connecting to Redis...", logger.String("addr", cfg.Addr()))
	cache, err := redis.NewCache(ctx, cfg)
	if err != nil {
		a.Log.Warn("failed to connect to Redis, falling back to in-process state", logger.Err(err))
		return
	}
	a.Redis = cache
	a.Health.AddOptionalCheck("redis", handlers.NewPingCheck(cache))
	a.Log.Info("Redis connection established")
}

func (a *App) newEventBus() EventBus {
	local := messaging.DefaultInMemoryEventBusConfig()
	local.Logger = a.Log

	if a.Redis != nil {
		bus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         messaging.NewGoRedisClient(a.Redis.Client()),
			LocalBusConfig: local,
			Logger:         a.Log,
		})
		if err == nil {
			a.Log.Info("using Redis event bus")
			return bus
		}
		a.Log.Warn("redis event bus unavailable, using in-memory bus", logger.Err(err))
	}
	return messaging.NewInMemoryEventBus(local)
}

// ══════════════════════════════════════════════════════════════════════════════
// WIRING
// ══════════════════════════════════════════════════════════════════════════════

func (a *App) wire(ctx context.Context) error {
	cfg := a.Config
	eng := cfg.Engine
	flags := cfg.Features
	if flags == nil {
		flags = config.NewFeatureFlags(nil)
	}
	log := a.Log

	// Storage
	var (
		interventions intervention.Repository
		profiles      profile.Store
		archive       *postgres.AlertArchive
	)
	switch {
	case a.DB != nil:
		a.stats = postgres.NewStatsProvider(a.DB.Pool())
		interventions = postgres.NewInterventionRepository(a.DB.Pool())
		profiles = postgres.NewProfileStore(a.DB.Pool())
		archive = postgres.NewAlertArchive(a.DB.Pool())
	default:
		a.stats = memory.NewStatsProvider()
		interventions = memory.NewInterventionRepository()
		profiles = memory.NewProfileStore()
		if a.Redis != nil {
			profiles = redis.NewProfileStore(a.Redis, 30*24*time.Hour)
		}
	}

	retrier := retry.StatsProviderRetrier(eng.ProviderMaxRetries, func(attempt int, err error, wait time.Duration) {
		log.Warn("statistics provider call failed, retrying",
			logger.Int("attempt", attempt), logger.Err(err), logger.Duration("wait", wait))
	})
	breaker := circuitbreaker.StatsProviderBreaker(func(name string, from, to circuitbreaker.State) {
		log.Warn("circuit breaker state changed",
			logger.String("breaker", name), logger.String("from", from.String()), logger.String("to", to.String()))
	}, circuitbreaker.WithClock(a.Clock))
	snapshots := command.NewSnapshotSource(a.stats, retrier, eng.ProviderTimeout, log).WithBreaker(breaker)

	// Domain services
	analyzer := risk.NewAnalyzer(
		risk.NewRegistry(risk.Config{ExpectedDailyReviews: eng.ExpectedDailyReviews}),
		a.Clock, uuidIDs("risk"),
	).WithFilter(func(userID string, t risk.RiskType) bool {
		return flags.IsEnabledFor(config.RiskFeature(string(t)), userID)
	})
	generator := strategy.NewGenerator(strategy.DefaultTemplates(), a.Clock, uuidIDs("strategy"),
		func(r risk.LearningRisk, reason string) {
			log.Debug("no strategy for risk",
				logger.UserID(r.UserID), logger.RiskType(string(r.Type)), logger.String("reason", reason))
		})

	a.Alerts = alert.NewManager(a.Clock, uuidIDs("alert"), eng.AlertHistoryCap).
		WithAutoExecutePolicy(func(userID string) bool {
			return flags.IsEnabledFor(config.FeatureAlertsAutoExecute, userID)
		})
	a.Executor = intervention.NewExecutor(interventions, a.Alerts, a.Clock, uuidIDs("exec"))

	if archive != nil {
		open, dismissed, err := archive.LoadOpen(ctx, a.Clock.Now())
		if err != nil {
			return fmt.Errorf("restore alerts: %w", err)
		}
		n := a.Alerts.Restore(open, dismissed)
		log.Info("alert state restored", logger.Int("alerts", n), logger.Int("dismissed", len(dismissed)))
	}

	// Subscribers
	if archive != nil {
		if err := eventhandler.NewAlertArchiveHandler(archive, 0, log).Register(a.Bus); err != nil {
			return fmt.Errorf("register alert archive: %w", err)
		}
	}
	if err := eventhandler.NewMetricsHandler(a.Metrics).Register(a.Bus); err != nil {
		return fmt.Errorf("register metrics handler: %w", err)
	}
	if a.Redis != nil {
		if err := eventhandler.NewAlertReplicator(a.Alerts, log).Register(a.Bus); err != nil {
			return fmt.Errorf("register alert replicator: %w", err)
		}
	}

	// Commands
	createAlerts := command.NewCreateAlertsHandler(a.Alerts, a.Bus, eng.SuppressDuplicateAlerts, log)
	analyze := command.NewAnalyzeRisksHandler(snapshots, analyzer, generator, createAlerts, a.Bus, a.Clock, log,
		command.AnalyzeRisksConfig{
			ReportWindowDays: eng.ReportWindowDays,
			TrendEpsilonPct:  eng.TrendStableEpsilonPct,
		})
	analyzeProfile := command.NewAnalyzeProfileHandler(snapshots, profiles, a.Bus, a.Clock, log)

	// Queries
	pathCache := ttlcache.New[path.OptimizedLearningPath](a.pathBackend(), eng.PathCacheTTL, a.Clock)
	report := query.NewGenerateReportHandler(snapshots,
		analytics.NewGenerator(eng.TrendStableEpsilonPct, uuidIDs("report")),
		gate(flags, config.FeatureReportCorrelations), a.Clock, log,
		query.ReportConfig{WindowDays: eng.ReportWindowDays, MinCorrelation: eng.CorrelationMinCoefficient})
	paths := query.NewGetOptimizedPathHandler(pathCache, analyzeProfile,
		path.NewOptimizer(eng.PathCacheTTL, uuidIDs("path")),
		gate(flags, config.FeaturePathAdaptiveAdjustments), a.Bus, a.Metrics, a.Clock, log)

	a.deps = httpapi.Dependencies{
		AnalyzeRisks:        analyze,
		DismissAlert:        command.NewDismissAlertHandler(a.Alerts, a.Bus, a.Clock, log),
		ClearExpiredAlerts:  command.NewClearExpiredAlertsHandler(a.Alerts, a.Bus, a.Clock, log),
		ExecuteIntervention: command.NewExecuteInterventionHandler(a.Executor, a.Bus, a.Clock, log),
		UpdateIntervention:  command.NewUpdateInterventionHandler(a.Executor, a.Bus, a.Clock, log),
		AnalyzeProfile:      analyzeProfile,
		VisibleAlerts:       query.NewGetVisibleAlertsHandler(a.Alerts),
		Interventions:       query.NewGetActiveInterventionsHandler(a.Executor),
		Report:              report,
		Path:                paths,
		HealthChecker:       a.Health,
		HTTPObserver:        a.Metrics,
		Logger:              log,
	}
	if cfg.Observability.MetricsEnabled {
		a.deps.MetricsHandler = a.Metrics.Handler()
	}
	return nil
}

func (a *App) pathBackend() ttlcache.Backend[path.OptimizedLearningPath] {
	if a.Redis != nil {
		return redis.NewBackend[path.OptimizedLearningPath](a.Redis, "learnpulse:path:", a.Clock)
	}
	return ttlcache.NewMemoryBackend[path.OptimizedLearningPath]()
}

func (a *App) buildScheduler() error {
	sc := a.Config.Scheduler
	a.Scheduler = scheduler.New(scheduler.Config{
		Logger:   a.Log,
		Clock:    a.Clock,
		Observer: a.Metrics,
	})

	analyzeJob := jobs.NewAnalyzeRisksJob(a.stats, a.deps.AnalyzeRisks, a.Clock, a.Log, jobs.AnalyzeRisksConfig{
		ActiveWindow:       sc.ActiveWindow,
		MaxConcurrentUsers: sc.MaxConcurrentUsers,
		Timeout:            sc.JobTimeout,
	})
	if err := a.Scheduler.Register(analyzeJob, scheduler.Every(sc.AnalyzeRisksInterval)); err != nil {
		return fmt.Errorf("register %s: %w", analyzeJob.Name(), err)
	}

	var sweep scheduler.Schedule = scheduler.Every(sc.SweepAlertsInterval)
	if sc.SweepAlertsCron != "" {
		cron, err := scheduler.ParseCron(sc.SweepAlertsCron, a.Config.App.Location)
		if err != nil {
			return fmt.Errorf("SCHEDULER_SWEEP_CRON: %w", err)
		}
		sweep = cron
	}
	sweepJob := jobs.NewSweepAlertsJob(a.deps.ClearExpiredAlerts, a.Log)
	if err := a.Scheduler.Register(sweepJob, sweep); err != nil {
		return fmt.Errorf("register %s: %w", sweepJob.Name(), err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RUNTIME
// ══════════════════════════════════════════════════════════════════════════════

// HTTPServer builds the API server.
func (a *App) HTTPServer() *httpapi.Server {
	hc := a.Config.HTTP
	cfg := httpapi.DefaultConfig()
	if hc.Addr != "" {
		cfg.Addr = hc.Addr
	}
	if hc.ReadTimeout > 0 {
		cfg.ReadTimeout = hc.ReadTimeout
	}
	if hc.WriteTimeout > 0 {
		cfg.WriteTimeout = hc.WriteTimeout
	}
	cfg.AllowedOrigins = hc.AllowedOrigins
	cfg.RateLimit = hc.RateLimit
	cfg.RateLimitBurst = hc.RateLimitBurst
	if p := a.Config.Observability.MetricsPath; p != "" {
		cfg.MetricsPath = p
	}
	cfg.ServiceName = a.Config.App.Name
	cfg.TracingEnabled = a.Config.Observability.TracingEnabled
	cfg.Version = a.Config.App.Version
	return httpapi.NewServer(cfg, a.deps)
}

// StartScheduler starts the background jobs and adds the scheduler to the
// health checks.
func (a *App) StartScheduler(ctx context.Context) error {
	if err := a.Scheduler.Start(ctx); err != nil {
		return err
	}
	a.schedRun = true
	a.Health.AddCheck("scheduler", handlers.NewRunningCheck("scheduler", a.Scheduler.IsRunning))
	return nil
}

// Close releases resources in reverse start order. It is safe to call
// more than once.
func (a *App) Close(ctx context.Context) error {
	if a.closed {
		return nil
	}
	a.closed = true

	var errs []error
	if a.schedRun {
		a.Health.RemoveCheck("scheduler")
		if err := a.Scheduler.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
		}
	}
	if a.Bus != nil {
		a.Bus.Wait()
		if err := a.Bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close event bus: %w", err))
		}
	}
	if a.tracing != nil {
		if err := a.tracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
	return errors.Join(errs...)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// NewLogger builds the process logger from observability settings.
func NewLogger(cfg *config.Config) *logger.Logger {
	o := cfg.Observability
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(o.LogLevel)
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	if o.LogFormat != "" {
		opts.Format = o.LogFormat
	}
	if o.LogFile != "" {
		opts.File = &logger.FileOptions{
			Path:       o.LogFile,
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		}
	}
	return logger.New(opts).With(
		logger.String("service", cfg.App.Name),
		logger.String("env", string(cfg.App.Environment)),
	)
}

func uuidIDs(prefix string) shared.IDGenerator {
	return func() string {
		return prefix + "_" + uuid.NewString()
	}
}

func gate(flags *config.FeatureFlags, feature string) query.FeatureGate {
	return func(userID string) bool {
		return flags.IsEnabledFor(feature, userID)
	}
}
