// Package http exposes the learnpulse engine over a JSON REST API built on gin.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/alem-hub/learnpulse/internal/application/command"
	"github.com/alem-hub/learnpulse/internal/application/query"
	"github.com/alem-hub/learnpulse/internal/interface/http/handlers"
	"github.com/alem-hub/learnpulse/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Addr to listen on (default ":8080").
	Addr string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// AllowedOrigins for CORS; "*" allows any origin.
	AllowedOrigins []string

	// RateLimit is requests per second per client IP (0 = disabled).
	RateLimit      float64
	RateLimitBurst int

	// MetricsPath serves Prometheus metrics when a metrics handler is set.
	MetricsPath string

	// ServiceName labels spans when tracing is enabled.
	ServiceName    string
	TracingEnabled bool

	Version string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8080",
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		AllowedOrigins: []string{"*"},
		RateLimit:      20,
		RateLimitBurst: 40,
		MetricsPath:    "/metrics",
		ServiceName:    "learnpulse",
		Version:        "v1",
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies contains the application handlers behind the routes.
type Dependencies struct {
	// Commands
	AnalyzeRisks        *command.AnalyzeRisksHandler
	DismissAlert        *command.DismissAlertHandler
	ClearExpiredAlerts  *command.ClearExpiredAlertsHandler
	ExecuteIntervention *command.ExecuteInterventionHandler
	UpdateIntervention  *command.UpdateInterventionHandler
	AnalyzeProfile      *command.AnalyzeProfileHandler

	// Queries
	VisibleAlerts *query.GetVisibleAlertsHandler
	Interventions *query.GetActiveInterventionsHandler
	Report        *query.GenerateReportHandler
	Path          *query.GetOptimizedPathHandler

	// Health and metrics
	HealthChecker  handlers.HealthChecker
	MetricsHandler http.Handler
	HTTPObserver   handlers.HTTPObserver

	Logger *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server is the HTTP API server.
type Server struct {
	config     Config
	deps       Dependencies
	engine     *gin.Engine
	httpServer *http.Server
	logger     *logger.Logger

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer builds the gin engine, middleware and routes.
func NewServer(config Config, deps Dependencies) *Server {
	if config.Addr == "" {
		config.Addr = DefaultConfig().Addr
	}
	if config.MetricsPath == "" {
		config.MetricsPath = DefaultConfig().MetricsPath
	}
	if deps.Logger == nil {
		deps.Logger = logger.Default()
	}

	s := &Server{
		config: config,
		deps:   deps,
		engine: gin.New(),
		logger: deps.Logger.With(logger.Component("http")),
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         config.Addr,
		Handler:      s.engine,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE & ROUTING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) setupMiddleware() {
	s.engine.Use(handlers.Recovery(s.logger))
	s.engine.Use(handlers.RequestID())
	s.engine.Use(handlers.AccessLog(s.logger))

	if len(s.config.AllowedOrigins) > 0 {
		cc := cors.DefaultConfig()
		cc.AllowHeaders = append(cc.AllowHeaders, "Authorization", handlers.HeaderRequestID)
		cc.ExposeHeaders = []string{handlers.HeaderRequestID}
		if containsWildcard(s.config.AllowedOrigins) {
			cc.AllowAllOrigins = true
		} else {
			cc.AllowOrigins = s.config.AllowedOrigins
		}
		s.engine.Use(cors.New(cc))
	}

	if s.config.TracingEnabled {
		s.engine.Use(otelgin.Middleware(s.config.ServiceName))
	}
	if s.deps.HTTPObserver != nil {
		s.engine.Use(handlers.Observe(s.deps.HTTPObserver))
	}
	if s.config.RateLimit > 0 {
		s.engine.Use(handlers.NewRateLimiter(s.config.RateLimit, s.config.RateLimitBurst).Middleware())
	}
}

func (s *Server) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status
	// ─────────────────────────────────────────────────────────────────────────
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/live", s.handleLive)
	if s.deps.MetricsHandler != nil {
		s.engine.GET(s.config.MetricsPath, gin.WrapH(s.deps.MetricsHandler))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// API v1
	// ─────────────────────────────────────────────────────────────────────────
	v1 := s.engine.Group("/api/v1")

	learners := v1.Group("/learners/:id")
	{
		learners.GET("/risks", s.handleGetRisks)
		learners.POST("/analyze", s.handleAnalyze)

		learners.GET("/alerts", s.handleGetAlerts)
		learners.POST("/alerts/:alertId/dismiss", s.handleDismissAlert)

		learners.POST("/interventions", s.handleExecuteIntervention)
		learners.GET("/interventions", s.handleGetInterventions)

		learners.GET("/report", s.handleGetReport)
		learners.GET("/profile", s.handleGetProfile)
		learners.GET("/profile/latest", s.handleGetLatestProfile)
		learners.GET("/path", s.handleGetPath)
		learners.DELETE("/path", s.handleInvalidatePath)
	}

	v1.POST("/alerts/sweep", s.handleSweepAlerts)

	executions := v1.Group("/interventions/:execId")
	{
		executions.POST("/start", s.handleInterventionUpdate(command.ActionStart))
		executions.POST("/progress", s.handleInterventionUpdate(command.ActionProgress))
		executions.POST("/metrics", s.handleInterventionUpdate(command.ActionMetric))
		executions.POST("/complete", s.handleInterventionUpdate(command.ActionComplete))
		executions.POST("/fail", s.handleInterventionUpdate(command.ActionFail))
		executions.POST("/cancel", s.handleInterventionUpdate(command.ActionCancel))
		executions.POST("/feedback", s.handleInterventionUpdate(command.ActionFeedback))
	}
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Addr))

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartAsync starts the server in a goroutine. The channel yields at most
// one error and is closed when the server stops.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}
