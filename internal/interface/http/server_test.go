package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/learnpulse/internal/application/command"
	"github.com/alem-hub/learnpulse/internal/application/query"
	"github.com/alem-hub/learnpulse/internal/domain/alert"
	"github.com/alem-hub/learnpulse/internal/domain/analytics"
	"github.com/alem-hub/learnpulse/internal/domain/intervention"
	"github.com/alem-hub/learnpulse/internal/domain/path"
	"github.com/alem-hub/learnpulse/internal/domain/risk"
	"github.com/alem-hub/learnpulse/internal/domain/shared"
	"github.com/alem-hub/learnpulse/internal/domain/strategy"
	"github.com/alem-hub/learnpulse/internal/infrastructure/metrics"
	"github.com/alem-hub/learnpulse/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/learnpulse/internal/interface/http/handlers"
	"github.com/alem-hub/learnpulse/pkg/logger"
	"github.com/alem-hub/learnpulse/pkg/retry"
	"github.com/alem-hub/learnpulse/pkg/timeutil"
	"github.com/alem-hub/learnpulse/pkg/ttlcache"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var now = time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *APIError       `json:"error"`
	RequestID string          `json:"request_id"`
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	clock   *timeutil.FakeClock
	manager *alert.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	clock := timeutil.NewFakeClock(now)
	log := logger.NewNop()
	m := metrics.New()

	provider := memory.NewStatsProvider()
	snapshots := command.NewSnapshotSource(provider, retry.New(retry.WithMaxAttempts(1)), 0, log)
	manager := alert.NewManager(clock, shared.SequentialIDs("alert"), 0)

	analyzer := risk.NewAnalyzer(risk.NewRegistry(risk.DefaultConfig()), clock, shared.SequentialIDs("risk"))
	generator := strategy.NewGenerator(strategy.DefaultTemplates(), clock, shared.SequentialIDs("strategy"), nil)
	createAlerts := command.NewCreateAlertsHandler(manager, nil, true, log)
	analyze := command.NewAnalyzeRisksHandler(snapshots, analyzer, generator, createAlerts, nil, clock, log, command.AnalyzeRisksConfig{})

	executor := intervention.NewExecutor(memory.NewInterventionRepository(), manager, clock, shared.SequentialIDs("exec"))
	profiles := command.NewAnalyzeProfileHandler(snapshots, memory.NewProfileStore(), nil, clock, log)

	cache := ttlcache.New[path.OptimizedLearningPath](ttlcache.NewMemoryBackend[path.OptimizedLearningPath](), 24*time.Hour, clock)
	optimizer := path.NewOptimizer(24*time.Hour, shared.SequentialIDs("path"))

	health := handlers.NewCompositeHealthChecker("test")
	health.AddCheck("memory", func(context.Context) error { return nil })

	cfg := DefaultConfig()
	cfg.RateLimit = 0
	srv := NewServer(cfg, Dependencies{
		AnalyzeRisks:        analyze,
		DismissAlert:        command.NewDismissAlertHandler(manager, nil, clock, log),
		ClearExpiredAlerts:  command.NewClearExpiredAlertsHandler(manager, nil, clock, log),
		ExecuteIntervention: command.NewExecuteInterventionHandler(executor, nil, clock, log),
		UpdateIntervention:  command.NewUpdateInterventionHandler(executor, nil, clock, log),
		AnalyzeProfile:      profiles,
		VisibleAlerts:       query.NewGetVisibleAlertsHandler(manager),
		Interventions:       query.NewGetActiveInterventionsHandler(executor),
		Report:              query.NewGenerateReportHandler(snapshots, analytics.NewGenerator(5, shared.SequentialIDs("report")), nil, clock, log, query.ReportConfig{}),
		Path:                query.NewGetOptimizedPathHandler(cache, profiles, optimizer, nil, nil, m, clock, log),
		HealthChecker:       health,
		MetricsHandler:      m.Handler(),
		HTTPObserver:        m,
		Logger:              log,
	})
	return &testServer{t: t, handler: srv.Handler(), clock: clock, manager: manager}
}

func (s *testServer) do(method, target string, body any) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.RequestID)

	w, _ = s.do(http.MethodGet, "/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "learnpulse_http_requests_total")
}

func TestRisksAndAlertsFlow(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(http.MethodGet, "/api/v1/learners/u-1/risks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	risks := decode[struct {
		Risks []risk.LearningRisk `json:"risks"`
		Count int                 `json:"count"`
	}](t, env.Data)
	assert.NotZero(t, risks.Count)
	assert.Empty(t, s.manager.Visible("u-1"), "risk reads do not raise alerts")

	w, env = s.do(http.MethodPost, "/api/v1/learners/u-1/analyze", nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[command.AnalyzeRisksResult](t, env.Data)
	require.NotEmpty(t, res.Alerts)

	w, env = s.do(http.MethodGet, "/api/v1/learners/u-1/alerts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	visible := decode[query.VisibleAlertsResult](t, env.Data)
	assert.Equal(t, len(res.Alerts), visible.Count)

	first := visible.Alerts[0].ID
	w, _ = s.do(http.MethodPost, "/api/v1/learners/u-1/alerts/"+first+"/dismiss", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(http.MethodPost, "/api/v1/learners/u-1/alerts/missing/dismiss", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_found", env.Error.Code)

	_, env = s.do(http.MethodGet, "/api/v1/learners/u-1/alerts", nil)
	assert.Equal(t, len(res.Alerts)-1, decode[query.VisibleAlertsResult](t, env.Data).Count)

	s.clock.Advance(30 * 24 * time.Hour)
	w, env = s.do(http.MethodPost, "/api/v1/alerts/sweep", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, len(res.Alerts), decode[command.ClearExpiredAlertsResult](t, env.Data).Count)
}

func TestInterventionLifecycle(t *testing.T) {
	s := newTestServer(t)

	_, env := s.do(http.MethodPost, "/api/v1/learners/u-1/analyze", nil)
	res := decode[command.AnalyzeRisksResult](t, env.Data)
	require.NotEmpty(t, res.Strategies)
	strategyID := res.Strategies[0].ID

	w, env := s.do(http.MethodPost, "/api/v1/learners/u-1/interventions", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", env.Error.Code)

	w, env = s.do(http.MethodPost, "/api/v1/learners/u-1/interventions", map[string]any{"strategyId": strategyID})
	require.Equal(t, http.StatusCreated, w.Code)
	exec := decode[intervention.Execution](t, env.Data)
	assert.Equal(t, intervention.StatusActive, exec.Status)
	assert.Zero(t, exec.Progress.TotalActions)
	assert.NotZero(t, exec.PlannedActions)

	base := "/api/v1/interventions/" + exec.ID
	w, env = s.do(http.MethodPost, base+"/progress", map[string]any{"completedActions": 1, "phase": "week-1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[intervention.Execution](t, env.Data).Progress.CompletedActions)

	w, env = s.do(http.MethodPost, base+"/metrics", map[string]any{"metric": "accuracy", "baseline": 60, "current": 72, "target": 80})
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[intervention.Execution](t, env.Data)
	require.Len(t, got.Monitoring, 1)
	assert.InDelta(t, 12, got.Monitoring[0].Improvement, 1e-9)

	w, _ = s.do(http.MethodPost, base+"/feedback", map[string]any{"rating": 5})
	assert.Equal(t, http.StatusConflict, w.Code, "feedback only after completion")

	w, env = s.do(http.MethodPost, base+"/complete", map[string]any{"summary": "done"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, intervention.StatusCompleted, decode[intervention.Execution](t, env.Data).Status)

	w, _ = s.do(http.MethodPost, base+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(http.MethodPost, base+"/feedback", map[string]any{"rating": 4, "comment": "helpful"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/interventions/nope/complete", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, env = s.do(http.MethodGet, "/api/v1/learners/u-1/interventions", nil)
	assert.Zero(t, decode[query.InterventionsResult](t, env.Data).Count)

	_, env = s.do(http.MethodGet, "/api/v1/learners/u-1/interventions?status=all", nil)
	assert.Equal(t, 1, decode[query.InterventionsResult](t, env.Data).Count)

	w, _ = s.do(http.MethodGet, "/api/v1/learners/u-1/interventions?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportValidation(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(http.MethodGet, "/api/v1/learners/u-1/report", nil)
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[query.ReportResult](t, env.Data)
	assert.Equal(t, "u-1", report.UserID)

	w, _ = s.do(http.MethodGet, "/api/v1/learners/u-1/report?start=2024-05-01T00:00:00Z&end=2024-05-08T00:00:00Z", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	for _, q := range []string{
		"?start=2024-05-08T00:00:00Z&end=2024-05-01T00:00:00Z",
		"?start=2024-05-01T00:00:00Z",
		"?min_correlation=abc",
		"?min_correlation=1.5",
	} {
		w, _ = s.do(http.MethodGet, "/api/v1/learners/u-1/report"+q, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestProfileAndPath(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(http.MethodGet, "/api/v1/learners/u-1/profile/latest", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/learners/u-1/profile", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/learners/u-1/profile/latest", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := s.do(http.MethodGet, "/api/v1/learners/u-1/path", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[query.PathResult](t, env.Data).Cached)

	_, env = s.do(http.MethodGet, "/api/v1/learners/u-1/path", nil)
	assert.True(t, decode[query.PathResult](t, env.Data).Cached)

	w, _ = s.do(http.MethodDelete, "/api/v1/learners/u-1/path", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	_, env = s.do(http.MethodGet, "/api/v1/learners/u-1/path", nil)
	assert.False(t, decode[query.PathResult](t, env.Data).Cached)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{shared.ErrEmptyUserID, http.StatusBadRequest},
		{shared.ErrAlertNotFound, http.StatusNotFound},
		{shared.ErrInvalidExecutionTransition, http.StatusConflict},
		{shared.ErrFeedbackAlreadySet, http.StatusConflict},
		{shared.ErrStatsUnavailable, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		status, _ := statusFor(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
	}
}
