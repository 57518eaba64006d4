package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/learnpulse/config"
	"github.com/alem-hub/learnpulse/internal/infrastructure/messaging"
	"github.com/alem-hub/learnpulse/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func loadConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_DISABLED", "true")
	t.Setenv("TRACING_ENABLED", "false")
	for k, v := range env {
		t.Setenv(k, v)
	}
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	return cfg
}

func TestNew_InMemory(t *testing.T) {
	cfg := loadConfig(t, nil)
	a, err := New(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	assert.Nil(t, a.DB)
	assert.Nil(t, a.Redis)
	assert.IsType(t, &messaging.InMemoryEventBus{}, a.Bus)

	for _, name := range []string{"analyze_risks", "sweep_alerts"} {
		info, err := a.Scheduler.GetJobInfo(name)
		require.NoError(t, err, name)
		assert.True(t, info.Enabled)
	}

	res, err := a.Scheduler.RunNow(context.Background(), "analyze_risks")
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestNew_SweepCron(t *testing.T) {
	cfg := loadConfig(t, map[string]string{"SCHEDULER_SWEEP_CRON": "*/15 * * * *"})
	a, err := New(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	info, err := a.Scheduler.GetJobInfo("sweep_alerts")
	require.NoError(t, err)
	assert.Equal(t, "*/15 * * * *", info.Schedule)

	cfg = loadConfig(t, map[string]string{"SCHEDULER_SWEEP_CRON": "not a cron"})
	_, err = New(context.Background(), cfg, logger.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCHEDULER_SWEEP_CRON")
}

func TestHTTPServer_Serves(t *testing.T) {
	cfg := loadConfig(t, map[string]string{"HTTP_RATE_LIMIT": "0"})
	a, err := New(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	h := a.HTTPServer().Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/learners/u-1/alerts", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "learnpulse_http_requests_total")
}

func TestStartScheduler_AddsHealthCheck(t *testing.T) {
	cfg := loadConfig(t, nil)
	a, err := New(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.StartScheduler(ctx))

	st := a.Health.Check(context.Background())
	require.Contains(t, st.Checks, "scheduler")
	assert.True(t, st.Checks["scheduler"].Healthy)

	require.NoError(t, a.Close(context.Background()))
	assert.False(t, a.Scheduler.IsRunning())
	assert.NoError(t, a.Close(context.Background()), "close is idempotent")
}

func TestNewLogger(t *testing.T) {
	cfg := loadConfig(t, map[string]string{"LOG_FORMAT": "console", "LOG_LEVEL": "warn"})
	log := NewLogger(cfg)
	require.NotNil(t, log)
	assert.NotPanics(t, func() { log.Info("ready") })
}
