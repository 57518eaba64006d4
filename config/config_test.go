package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "learnpulse", cfg.App.Name)
	assert.True(t, cfg.IsDevelopment())
	assert.True(t, cfg.App.Debug)
	assert.Equal(t, time.UTC, cfg.App.Location)

	assert.Equal(t, 100, cfg.Engine.AlertHistoryCap)
	assert.Equal(t, 24*time.Hour, cfg.Engine.PathCacheTTL)
	assert.Equal(t, 7, cfg.Engine.ReportWindowDays)
	assert.Equal(t, 0.5, cfg.Engine.CorrelationMinCoefficient)
	assert.Equal(t, 20, cfg.Engine.ExpectedDailyReviews)
	assert.True(t, cfg.Engine.SuppressDuplicateAlerts)

	assert.Equal(t, 10*time.Minute, cfg.Scheduler.AnalyzeRisksInterval)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.SweepAlertsInterval)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	require.NotNil(t, cfg.Features)
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `
app:
  env: staging
engine:
  alert_history_cap: 50
  path_cache_ttl: 2h
scheduler:
  analyze_risks_interval: 1m
`)
	t.Setenv("APP_ENV", "")
	t.Setenv("ENGINE_ALERT_HISTORY_CAP", "25")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, EnvStaging, cfg.App.Environment)
	assert.Equal(t, 25, cfg.Engine.AlertHistoryCap, "environment beats the file")
	assert.Equal(t, 2*time.Hour, cfg.Engine.PathCacheTTL)
	assert.Equal(t, time.Minute, cfg.Scheduler.AnalyzeRisksInterval)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "ENGINE_REPORT_WINDOW_DAYS=14\n")
	t.Setenv("APP_ENV", "development")
	// t.Setenv restores the variable after godotenv sets it.
	t.Setenv("ENGINE_REPORT_WINDOW_DAYS", "")
	require.NoError(t, os.Unsetenv("ENGINE_REPORT_WINDOW_DAYS"))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 14, cfg.Engine.ReportWindowDays)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ENGINE_CORRELATION_MIN", "1.5")

	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required in production")
	assert.Contains(t, err.Error(), "ENGINE_CORRELATION_MIN must be 0-1")
}

func TestValidate_UnknownEnvironment(t *testing.T) {
	cfg := &Config{
		App:    AppConfig{Environment: "qa"},
		Engine: EngineConfig{AlertHistoryCap: 1, PathCacheTTL: time.Hour, ReportWindowDays: 7, ExpectedDailyReviews: 20},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `APP_ENV "qa"`)
}

func TestRedisAddr(t *testing.T) {
	assert.Equal(t, "cache:6380", RedisConfig{Host: "cache", Port: 6380}.RedisAddr())
}
