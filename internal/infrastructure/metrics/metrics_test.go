package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	m := New()

	m.RiskDetected("memory_decay", "high")
	m.RiskDetected("memory_decay", "high")
	m.AlertCreated("warning")
	m.AlertDismissed()
	m.AlertExpired()
	m.AlertExpired()
	m.InterventionStatus("completed")
	m.PathCache(true)
	m.PathCache(false)
	m.PathCache(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.risksDetected.WithLabelValues("memory_decay", "high")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.alertsCreated.WithLabelValues("warning")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.alertsDismissed))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.alertsExpired))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.interventions.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pathCache.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.pathCache.WithLabelValues("miss")))
}

func TestHandler_ExposesNamespacedSeries(t *testing.T) {
	m := New()
	m.ObserveJob("analyze_risks", 2*time.Second)
	m.ObserveHTTP(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `learnpulse_job_duration_seconds_count{job="analyze_risks"} 1`)
	assert.Contains(t, body, `learnpulse_http_requests_total{method="GET",route="unmatched",status="404"} 1`)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RiskDetected("a", "b")
		m.AlertCreated("warning")
		m.AlertDismissed()
		m.AlertExpired()
		m.InterventionStatus("active")
		m.PathCache(true)
		m.ObserveJob("j", time.Second)
		m.ObserveHTTP("GET", "/", 200, time.Second)
	})
}
