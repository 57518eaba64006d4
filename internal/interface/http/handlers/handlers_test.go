package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/learnpulse/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCompositeHealthChecker(t *testing.T) {
	c := NewCompositeHealthChecker("v-test")

	empty := c.Check(context.Background())
	assert.True(t, empty.Healthy)
	assert.Equal(t, "No health checks registered", empty.Message)

	c.AddCheck("postgres", NewPingCheck(pingFunc(func(context.Context) error { return nil })))
	c.AddOptionalCheck("redis", NewPingCheck(pingFunc(func(context.Context) error { return errors.New("refused") })))

	st := c.Check(context.Background())
	assert.True(t, st.Healthy)
	assert.True(t, st.Degraded)
	assert.Equal(t, "Some checks failed: redis", st.Message)
	assert.True(t, st.Checks["postgres"].Healthy)
	assert.True(t, st.Checks["redis"].Optional)
	assert.Equal(t, "refused", st.Checks["redis"].Message)

	running := false
	c.AddCheck("scheduler", NewRunningCheck("scheduler", func() bool { return running }))
	st = c.Check(context.Background())
	assert.False(t, st.Healthy)
	assert.Equal(t, "Some checks failed: redis, scheduler", st.Message)

	c.RemoveCheck("scheduler")
	c.RemoveCheck("redis")
	st = c.Check(context.Background())
	assert.True(t, st.Healthy)
	assert.False(t, st.Degraded)
	assert.Equal(t, "All checks passed", st.Message)
}

func TestCompositeHealthChecker_Timeout(t *testing.T) {
	c := NewCompositeHealthChecker("")
	c.SetTimeout(10 * time.Millisecond)
	c.AddCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	st := c.Check(context.Background())
	assert.False(t, st.Healthy)
	assert.Contains(t, st.Checks["slow"].Message, "deadline")
}

func TestRequestIDAndAccessLog(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), AccessLog(logger.NewNop()))
	var fromCtx *logger.Logger
	r.GET("/x", func(c *gin.Context) {
		fromCtx = logger.FromContext(c.Request.Context())
		c.String(http.StatusOK, GetRequestID(c))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	id := w.Header().Get(HeaderRequestID)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, w.Body.String())
	assert.NotNil(t, fromCtx)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "given")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "given", w.Header().Get(HeaderRequestID))
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(logger.NewNop()))
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal_server_error")
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"), "burst exhausted")
	assert.True(t, rl.Allow("b"), "clients are independent")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("a"), "refilled")

	now = now.Add(time.Hour)
	rl.Allow("c")
	rl.mu.Lock()
	_, kept := rl.visitors["a"]
	rl.mu.Unlock()
	assert.False(t, kept, "idle visitors are swept")
}

func TestRateLimiter_Middleware(t *testing.T) {
	r := gin.New()
	r.Use(NewRateLimiter(0.001, 1).Middleware())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

type observed struct {
	mu     sync.Mutex
	routes []string
	codes  []int
}

func (o *observed) ObserveHTTP(_ string, route string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.routes = append(o.routes, route)
	o.codes = append(o.codes, status)
}

func TestObserve_UsesRouteTemplate(t *testing.T) {
	obs := &observed{}
	r := gin.New()
	r.Use(Observe(obs))
	r.GET("/learners/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, p := range []string{"/learners/u-1", "/learners/u-2", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	require.Len(t, obs.routes, 3)
	assert.Equal(t, []string{"/learners/:id", "/learners/:id", "unmatched"}, obs.routes)
	assert.Equal(t, []int{200, 200, 404}, obs.codes)
}
