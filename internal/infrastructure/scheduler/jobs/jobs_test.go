package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/learnpulse/internal/application/command"
	"github.com/alem-hub/learnpulse/internal/domain/alert"
	"github.com/alem-hub/learnpulse/pkg/timeutil"
)

var now = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

type fakeUsers struct {
	users []string
	since time.Time
	err   error
}

func (f *fakeUsers) ActiveUsers(_ context.Context, since time.Time) ([]string, error) {
	f.since = since
	return f.users, f.err
}

type fakeAnalyzer struct {
	mu       sync.Mutex
	seen     []string
	inFlight atomic.Int32
	peak     atomic.Int32
	failFor  map[string]bool
}

func (f *fakeAnalyzer) Handle(_ context.Context, cmd command.AnalyzeRisksCommand) (*command.AnalyzeRisksResult, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)

	f.mu.Lock()
	f.seen = append(f.seen, cmd.UserID)
	f.mu.Unlock()

	if f.failFor[cmd.UserID] {
		return nil, errors.New("analysis failed")
	}
	return &command.AnalyzeRisksResult{
		UserID:   cmd.UserID,
		Alerts:   []alert.PredictiveAlert{{ID: "a-" + cmd.UserID}},
		Degraded: cmd.UserID == "u-0",
	}, nil
}

func users(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("u-%d", i)
	}
	return out
}

func TestAnalyzeRisksJob_BoundedFanOut(t *testing.T) {
	src := &fakeUsers{users: users(20)}
	an := &fakeAnalyzer{failFor: map[string]bool{"u-3": true}}
	job := NewAnalyzeRisksJob(src, an, timeutil.NewFakeClock(now), nil, AnalyzeRisksConfig{
		ActiveWindow:       24 * time.Hour,
		MaxConcurrentUsers: 3,
	})

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, now.Add(-24*time.Hour), src.since)
	assert.Len(t, an.seen, 20)
	assert.LessOrEqual(t, an.peak.Load(), int32(3))

	stats, ok := job.LastRunStats()
	require.True(t, ok)
	assert.Equal(t, 20, stats.Users)
	assert.EqualValues(t, 19, stats.Analyzed)
	assert.EqualValues(t, 1, stats.Failed)
	assert.EqualValues(t, 19, stats.Alerts)
	assert.EqualValues(t, 1, stats.Degraded)
	assert.Equal(t, now, stats.StartedAt)
}

func TestAnalyzeRisksJob_Failures(t *testing.T) {
	t.Run("listing fails", func(t *testing.T) {
		job := NewAnalyzeRisksJob(&fakeUsers{err: errors.New("db down")}, &fakeAnalyzer{}, nil, nil, AnalyzeRisksConfig{})
		assert.Error(t, job.Run(context.Background()))
	})

	t.Run("every learner fails", func(t *testing.T) {
		an := &fakeAnalyzer{failFor: map[string]bool{"u-0": true, "u-1": true}}
		job := NewAnalyzeRisksJob(&fakeUsers{users: users(2)}, an, nil, nil, AnalyzeRisksConfig{})
		assert.Error(t, job.Run(context.Background()))
	})

	t.Run("nobody active", func(t *testing.T) {
		job := NewAnalyzeRisksJob(&fakeUsers{}, &fakeAnalyzer{}, nil, nil, AnalyzeRisksConfig{})
		assert.NoError(t, job.Run(context.Background()))
	})
}

type fakeSweeper struct{ count int }

func (f *fakeSweeper) Handle(context.Context) (*command.ClearExpiredAlertsResult, error) {
	return &command.ClearExpiredAlertsResult{Count: f.count}, nil
}

func TestSweepAlertsJob(t *testing.T) {
	job := NewSweepAlertsJob(&fakeSweeper{count: 2}, nil)
	assert.Equal(t, "sweep_alerts", job.Name())
	assert.NotEmpty(t, job.Description())

	require.NoError(t, job.Run(context.Background()))
	require.NoError(t, job.Run(context.Background()))
	assert.EqualValues(t, 4, job.TotalRemoved())
}
