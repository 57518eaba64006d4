package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/learnpulse/pkg/logger"
	"github.com/alem-hub/learnpulse/pkg/timeutil"
)

type countingJob struct {
	name string
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "counts runs" }
func (j *countingJob) Run(context.Context) error {
	j.runs.Add(1)
	return j.err
}

type durations struct{ jobs atomic.Int32 }

func (d *durations) ObserveJob(string, time.Duration) { d.jobs.Add(1) }

var start = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

func newScheduler(clock timeutil.Clock, obs JobObserver) *Scheduler {
	return New(Config{
		Logger:       logger.NewNop(),
		Clock:        clock,
		TickInterval: 5 * time.Millisecond,
		Observer:     obs,
	})
}

func TestIntervalSchedule(t *testing.T) {
	s := Every(10 * time.Minute).WithOffset(time.Minute)
	first := s.Next(start)
	assert.Equal(t, start.Add(time.Minute), first)
	assert.Equal(t, first.Add(10*time.Minute), s.Next(first))
	assert.Equal(t, "@every 10m0s", s.String())

	plain := Every(time.Hour)
	assert.Equal(t, start.Add(time.Hour), plain.Next(start))
}

func TestRegister_Errors(t *testing.T) {
	s := newScheduler(timeutil.NewFakeClock(start), nil)
	job := &countingJob{name: "a"}

	require.NoError(t, s.Register(job, Every(time.Minute)))
	assert.ErrorIs(t, s.Register(job, Every(time.Minute)), ErrJobAlreadyExists)
	assert.ErrorIs(t, s.Register(nil, Every(time.Minute)), ErrNilJob)
	assert.ErrorIs(t, s.Register(&countingJob{name: "b"}, nil), ErrNilSchedule)
	assert.ErrorIs(t, s.EnableJob("missing"), ErrJobNotFound)
}

func TestRunNow_RecordsResult(t *testing.T) {
	obs := &durations{}
	s := newScheduler(timeutil.NewFakeClock(start), obs)
	ok := &countingJob{name: "ok"}
	bad := &countingJob{name: "bad", err: errors.New("boom")}
	require.NoError(t, s.Register(ok, Every(time.Hour)))
	require.NoError(t, s.Register(bad, Every(time.Hour)))

	res, err := s.RunNow(context.Background(), "ok")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Manual)

	_, err = s.RunNow(context.Background(), "bad")
	assert.EqualError(t, err, "boom")

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	info, err := s.GetJobInfo("bad")
	require.NoError(t, err)
	require.NotNil(t, info.LastResult)
	assert.False(t, info.LastResult.Success)

	assert.Len(t, s.GetHistory(0), 2)
	snap := s.GetMetrics().Snapshot()
	assert.EqualValues(t, 2, snap.TotalExecutions)
	assert.EqualValues(t, 1, snap.TotalFailures)
	assert.EqualValues(t, 2, obs.jobs.Load())
}

func TestLoop_RunsDueJobsOnInjectedClock(t *testing.T) {
	clock := timeutil.NewFakeClock(start)
	s := newScheduler(clock, nil)
	job := &countingJob{name: "tick"}
	require.NoError(t, s.Register(job, Every(10*time.Minute)))

	done := make(chan JobResult, 4)
	s.OnJobComplete(func(r JobResult) { done <- r })

	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop() }()
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, job.runs.Load(), "not due yet")

	clock.Advance(10 * time.Minute)
	select {
	case r := <-done:
		assert.Equal(t, "tick", r.JobName)
		assert.False(t, r.Manual)
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
	assert.EqualValues(t, 1, job.runs.Load())

	require.NoError(t, s.DisableJob("tick"))
	clock.Advance(time.Hour)
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 1, job.runs.Load())
}

func TestStop_NotRunning(t *testing.T) {
	s := newScheduler(nil, nil)
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
	assert.False(t, s.IsRunning())
}

func TestCronSchedule(t *testing.T) {
	cs, err := ParseCron(NightlyAt0330, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 3, 3, 30, 0, 0, time.UTC), cs.Next(start))
	assert.Equal(t, time.Date(2024, 6, 4, 3, 30, 0, 0, time.UTC), cs.Next(time.Date(2024, 6, 3, 3, 30, 0, 0, time.UTC)))

	quarter := MustParseCron(EveryFifteenMinutes, nil)
	assert.Equal(t, start.Add(15*time.Minute), quarter.Next(start.Add(time.Second)))

	monday := MustParseCron("0 6 * * 1", nil)
	next := monday.Next(start.Add(7 * time.Hour))
	assert.Equal(t, time.Monday, next.Weekday())
	assert.Equal(t, time.Date(2024, 6, 10, 6, 0, 0, 0, time.UTC), next)

	ranged := MustParseCron("0-30/10 8-9 * * *", nil)
	assert.Equal(t, time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC), ranged.Next(start))
	assert.Equal(t, time.Date(2024, 6, 3, 8, 10, 0, 0, time.UTC), ranged.Next(time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC), ranged.Next(time.Date(2024, 6, 3, 8, 30, 0, 0, time.UTC)))
}

func TestParseCron_Invalid(t *testing.T) {
	for _, expr := range []string{"", "* * * *", "60 * * * *", "* 24 * * *", "*/0 * * * *", "5-1 * * * *", "a * * * *", "* * 0 * *"} {
		_, err := ParseCron(expr, nil)
		assert.Error(t, err, expr)
	}
	assert.Panics(t, func() { MustParseCron("bad", nil) })
}
