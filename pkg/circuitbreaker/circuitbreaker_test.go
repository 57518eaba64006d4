package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/learnpulse/pkg/timeutil"
)

var errBoom = errors.New("boom")

func fail(context.Context) error { return errBoom }
func ok(context.Context) error   { return nil }

func newTestBreaker(clock timeutil.Clock, changes *[]string) *Breaker {
	return New("test",
		WithFailureThreshold(2),
		WithSuccessThreshold(2),
		WithCoolDown(time.Minute),
		WithClock(clock),
		WithOnStateChange(func(_ string, from, to State) {
			*changes = append(*changes, from.String()+"->"+to.String())
		}),
	)
}

func TestBreaker_OpensAndRecovers(t *testing.T) {
	clock := timeutil.NewFakeClock(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC))
	var changes []string
	b := newTestBreaker(clock, &changes)
	ctx := context.Background()

	assert.ErrorIs(t, b.Execute(ctx, fail), errBoom)
	assert.Equal(t, StateClosed, b.State())
	assert.ErrorIs(t, b.Execute(ctx, fail), errBoom)
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)

	clock.Advance(time.Minute)
	require.NoError(t, b.Execute(ctx, ok))
	assert.Equal(t, StateHalfOpen, b.State())
	require.NoError(t, b.Execute(ctx, ok))
	assert.Equal(t, StateClosed, b.State())

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, changes)
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := timeutil.NewFakeClock(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC))
	var changes []string
	b := newTestBreaker(clock, &changes)
	ctx := context.Background()

	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, fail)
	clock.Advance(time.Minute)

	assert.ErrorIs(t, b.Execute(ctx, fail), errBoom)
	assert.Equal(t, StateOpen, b.State())
	assert.ErrorIs(t, b.Execute(ctx, ok), ErrOpen, "cool-down restarts")
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b := New("test", WithFailureThreshold(2))
	ctx := context.Background()

	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, ok)
	_ = b.Execute(ctx, fail)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_IgnoresCancellationAndClassifiedErrors(t *testing.T) {
	benign := errors.New("not found")
	b := New("test", WithFailureThreshold(1), WithIsFailure(func(err error) bool { return !errors.Is(err, benign) }))
	ctx := context.Background()

	_ = b.Execute(ctx, func(context.Context) error { return context.Canceled })
	_ = b.Execute(ctx, func(context.Context) error { return benign })
	assert.Equal(t, StateClosed, b.State())

	_ = b.Execute(ctx, fail)
	assert.Equal(t, StateOpen, b.State())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
}

func TestDo_ReturnsValue(t *testing.T) {
	b := StatsProviderBreaker(nil)
	assert.Equal(t, "stats-provider", b.Name())

	v, err := Do(context.Background(), b, func(context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = Do(context.Background(), b, func(context.Context) (int, error) { return 7, errBoom })
	assert.ErrorIs(t, err, errBoom)
	assert.Zero(t, v)
}
