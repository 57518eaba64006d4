// Package circuitbreaker stops calling a failing collaborator for a cool-down
// period so callers can fall back immediately instead of waiting on retries.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alem-hub/learnpulse/pkg/timeutil"
)

// State represents the current state of the circuit breaker.
type State int

const (
	// StateClosed lets calls through.
	StateClosed State = iota
	// StateOpen rejects calls until the cool-down elapses.
	StateOpen
	// StateHalfOpen lets a limited number of probe calls through.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned without calling the operation while the circuit is
// open or all half-open probes are in flight.
var ErrOpen = errors.New("circuit breaker is open")

// Config holds circuit breaker configuration.
type Config struct {
	// Name identifies the breaker in logs.
	Name string

	// FailureThreshold consecutive failures open the circuit (default 5).
	FailureThreshold int

	// SuccessThreshold half-open successes close it again (default 2).
	SuccessThreshold int

	// CoolDown is how long the circuit stays open (default 30s).
	CoolDown time.Duration

	// MaxProbes bounds concurrent half-open calls (default 1).
	MaxProbes int

	// OnStateChange is called with the breaker lock released.
	OnStateChange func(name string, from, to State)

	// IsFailure decides whether err counts. Context cancellation never does.
	IsFailure func(err error) bool

	Clock timeutil.Clock
}

// Option customizes a Config.
type Option func(*Config)

// WithFailureThreshold sets the failure threshold.
func WithFailureThreshold(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.FailureThreshold = n
		}
	}
}

// WithSuccessThreshold sets the success threshold.
func WithSuccessThreshold(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.SuccessThreshold = n
		}
	}
}

// WithCoolDown sets how long the circuit stays open.
func WithCoolDown(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.CoolDown = d
		}
	}
}

// WithMaxProbes sets the number of concurrent half-open calls.
func WithMaxProbes(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxProbes = n
		}
	}
}

// WithOnStateChange sets the state change callback.
func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(c *Config) { c.OnStateChange = fn }
}

// WithIsFailure sets the failure classifier.
func WithIsFailure(fn func(error) bool) Option {
	return func(c *Config) { c.IsFailure = fn }
}

// WithClock injects the time source.
func WithClock(clock timeutil.Clock) Option {
	return func(c *Config) {
		if clock != nil {
			c.Clock = clock
		}
	}
}

// Breaker is a consecutive-failure circuit breaker.
type Breaker struct {
	config Config

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	probes    int
	openedAt  time.Time
}

// New creates a closed breaker.
func New(name string, opts ...Option) *Breaker {
	cfg := Config{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		CoolDown:         30 * time.Second,
		MaxProbes:        1,
		Clock:            timeutil.RealClock{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Breaker{config: cfg}
}

// StatsProviderBreaker opens after three straight failures of the statistics
// provider and probes again after a minute.
func StatsProviderBreaker(onStateChange func(name string, from, to State), opts ...Option) *Breaker {
	base := []Option{
		WithFailureThreshold(3),
		WithSuccessThreshold(1),
		WithCoolDown(time.Minute),
		WithOnStateChange(onStateChange),
	}
	return New("stats-provider", append(base, opts...)...)
}

// Execute runs fn unless the circuit rejects the call.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.acquire(); err != nil {
		return err
	}
	err := fn(ctx)
	b.record(err)
	return err
}

// Do is Execute for operations returning a value.
func Do[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := b.Execute(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err == nil {
			out = v
		}
		return err
	})
	return out, err
}

func (b *Breaker) acquire() error {
	b.mu.Lock()
	var from State
	changed := false
	defer func() {
		b.mu.Unlock()
		if changed {
			b.notify(from, StateHalfOpen)
		}
	}()

	switch b.state {
	case StateOpen:
		if b.config.Clock.Now().Sub(b.openedAt) < b.config.CoolDown {
			return ErrOpen
		}
		from, changed = b.state, true
		b.state = StateHalfOpen
		b.successes = 0
		b.probes = 1
		return nil
	case StateHalfOpen:
		if b.probes >= b.config.MaxProbes {
			return ErrOpen
		}
		b.probes++
		return nil
	default:
		return nil
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	from := b.state

	if b.state == StateHalfOpen && b.probes > 0 {
		b.probes--
	}
	switch {
	case !b.isFailure(err):
		b.failures = 0
		if b.state == StateHalfOpen {
			b.successes++
			if b.successes >= b.config.SuccessThreshold {
				b.state = StateClosed
			}
		}
	case b.state == StateHalfOpen:
		b.open()
	default:
		b.failures++
		if b.failures >= b.config.FailureThreshold {
			b.open()
		}
	}

	to := b.state
	b.mu.Unlock()
	if from != to {
		b.notify(from, to)
	}
}

func (b *Breaker) open() {
	b.state = StateOpen
	b.openedAt = b.config.Clock.Now()
	b.failures = 0
	b.successes = 0
	b.probes = 0
}

func (b *Breaker) isFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if b.config.IsFailure != nil {
		return b.config.IsFailure(err)
	}
	return true
}

func (b *Breaker) notify(from, to State) {
	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.config.Name, from, to)
	}
}

// State returns the current state. An open breaker whose cool-down has
// elapsed still reports open until the next call probes it.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Name returns the breaker name.
func (b *Breaker) Name() string {
	return b.config.Name
}

// Reset closes the circuit and clears counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures, b.successes, b.probes = 0, 0, 0
}
