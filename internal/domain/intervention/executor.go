package intervention

import (
	"context"
	"strings"
	"sync"

	"github.com/alem-hub/learnpulse/internal/domain/shared"
	"github.com/alem-hub/learnpulse/internal/domain/strategy"
	"github.com/alem-hub/learnpulse/pkg/timeutil"
)

// Repository stores executions keyed by id.
type Repository interface {
	// Save inserts or replaces an execution.
	Save(ctx context.Context, e *Execution) error

	// FindByID returns shared.ErrExecutionNotFound when missing.
	FindByID(ctx context.Context, id string) (*Execution, error)

	// FindByUser lists a learner's executions, newest first. An empty
	// status matches every status.
	FindByUser(ctx context.Context, userID string, status Status) ([]*Execution, error)
}

// StrategyLookup resolves a strategy id recommended to a learner.
type StrategyLookup interface {
	FindStrategy(userID, strategyID string) (strategy.InterventionStrategy, bool)
}

// Executor creates executions and applies lifecycle updates to them.
type Executor struct {
	repo       Repository
	strategies StrategyLookup
	clock      timeutil.Clock
	ids        shared.IDGenerator

	// serializes read-modify-write cycles on the repository
	mu sync.Mutex
}

// NewExecutor creates an Executor. strategies may be nil, in which case
// executions start without an action plan.
func NewExecutor(repo Repository, strategies StrategyLookup, clock timeutil.Clock, ids shared.IDGenerator) *Executor {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if ids == nil {
		ids = shared.SequentialIDs("exec")
	}
	return &Executor{repo: repo, strategies: strategies, clock: clock, ids: ids}
}

func (x *Executor) newExecution(strategyID, userID string, status Status) (*Execution, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, shared.ErrEmptyUserID
	}
	if strings.TrimSpace(strategyID) == "" {
		return nil, shared.ErrEmptyStrategyID
	}

	now := x.clock.Now()
	e := &Execution{
		ID:         x.ids(),
		StrategyID: strategyID,
		UserID:     userID,
		Status:     status,
		StartedAt:  now,
		UpdatedAt:  now,
		Monitoring: []MonitoredMetric{},
	}
	if x.strategies != nil {
		if s, ok := x.strategies.FindStrategy(userID, strategyID); ok {
			e.PlannedActions = len(s.Actions)
		}
	}
	return e, nil
}

// Execute records that a learner started a strategy. The execution is
// active immediately with zeroed progress and no monitored metrics.
func (x *Executor) Execute(ctx context.Context, strategyID, userID string) (*Execution, error) {
	e, err := x.newExecution(strategyID, userID, StatusActive)
	if err != nil {
		return nil, err
	}
	if err := x.repo.Save(ctx, e); err != nil {
		return nil, err
	}
	return e.Clone(), nil
}

// Plan records a strategy scheduled for later. Start activates it.
func (x *Executor) Plan(ctx context.Context, strategyID, userID string) (*Execution, error) {
	e, err := x.newExecution(strategyID, userID, StatusPlanned)
	if err != nil {
		return nil, err
	}
	if err := x.repo.Save(ctx, e); err != nil {
		return nil, err
	}
	return e.Clone(), nil
}

// update loads, mutates and saves one execution under the executor lock.
func (x *Executor) update(ctx context.Context, id string, fn func(e *Execution) error) (*Execution, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	e, err := x.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(e); err != nil {
		return nil, err
	}
	if err := x.repo.Save(ctx, e); err != nil {
		return nil, err
	}
	return e.Clone(), nil
}

// Start activates a planned execution.
func (x *Executor) Start(ctx context.Context, id string) (*Execution, error) {
	return x.update(ctx, id, func(e *Execution) error {
		return e.Start(x.clock.Now())
	})
}

// ReportProgress records completed actions.
func (x *Executor) ReportProgress(ctx context.Context, id string, completed int, phase, milestone string) (*Execution, error) {
	return x.update(ctx, id, func(e *Execution) error {
		return e.ReportProgress(completed, phase, milestone, x.clock.Now())
	})
}

// RecordMetric upserts a monitored metric.
func (x *Executor) RecordMetric(ctx context.Context, id string, m MonitoredMetric) (*Execution, error) {
	return x.update(ctx, id, func(e *Execution) error {
		return e.RecordMetric(m, x.clock.Now())
	})
}

// Complete finishes an execution successfully.
func (x *Executor) Complete(ctx context.Context, id, summary string) (*Execution, error) {
	return x.update(ctx, id, func(e *Execution) error {
		return e.Complete(summary, x.clock.Now())
	})
}

// Fail finishes an execution unsuccessfully.
func (x *Executor) Fail(ctx context.Context, id, reason string) (*Execution, error) {
	return x.update(ctx, id, func(e *Execution) error {
		return e.Fail(reason, x.clock.Now())
	})
}

// Cancel stops a planned or active execution.
func (x *Executor) Cancel(ctx context.Context, id string) (*Execution, error) {
	return x.update(ctx, id, func(e *Execution) error {
		return e.Cancel(x.clock.Now())
	})
}

// SubmitFeedback stores the learner's rating on a completed execution.
func (x *Executor) SubmitFeedback(ctx context.Context, id string, rating int, comment string) (*Execution, error) {
	return x.update(ctx, id, func(e *Execution) error {
		return e.SubmitFeedback(rating, comment, x.clock.Now())
	})
}

// Get returns one execution.
func (x *Executor) Get(ctx context.Context, id string) (*Execution, error) {
	return x.repo.FindByID(ctx, id)
}

// Active lists the learner's active executions.
func (x *Executor) Active(ctx context.Context, userID string) ([]*Execution, error) {
	return x.ListByStatus(ctx, userID, StatusActive)
}

// ListByStatus lists the learner's executions with the given status.
func (x *Executor) ListByStatus(ctx context.Context, userID string, status Status) ([]*Execution, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, shared.ErrEmptyUserID
	}
	return x.repo.FindByUser(ctx, userID, status)
}
