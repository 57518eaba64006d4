package command

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/alem-hub/learnpulse/internal/domain/intervention"
	"github.com/alem-hub/learnpulse/internal/domain/shared"
	"github.com/alem-hub/learnpulse/pkg/logger"
	"github.com/alem-hub/learnpulse/pkg/timeutil"
	"github.com/alem-hub/learnpulse/pkg/tracing"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXECUTE INTERVENTION COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// ExecuteInterventionCommand starts (or plans) a strategy for a learner.
type ExecuteInterventionCommand struct {
	UserID     string
	StrategyID string
	Planned    bool
}

// Validate validates the command.
func (c ExecuteInterventionCommand) Validate() error {
	if c.UserID == "" {
		return shared.ErrEmptyUserID
	}
	if c.StrategyID == "" {
		return shared.ErrEmptyStrategyID
	}
	return nil
}

// ExecuteInterventionHandler handles ExecuteInterventionCommand.
type ExecuteInterventionHandler struct {
	executor  *intervention.Executor
	publisher shared.EventPublisher
	clock     timeutil.Clock
	log       *logger.Logger
}

// NewExecuteInterventionHandler creates a handler.
func NewExecuteInterventionHandler(executor *intervention.Executor, publisher shared.EventPublisher, clock timeutil.Clock, log *logger.Logger) *ExecuteInterventionHandler {
	if publisher == nil {
		publisher = shared.NopPublisher{}
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &ExecuteInterventionHandler{
		executor:  executor,
		publisher: publisher,
		clock:     clock,
		log:       log.With(logger.Component("interventions")),
	}
}

// Handle executes the command.
func (h *ExecuteInterventionHandler) Handle(ctx context.Context, cmd ExecuteInterventionCommand) (exec *intervention.Execution, err error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	ctx, span := tracing.Start(ctx, "command.ExecuteIntervention",
		attribute.String("user_id", cmd.UserID),
		attribute.String("strategy_id", cmd.StrategyID),
		attribute.Bool("planned", cmd.Planned),
	)
	defer func() { tracing.End(span, err) }()

	if cmd.Planned {
		exec, err = h.executor.Plan(ctx, cmd.StrategyID, cmd.UserID)
	} else {
		exec, err = h.executor.Execute(ctx, cmd.StrategyID, cmd.UserID)
	}
	if err != nil {
		return nil, err
	}

	if exec.Status == intervention.StatusActive {
		publishStarted(h.publisher, h.log, exec, h.clock)
	}
	h.log.Info("intervention recorded",
		logger.ExecutionID(exec.ID),
		logger.UserID(exec.UserID),
		logger.StrategyID(exec.StrategyID),
		logger.String("status", string(exec.Status)),
	)
	return exec, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE INTERVENTION COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// UpdateAction names one lifecycle operation on an execution.
type UpdateAction string

const (
	ActionStart    UpdateAction = "start"
	ActionProgress UpdateAction = "progress"
	ActionMetric   UpdateAction = "metric"
	ActionComplete UpdateAction = "complete"
	ActionFail     UpdateAction = "fail"
	ActionCancel   UpdateAction = "cancel"
	ActionFeedback UpdateAction = "feedback"
)

// UpdateInterventionCommand carries one lifecycle update. Only the fields
// relevant to Action are read.
type UpdateInterventionCommand struct {
	ExecutionID string
	Action      UpdateAction

	CompletedActions int
	Phase            string
	Milestone        string

	Metric intervention.MonitoredMetric

	// Summary for complete, failure reason for fail.
	Note string

	Rating  int
	Comment string
}

// Validate validates the command.
func (c UpdateInterventionCommand) Validate() error {
	if c.ExecutionID == "" {
		return shared.NewDomainError("intervention", string(c.Action), shared.ErrEmptyValue, "execution id is required")
	}
	switch c.Action {
	case ActionStart, ActionProgress, ActionMetric, ActionComplete, ActionFail, ActionCancel, ActionFeedback:
		return nil
	default:
		return shared.NewDomainError("intervention", "Update", shared.ErrInvalidInput,
			fmt.Sprintf("unknown action %q", c.Action))
	}
}

// UpdateInterventionHandler handles UpdateInterventionCommand.
type UpdateInterventionHandler struct {
	executor  *intervention.Executor
	publisher shared.EventPublisher
	clock     timeutil.Clock
	log       *logger.Logger
}

// NewUpdateInterventionHandler creates a handler.
func NewUpdateInterventionHandler(executor *intervention.Executor, publisher shared.EventPublisher, clock timeutil.Clock, log *logger.Logger) *UpdateInterventionHandler {
	if publisher == nil {
		publisher = shared.NopPublisher{}
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &UpdateInterventionHandler{
		executor:  executor,
		publisher: publisher,
		clock:     clock,
		log:       log.With(logger.Component("interventions")),
	}
}

// Handle applies the update and returns the execution after it.
func (h *UpdateInterventionHandler) Handle(ctx context.Context, cmd UpdateInterventionCommand) (exec *intervention.Execution, err error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	ctx, span := tracing.Start(ctx, "command.UpdateIntervention",
		attribute.String("execution_id", cmd.ExecutionID),
		attribute.String("action", string(cmd.Action)),
	)
	defer func() { tracing.End(span, err) }()

	switch cmd.Action {
	case ActionStart:
		exec, err = h.executor.Start(ctx, cmd.ExecutionID)
	case ActionProgress:
		exec, err = h.executor.ReportProgress(ctx, cmd.ExecutionID, cmd.CompletedActions, cmd.Phase, cmd.Milestone)
	case ActionMetric:
		exec, err = h.executor.RecordMetric(ctx, cmd.ExecutionID, cmd.Metric)
	case ActionComplete:
		exec, err = h.executor.Complete(ctx, cmd.ExecutionID, cmd.Note)
	case ActionFail:
		exec, err = h.executor.Fail(ctx, cmd.ExecutionID, cmd.Note)
	case ActionCancel:
		exec, err = h.executor.Cancel(ctx, cmd.ExecutionID)
	case ActionFeedback:
		exec, err = h.executor.SubmitFeedback(ctx, cmd.ExecutionID, cmd.Rating, cmd.Comment)
	}
	if err != nil {
		return nil, err
	}

	switch {
	case cmd.Action == ActionStart:
		publishStarted(h.publisher, h.log, exec, h.clock)
	case exec.Status.IsTerminal() && cmd.Action != ActionFeedback:
		event := shared.NewInterventionFinishedEvent(exec.ID, exec.UserID, exec.StrategyID, string(exec.Status), h.clock.Now())
		if err := h.publisher.Publish(event); err != nil {
			h.log.Warn("failed to publish intervention.finished", logger.ExecutionID(exec.ID), logger.Err(err))
		}
		h.log.Info("intervention finished",
			logger.ExecutionID(exec.ID),
			logger.UserID(exec.UserID),
			logger.String("status", string(exec.Status)),
		)
	}
	return exec, nil
}

func publishStarted(p shared.EventPublisher, log *logger.Logger, exec *intervention.Execution, clock timeutil.Clock) {
	event := shared.NewInterventionStartedEvent(exec.ID, exec.UserID, exec.StrategyID, clock.Now())
	if err := p.Publish(event); err != nil {
		log.Warn("failed to publish intervention.started", logger.ExecutionID(exec.ID), logger.Err(err))
	}
}
