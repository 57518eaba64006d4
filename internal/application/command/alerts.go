package command

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/alem-hub/learnpulse/internal/domain/alert"
	"github.com/alem-hub/learnpulse/internal/domain/shared"
	"github.com/alem-hub/learnpulse/pkg/logger"
	"github.com/alem-hub/learnpulse/pkg/timeutil"
	"github.com/alem-hub/learnpulse/pkg/tracing"
)

// ══════════════════════════════════════════════════════════════════════════════
// DISMISS ALERT COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// DismissAlertCommand hides one alert from the learner for good.
type DismissAlertCommand struct {
	UserID  string
	AlertID string
}

// Validate validates the command.
func (c DismissAlertCommand) Validate() error {
	if c.UserID == "" {
		return shared.ErrEmptyUserID
	}
	if c.AlertID == "" {
		return shared.NewDomainError("alert", "Dismiss", shared.ErrEmptyValue, "alert id is required")
	}
	return nil
}

// DismissAlertHandler handles DismissAlertCommand.
type DismissAlertHandler struct {
	manager   *alert.Manager
	publisher shared.EventPublisher
	clock     timeutil.Clock
	log       *logger.Logger
}

// NewDismissAlertHandler creates a handler.
func NewDismissAlertHandler(manager *alert.Manager, publisher shared.EventPublisher, clock timeutil.Clock, log *logger.Logger) *DismissAlertHandler {
	if publisher == nil {
		publisher = shared.NopPublisher{}
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &DismissAlertHandler{manager: manager, publisher: publisher, clock: clock, log: log}
}

// Handle executes the command. Dismissing an already dismissed alert
// succeeds without a second event.
func (h *DismissAlertHandler) Handle(ctx context.Context, cmd DismissAlertCommand) (alert.PredictiveAlert, error) {
	if err := cmd.Validate(); err != nil {
		return alert.PredictiveAlert{}, err
	}
	_, span := tracing.Start(ctx, "command.DismissAlert",
		attribute.String("user_id", cmd.UserID),
		attribute.String("alert_id", cmd.AlertID),
	)
	defer span.End()

	already := h.manager.IsDismissed(cmd.UserID, cmd.AlertID)
	a, err := h.manager.Dismiss(cmd.UserID, cmd.AlertID)
	if err != nil {
		return alert.PredictiveAlert{}, err
	}
	if already {
		return a, nil
	}

	if err := h.publisher.Publish(shared.NewAlertDismissedEvent(a.ID, cmd.UserID, h.clock.Now())); err != nil {
		h.log.Warn("failed to publish alert.dismissed", logger.AlertID(a.ID), logger.Err(err))
	}
	return a, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CLEAR EXPIRED ALERTS COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// ClearExpiredAlertsResult lists the alerts removed by one sweep.
type ClearExpiredAlertsResult struct {
	Removed []alert.PredictiveAlert `json:"removed"`
	Count   int                     `json:"count"`
}

// ClearExpiredAlertsHandler sweeps expired alerts from every learner.
type ClearExpiredAlertsHandler struct {
	manager   *alert.Manager
	publisher shared.EventPublisher
	clock     timeutil.Clock
	log       *logger.Logger
}

// NewClearExpiredAlertsHandler creates a handler.
func NewClearExpiredAlertsHandler(manager *alert.Manager, publisher shared.EventPublisher, clock timeutil.Clock, log *logger.Logger) *ClearExpiredAlertsHandler {
	if publisher == nil {
		publisher = shared.NopPublisher{}
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &ClearExpiredAlertsHandler{manager: manager, publisher: publisher, clock: clock, log: log}
}

// Handle removes expired alerts and publishes one alert.expired per alert.
func (h *ClearExpiredAlertsHandler) Handle(ctx context.Context) (*ClearExpiredAlertsResult, error) {
	_, span := tracing.Start(ctx, "command.ClearExpiredAlerts")
	defer span.End()

	removed := h.manager.ClearExpired()
	if removed == nil {
		removed = []alert.PredictiveAlert{}
	}
	span.SetAttributes(attribute.Int("removed", len(removed)))

	now := h.clock.Now()
	for _, a := range removed {
		if err := h.publisher.Publish(shared.NewAlertExpiredEvent(a.ID, a.UserID, now)); err != nil {
			h.log.Warn("failed to publish alert.expired", logger.AlertID(a.ID), logger.Err(err))
		}
	}
	if len(removed) > 0 {
		h.log.Info("expired alerts cleared", logger.Int("count", len(removed)))
	}
	return &ClearExpiredAlertsResult{Removed: removed, Count: len(removed)}, nil
}
