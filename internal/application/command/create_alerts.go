package command

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/attribute"

	"github.com/alem-hub/learnpulse/internal/domain/alert"
	"github.com/alem-hub/learnpulse/internal/domain/risk"
	"github.com/alem-hub/learnpulse/internal/domain/shared"
	"github.com/alem-hub/learnpulse/internal/domain/strategy"
	"github.com/alem-hub/learnpulse/pkg/logger"
	"github.com/alem-hub/learnpulse/pkg/tracing"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE ALERTS COMMAND
// Turns detected risks and their strategies into predictive alerts.
// ══════════════════════════════════════════════════════════════════════════════

// CreateAlertsCommand carries one analysis result for a learner.
type CreateAlertsCommand struct {
	UserID     string
	Risks      []risk.LearningRisk
	Strategies []strategy.InterventionStrategy
}

// Validate validates the command.
func (c CreateAlertsCommand) Validate() error {
	if c.UserID == "" {
		return shared.ErrEmptyUserID
	}
	return nil
}

// CreateAlertsResult lists created alerts and the risk types skipped because
// a visible alert already covers them.
type CreateAlertsResult struct {
	Alerts     []alert.PredictiveAlert
	Suppressed []risk.RiskType
}

// CreateAlertsHandler handles CreateAlertsCommand.
type CreateAlertsHandler struct {
	manager            *alert.Manager
	publisher          shared.EventPublisher
	suppressDuplicates bool
	log                *logger.Logger
}

// NewCreateAlertsHandler creates a handler. With suppressDuplicates a risk
// type that already has a visible alert for the learner is not alerted again.
func NewCreateAlertsHandler(manager *alert.Manager, publisher shared.EventPublisher, suppressDuplicates bool, log *logger.Logger) *CreateAlertsHandler {
	if publisher == nil {
		publisher = shared.NopPublisher{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &CreateAlertsHandler{
		manager:            manager,
		publisher:          publisher,
		suppressDuplicates: suppressDuplicates,
		log:                log.With(logger.Component("create_alerts")),
	}
}

// Handle executes the command.
func (h *CreateAlertsHandler) Handle(ctx context.Context, cmd CreateAlertsCommand) (*CreateAlertsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	_, span := tracing.Start(ctx, "command.CreateAlerts",
		attribute.String("user_id", cmd.UserID),
		attribute.Int("risks", len(cmd.Risks)),
	)
	defer span.End()

	result := &CreateAlertsResult{Alerts: []alert.PredictiveAlert{}, Suppressed: []risk.RiskType{}}

	pairs := alert.Pairs(cmd.Risks, cmd.Strategies)
	if h.suppressDuplicates {
		kept := pairs[:0]
		for _, p := range pairs {
			if h.manager.HasVisible(cmd.UserID, p.Risk.Type) {
				result.Suppressed = append(result.Suppressed, p.Risk.Type)
				continue
			}
			kept = append(kept, p)
		}
		pairs = kept
	}

	created := h.manager.Create(cmd.UserID, pairs)
	if created != nil {
		result.Alerts = created
	}

	for _, a := range result.Alerts {
		h.publishCreated(a)
	}

	if len(result.Suppressed) > 0 {
		h.log.Debug("duplicate alerts suppressed",
			logger.UserID(cmd.UserID),
			logger.Int("count", len(result.Suppressed)),
		)
	}
	return result, nil
}

func (h *CreateAlertsHandler) publishCreated(a alert.PredictiveAlert) {
	snapshot, err := json.Marshal(a)
	if err != nil {
		h.log.Error("failed to encode alert", logger.AlertID(a.ID), logger.Err(err))
		return
	}
	event := shared.NewAlertCreatedEvent(
		a.ID, a.UserID, string(a.AlertType), string(a.Risk.Type),
		a.Urgency, a.ExpiresAt, a.CreatedAt, snapshot,
	)
	if err := h.publisher.Publish(event); err != nil {
		h.log.Warn("failed to publish alert.created", logger.AlertID(a.ID), logger.Err(err))
	}
}
