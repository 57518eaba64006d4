package eventhandler

import (
	"fmt"

	"github.com/alem-hub/learnpulse/internal/domain/alert"
	"github.com/alem-hub/learnpulse/internal/domain/shared"
	"github.com/alem-hub/learnpulse/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ALERT REPLICATOR
// Applies alert events published by other instances to the local alert
// manager so every instance serves the same visible set. Events may arrive
// in any order; a dismissal seen first still wins. Expiry is not replicated:
// each instance sweeps on its own clock.
// ═══════════════════════════════════════════════════════════════════════════

// AlertReplicator mirrors remote alert changes.
type AlertReplicator struct {
	manager *alert.Manager
	log     *logger.Logger
}

// NewAlertReplicator creates a replicator.
func NewAlertReplicator(manager *alert.Manager, log *logger.Logger) *AlertReplicator {
	if log == nil {
		log = logger.NewNop()
	}
	return &AlertReplicator{manager: manager, log: log.With(logger.Component("alert_replicator"))}
}

// Register subscribes the replicator to alert events.
func (r *AlertReplicator) Register(sub shared.EventSubscriber) error {
	for _, t := range []shared.EventType{shared.EventAlertCreated, shared.EventAlertDismissed} {
		if err := sub.Subscribe(t, r.Handle); err != nil {
			return fmt.Errorf("subscribe %s: %w", t, err)
		}
	}
	return nil
}

// Handle processes one event. Local events are ignored.
func (r *AlertReplicator) Handle(event shared.Event) error {
	if !shared.IsReplicated(event) {
		return nil
	}

	switch event.EventType() {
	case shared.EventAlertCreated:
		a, err := DecodeAlert(event)
		if err != nil {
			r.log.Warn("dropping replicated alert", logger.AlertID(event.AggregateID()), logger.Err(err))
			return err
		}
		r.manager.Restore([]alert.PredictiveAlert{a}, nil)

	case shared.EventAlertDismissed:
		userID := payloadString(event, "user_id")
		if !r.manager.ApplyDismissal(userID, event.AggregateID()) {
			r.log.Debug("dismissal ahead of its alert", logger.AlertID(event.AggregateID()))
		}
	}
	return nil
}
