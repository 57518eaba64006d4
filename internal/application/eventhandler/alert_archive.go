// Package eventhandler contains domain event subscribers.
package eventhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alem-hub/learnpulse/internal/domain/alert"
	"github.com/alem-hub/learnpulse/internal/domain/shared"
	"github.com/alem-hub/learnpulse/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ALERT ARCHIVE HANDLER
// Keeps a durable copy of every alert created by this instance and records
// when it was dismissed or swept. Events replicated from other instances
// are skipped: their origin archives them.
// ═══════════════════════════════════════════════════════════════════════════

// Close reasons stored with archived alerts.
const (
	CloseReasonDismissed = "dismissed"
	CloseReasonExpired   = "expired"
)

// DefaultArchiveTimeout bounds one archive write.
const DefaultArchiveTimeout = 5 * time.Second

// AlertSink persists alerts.
type AlertSink interface {
	Archive(ctx context.Context, a alert.PredictiveAlert) error
	MarkClosed(ctx context.Context, alertID, reason string, at time.Time) error
}

// AlertArchiveHandler writes alert events to an AlertSink.
type AlertArchiveHandler struct {
	sink    AlertSink
	timeout time.Duration
	log     *logger.Logger
}

// NewAlertArchiveHandler creates a handler. A non-positive timeout uses
// DefaultArchiveTimeout.
func NewAlertArchiveHandler(sink AlertSink, timeout time.Duration, log *logger.Logger) *AlertArchiveHandler {
	if timeout <= 0 {
		timeout = DefaultArchiveTimeout
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &AlertArchiveHandler{sink: sink, timeout: timeout, log: log.With(logger.Component("alert_archive"))}
}

// Register subscribes the handler to alert events.
func (h *AlertArchiveHandler) Register(sub shared.EventSubscriber) error {
	for _, t := range []shared.EventType{shared.EventAlertCreated, shared.EventAlertDismissed, shared.EventAlertExpired} {
		if err := sub.Subscribe(t, h.Handle); err != nil {
			return fmt.Errorf("subscribe %s: %w", t, err)
		}
	}
	return nil
}

// Handle processes one event.
func (h *AlertArchiveHandler) Handle(event shared.Event) error {
	if shared.IsReplicated(event) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	var err error
	switch event.EventType() {
	case shared.EventAlertCreated:
		var a alert.PredictiveAlert
		if a, err = DecodeAlert(event); err == nil {
			err = h.sink.Archive(ctx, a)
		}
	case shared.EventAlertDismissed:
		err = h.sink.MarkClosed(ctx, event.AggregateID(), CloseReasonDismissed, event.OccurredAt())
	case shared.EventAlertExpired:
		err = h.sink.MarkClosed(ctx, event.AggregateID(), CloseReasonExpired, event.OccurredAt())
	default:
		return nil
	}

	if err != nil {
		h.log.Error("failed to archive alert event",
			logger.AlertID(event.AggregateID()),
			logger.String("event", string(event.EventType())),
			logger.Err(err),
		)
		return err
	}
	return nil
}

// DecodeAlert extracts the alert snapshot carried by an alert.created event.
// Works for local events and for events decoded from the wire.
func DecodeAlert(event shared.Event) (alert.PredictiveAlert, error) {
	raw, ok := event.Payload()["alert"]
	if !ok {
		return alert.PredictiveAlert{}, errors.New("alert snapshot missing from event")
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return alert.PredictiveAlert{}, fmt.Errorf("encode alert snapshot: %w", err)
	}
	var a alert.PredictiveAlert
	if err := json.Unmarshal(data, &a); err != nil {
		return alert.PredictiveAlert{}, fmt.Errorf("decode alert snapshot: %w", err)
	}
	if a.ID == "" {
		return alert.PredictiveAlert{}, errors.New("alert snapshot is empty")
	}
	return a, nil
}

func payloadString(event shared.Event, key string) string {
	v, _ := event.Payload()[key].(string)
	return v
}
