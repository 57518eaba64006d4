package eventhandler

import (
	"fmt"

	"github.com/alem-hub/learnpulse/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// METRICS HANDLER
// Turns domain events into Prometheus counters. Only local events count.
// ═══════════════════════════════════════════════════════════════════════════

// MetricsRecorder is the subset of the metrics registry fed by events.
type MetricsRecorder interface {
	RiskDetected(riskType, severity string)
	AlertCreated(alertType string)
	AlertDismissed()
	AlertExpired()
	InterventionStatus(status string)
}

// MetricsHandler records event counters.
type MetricsHandler struct {
	rec MetricsRecorder
}

// NewMetricsHandler creates a handler.
func NewMetricsHandler(rec MetricsRecorder) *MetricsHandler {
	return &MetricsHandler{rec: rec}
}

// Register subscribes the handler to every event.
func (h *MetricsHandler) Register(sub shared.EventSubscriber) error {
	if err := sub.SubscribeAll(h.Handle); err != nil {
		return fmt.Errorf("subscribe metrics: %w", err)
	}
	return nil
}

// Handle processes one event.
func (h *MetricsHandler) Handle(event shared.Event) error {
	if shared.IsReplicated(event) {
		return nil
	}
	switch event.EventType() {
	case shared.EventRiskDetected:
		h.rec.RiskDetected(payloadString(event, "risk_type"), payloadString(event, "severity"))
	case shared.EventAlertCreated:
		h.rec.AlertCreated(payloadString(event, "alert_type"))
	case shared.EventAlertDismissed:
		h.rec.AlertDismissed()
	case shared.EventAlertExpired:
		h.rec.AlertExpired()
	case shared.EventInterventionStarted, shared.EventInterventionFinished:
		h.rec.InterventionStatus(payloadString(event, "status"))
	}
	return nil
}
