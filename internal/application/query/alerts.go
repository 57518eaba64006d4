// Package query contains read operations following CQRS pattern.
// Queries never modify domain state; the path query only fills its cache.
package query

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/alem-hub/learnpulse/internal/domain/alert"
	"github.com/alem-hub/learnpulse/internal/domain/shared"
	"github.com/alem-hub/learnpulse/pkg/tracing"
)

// FeatureGate reports whether a feature is on for a learner. A nil gate
// means the feature is on for everyone.
type FeatureGate func(userID string) bool

func (g FeatureGate) enabled(userID string) bool {
	return g == nil || g(userID)
}

// ══════════════════════════════════════════════════════════════════════════════
// GET VISIBLE ALERTS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// VisibleAlertsResult lists the learner's live, undismissed alerts.
type VisibleAlertsResult struct {
	UserID string                  `json:"userId"`
	Alerts []alert.PredictiveAlert `json:"alerts"`
	Count  int                     `json:"count"`
}

// GetVisibleAlertsHandler handles visible alert reads.
type GetVisibleAlertsHandler struct {
	manager *alert.Manager
}

// NewGetVisibleAlertsHandler creates a handler.
func NewGetVisibleAlertsHandler(manager *alert.Manager) *GetVisibleAlertsHandler {
	return &GetVisibleAlertsHandler{manager: manager}
}

// Handle returns alerts sorted by descending urgency.
func (h *GetVisibleAlertsHandler) Handle(ctx context.Context, userID string) (*VisibleAlertsResult, error) {
	if userID == "" {
		return nil, shared.ErrEmptyUserID
	}
	_, span := tracing.Start(ctx, "query.GetVisibleAlerts", attribute.String("user_id", userID))
	defer span.End()

	alerts := h.manager.Visible(userID)
	if alerts == nil {
		alerts = []alert.PredictiveAlert{}
	}
	return &VisibleAlertsResult{UserID: userID, Alerts: alerts, Count: len(alerts)}, nil
}
