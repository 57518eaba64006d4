package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types emitted by the learner engine.
const (
	// Risk events
	EventRiskDetected EventType = "risk.detected"

	// Alert events
	EventAlertCreated   EventType = "alert.created"
	EventAlertDismissed EventType = "alert.dismissed"
	EventAlertExpired   EventType = "alert.expired"

	// Intervention events
	EventInterventionStarted  EventType = "intervention.started"
	EventInterventionFinished EventType = "intervention.finished"

	// Profile / path events
	EventProfileRebuilt EventType = "profile.rebuilt"
	EventPathGenerated  EventType = "path.generated"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]any
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	UserID        string    `json:"user_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event at the given instant.
func NewBaseEvent(eventType EventType, aggregateID, userID string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
		UserID:      userID,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Risk & Alert Events
// ═══════════════════════════════════════════════════════════════════════════

// RiskDetectedEvent is emitted once per risk found during analysis.
type RiskDetectedEvent struct {
	BaseEvent
	RiskType    string  `json:"risk_type"`
	Severity    string  `json:"severity"`
	Probability float64 `json:"probability"`
}

// Payload implements Event interface.
func (e RiskDetectedEvent) Payload() map[string]any {
	return map[string]any{
		"user_id":     e.UserID,
		"risk_type":   e.RiskType,
		"severity":    e.Severity,
		"probability": e.Probability,
	}
}

// NewRiskDetectedEvent creates a new RiskDetectedEvent.
func NewRiskDetectedEvent(riskID, userID, riskType, severity string, probability float64, at time.Time) RiskDetectedEvent {
	return RiskDetectedEvent{
		BaseEvent:   NewBaseEvent(EventRiskDetected, riskID, userID, at),
		RiskType:    riskType,
		Severity:    severity,
		Probability: probability,
	}
}

// AlertCreatedEvent is emitted when an alert enters history.
type AlertCreatedEvent struct {
	BaseEvent
	AlertType string    `json:"alert_type"`
	RiskType  string    `json:"risk_type"`
	Urgency   float64   `json:"urgency"`
	ExpiresAt time.Time `json:"expires_at"`
	Snapshot  []byte    `json:"-"` // JSON encoding of the alert for archiving
}

// Payload implements Event interface.
func (e AlertCreatedEvent) Payload() map[string]any {
	return map[string]any{
		"user_id":    e.UserID,
		"alert_type": e.AlertType,
		"risk_type":  e.RiskType,
		"urgency":    e.Urgency,
		"expires_at": e.ExpiresAt,
		"alert":      json.RawMessage(e.Snapshot),
	}
}

// NewAlertCreatedEvent creates a new AlertCreatedEvent.
func NewAlertCreatedEvent(alertID, userID, alertType, riskType string, urgency float64, expiresAt, at time.Time, snapshot []byte) AlertCreatedEvent {
	return AlertCreatedEvent{
		BaseEvent: NewBaseEvent(EventAlertCreated, alertID, userID, at),
		AlertType: alertType,
		RiskType:  riskType,
		Urgency:   urgency,
		ExpiresAt: expiresAt,
		Snapshot:  snapshot,
	}
}

// AlertClosedEvent is emitted when an alert is dismissed or swept.
type AlertClosedEvent struct {
	BaseEvent
}

// Payload implements Event interface.
func (e AlertClosedEvent) Payload() map[string]any {
	return map[string]any{"user_id": e.UserID}
}

// NewAlertDismissedEvent creates a dismissal event.
func NewAlertDismissedEvent(alertID, userID string, at time.Time) AlertClosedEvent {
	return AlertClosedEvent{BaseEvent: NewBaseEvent(EventAlertDismissed, alertID, userID, at)}
}

// NewAlertExpiredEvent creates an expiry event.
func NewAlertExpiredEvent(alertID, userID string, at time.Time) AlertClosedEvent {
	return AlertClosedEvent{BaseEvent: NewBaseEvent(EventAlertExpired, alertID, userID, at)}
}

// ═══════════════════════════════════════════════════════════════════════════
// Intervention Events
// ═══════════════════════════════════════════════════════════════════════════

// InterventionEvent is emitted when an execution starts or reaches a
// terminal status.
type InterventionEvent struct {
	BaseEvent
	StrategyID string `json:"strategy_id"`
	Status     string `json:"status"`
}

// Payload implements Event interface.
func (e InterventionEvent) Payload() map[string]any {
	return map[string]any{
		"user_id":     e.UserID,
		"strategy_id": e.StrategyID,
		"status":      e.Status,
	}
}

// NewInterventionStartedEvent creates a start event.
func NewInterventionStartedEvent(executionID, userID, strategyID string, at time.Time) InterventionEvent {
	return InterventionEvent{
		BaseEvent:  NewBaseEvent(EventInterventionStarted, executionID, userID, at),
		StrategyID: strategyID,
		Status:     "active",
	}
}

// NewInterventionFinishedEvent creates a terminal-status event.
func NewInterventionFinishedEvent(executionID, userID, strategyID, status string, at time.Time) InterventionEvent {
	return InterventionEvent{
		BaseEvent:  NewBaseEvent(EventInterventionFinished, executionID, userID, at),
		StrategyID: strategyID,
		Status:     status,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Profile & Path Events
// ═══════════════════════════════════════════════════════════════════════════

// PathGeneratedEvent is emitted when a path is computed (not on cache hits).
type PathGeneratedEvent struct {
	BaseEvent
	Phase      string    `json:"phase"`
	ValidUntil time.Time `json:"valid_until"`
}

// Payload implements Event interface.
func (e PathGeneratedEvent) Payload() map[string]any {
	return map[string]any{
		"user_id":     e.UserID,
		"phase":       e.Phase,
		"valid_until": e.ValidUntil,
	}
}

// NewPathGeneratedEvent creates a PathGeneratedEvent.
func NewPathGeneratedEvent(pathID, userID, phase string, validUntil, at time.Time) PathGeneratedEvent {
	return PathGeneratedEvent{
		BaseEvent:  NewBaseEvent(EventPathGenerated, pathID, userID, at),
		Phase:      phase,
		ValidUntil: validUntil,
	}
}

// ProfileRebuiltEvent is emitted after analyzeLearningProfile overwrites a profile.
type ProfileRebuiltEvent struct {
	BaseEvent
	LearningStyle string `json:"learning_style"`
}

// Payload implements Event interface.
func (e ProfileRebuiltEvent) Payload() map[string]any {
	return map[string]any{
		"user_id":        e.UserID,
		"learning_style": e.LearningStyle,
	}
}

// NewProfileRebuiltEvent creates a ProfileRebuiltEvent.
func NewProfileRebuiltEvent(userID, style string, at time.Time) ProfileRebuiltEvent {
	return ProfileRebuiltEvent{
		BaseEvent:     NewBaseEvent(EventProfileRebuilt, userID, userID, at),
		LearningStyle: style,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Bus contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// Replicated is implemented by events received from another engine
// instance. Origin names the publishing instance.
type Replicated interface {
	Origin() string
}

// IsReplicated reports whether e was published by another instance.
func IsReplicated(e Event) bool {
	_, ok := e.(Replicated)
	return ok
}

// NopPublisher drops every event. Used when no bus is wired.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(Event) error { return nil }
