package query

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/alem-hub/learnpulse/internal/domain/intervention"
	"github.com/alem-hub/learnpulse/internal/domain/shared"
	"github.com/alem-hub/learnpulse/pkg/tracing"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET INTERVENTIONS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// StatusAll selects executions in every status.
const StatusAll = "all"

// GetInterventionsQuery filters a learner's executions. An empty Status
// selects active executions.
type GetInterventionsQuery struct {
	UserID string
	Status string
}

// Validate validates the query and resolves the status filter.
func (q GetInterventionsQuery) Validate() (intervention.Status, error) {
	if q.UserID == "" {
		return "", shared.ErrEmptyUserID
	}
	switch s := strings.ToLower(strings.TrimSpace(q.Status)); s {
	case "":
		return intervention.StatusActive, nil
	case StatusAll:
		return "", nil
	default:
		return intervention.ParseStatus(s)
	}
}

// InterventionsResult lists executions, newest first.
type InterventionsResult struct {
	UserID     string                    `json:"userId"`
	Status     string                    `json:"status"`
	Executions []*intervention.Execution `json:"executions"`
	Count      int                       `json:"count"`
}

// GetActiveInterventionsHandler reads executions.
type GetActiveInterventionsHandler struct {
	executor *intervention.Executor
}

// NewGetActiveInterventionsHandler creates a handler.
func NewGetActiveInterventionsHandler(executor *intervention.Executor) *GetActiveInterventionsHandler {
	return &GetActiveInterventionsHandler{executor: executor}
}

// Handle executes the query.
func (h *GetActiveInterventionsHandler) Handle(ctx context.Context, q GetInterventionsQuery) (res *InterventionsResult, err error) {
	status, err := q.Validate()
	if err != nil {
		return nil, err
	}
	ctx, span := tracing.Start(ctx, "query.GetInterventions",
		attribute.String("user_id", q.UserID),
		attribute.String("status", string(status)),
	)
	defer func() { tracing.End(span, err) }()

	execs, err := h.executor.ListByStatus(ctx, q.UserID, status)
	if err != nil {
		return nil, err
	}
	if execs == nil {
		execs = []*intervention.Execution{}
	}

	label := string(status)
	if label == "" {
		label = StatusAll
	}
	return &InterventionsResult{UserID: q.UserID, Status: label, Executions: execs, Count: len(execs)}, nil
}
