package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/alem-hub/learnpulse/internal/domain/intervention"
	"github.com/alem-hub/learnpulse/internal/domain/shared"
)

// InterventionRepository implements intervention.Repository.
// The execution is stored whole as JSONB; status and timestamps are
// duplicated into columns for filtering.
type InterventionRepository struct {
	db Querier
}

// NewInterventionRepository creates a repository over db.
func NewInterventionRepository(db Querier) *InterventionRepository {
	return &InterventionRepository{db: db}
}

var _ intervention.Repository = (*InterventionRepository)(nil)

// Save inserts or replaces an execution.
func (r *InterventionRepository) Save(ctx context.Context, e *intervention.Execution) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal execution: %w", err)
	}

	const query = `
		INSERT INTO intervention_executions (id, strategy_id, user_id, status, started_at, updated_at, completed_at, body)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at,
			completed_at = EXCLUDED.completed_at,
			body = EXCLUDED.body
	`
	_, err = r.db.Exec(ctx, query,
		e.ID, e.StrategyID, e.UserID, string(e.Status),
		e.StartedAt, e.UpdatedAt, e.CompletedAt, body,
	)
	if err != nil {
		return shared.WrapError("intervention", "Save", shared.ErrExternalService, "failed to save execution", err)
	}
	return nil
}

// FindByID returns shared.ErrExecutionNotFound when missing.
func (r *InterventionRepository) FindByID(ctx context.Context, id string) (*intervention.Execution, error) {
	var body []byte
	err := r.db.QueryRow(ctx, `SELECT body FROM intervention_executions WHERE id = $1`, id).Scan(&body)
	if IsNoRows(err) {
		return nil, shared.ErrExecutionNotFound
	}
	if err != nil {
		return nil, shared.WrapError("intervention", "FindByID", shared.ErrExternalService, "failed to load execution", err)
	}
	return decodeExecution(body)
}

// FindByUser lists a learner's executions, newest first.
func (r *InterventionRepository) FindByUser(ctx context.Context, userID string, status intervention.Status) ([]*intervention.Execution, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if status == "" {
		rows, err = r.db.Query(ctx, `
			SELECT body FROM intervention_executions
			WHERE user_id = $1
			ORDER BY started_at DESC, id DESC
		`, userID)
	} else {
		rows, err = r.db.Query(ctx, `
			SELECT body FROM intervention_executions
			WHERE user_id = $1 AND status = $2
			ORDER BY started_at DESC, id DESC
		`, userID, string(status))
	}
	if err != nil {
		return nil, shared.WrapError("intervention", "FindByUser", shared.ErrExternalService, "failed to list executions", err)
	}
	defer rows.Close()

	out := []*intervention.Execution{}
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		e, err := decodeExecution(body)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func decodeExecution(body []byte) (*intervention.Execution, error) {
	var e intervention.Execution
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, fmt.Errorf("decode execution: %w", err)
	}
	return &e, nil
}
