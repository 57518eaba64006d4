package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alem-hub/learnpulse/internal/domain/alert"
)

// Alert close reasons stored in alert_archive.close_reason.
const (
	CloseDismissed = "dismissed"
	CloseExpired   = "expired"
)

// AlertArchive keeps a durable copy of every alert so a restarted process
// can rebuild the alert manager.
type AlertArchive struct {
	db Querier
}

// NewAlertArchive creates an archive over db.
func NewAlertArchive(db Querier) *AlertArchive {
	return &AlertArchive{db: db}
}

// Archive stores an alert. Re-archiving the same id is a no-op.
func (a *AlertArchive) Archive(ctx context.Context, al alert.PredictiveAlert) error {
	body, err := json.Marshal(al)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	const query = `
		INSERT INTO alert_archive (id, user_id, alert_type, risk_type, urgency, body, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = a.db.Exec(ctx, query,
		al.ID, al.UserID, string(al.AlertType), string(al.Risk.Type), al.Urgency,
		body, al.CreatedAt, al.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("archive alert %s: %w", al.ID, err)
	}
	return nil
}

// MarkClosed records why an alert left the visible set. The first reason
// wins. The alert itself need not be archived yet.
func (a *AlertArchive) MarkClosed(ctx context.Context, alertID, reason string, at time.Time) error {
	const query = `
		INSERT INTO alert_closures (alert_id, closed_at, close_reason)
		VALUES ($1, $2, $3)
		ON CONFLICT (alert_id) DO NOTHING
	`
	if _, err := a.db.Exec(ctx, query, alertID, at, reason); err != nil {
		return fmt.Errorf("close alert %s: %w", alertID, err)
	}
	return nil
}

// LoadOpen returns alerts that have not expired at now, oldest first, plus
// the ids among them that were dismissed.
func (a *AlertArchive) LoadOpen(ctx context.Context, now time.Time) ([]alert.PredictiveAlert, []string, error) {
	const query = `
		SELECT a.body, c.close_reason
		FROM alert_archive a
		LEFT JOIN alert_closures c ON c.alert_id = a.id
		WHERE a.expires_at >= $1 AND (c.close_reason IS NULL OR c.close_reason = 'dismissed')
		ORDER BY a.created_at
	`

	rows, err := a.db.Query(ctx, query, now)
	if err != nil {
		return nil, nil, fmt.Errorf("load open alerts: %w", err)
	}
	defer rows.Close()

	var (
		alerts    []alert.PredictiveAlert
		dismissed []string
	)
	for rows.Next() {
		var (
			body   []byte
			reason *string
		)
		if err := rows.Scan(&body, &reason); err != nil {
			return nil, nil, fmt.Errorf("scan alert: %w", err)
		}
		var al alert.PredictiveAlert
		if err := json.Unmarshal(body, &al); err != nil {
			return nil, nil, fmt.Errorf("decode alert: %w", err)
		}
		alerts = append(alerts, al)
		if reason != nil && *reason == CloseDismissed {
			dismissed = append(dismissed, al.ID)
		}
	}
	return alerts, dismissed, rows.Err()
}
