package postgres

import (
	"context"
	"time"

	"github.com/alem-hub/learnpulse/internal/domain/shared"
	"github.com/alem-hub/learnpulse/internal/domain/stats"
)

// StatsProvider reads aggregator tables and implements stats.Provider.
type StatsProvider struct {
	db Querier
}

// NewStatsProvider creates a provider over db.
func NewStatsProvider(db Querier) *StatsProvider {
	return &StatsProvider{db: db}
}

var _ stats.Provider = (*StatsProvider)(nil)

// providerError classifies a driver failure. Connection-level failures are
// retryable; anything else is a plain external-service error.
func providerError(op string, err error) error {
	kind := shared.ErrExternalService
	if isTransient(err) {
		kind = shared.ErrServiceUnavailable
	}
	return shared.WrapError("stats", op, kind, "statistics provider unavailable", err)
}

// Snapshot returns the learner's current counters. A learner without a row
// gets an empty snapshot.
func (p *StatsProvider) Snapshot(ctx context.Context, userID string) (stats.Snapshot, error) {
	const query = `
		SELECT total_sessions, completed_sessions, overall_accuracy, total_time_spent,
		       focus_triggered, focus_success_rate, focus_effectiveness,
		       pronunciation_average, pronunciation_assessments, pronunciation_improvement,
		       rescue_triggered, rescue_effectiveness,
		       srs_accuracy_rate, srs_reviews_today, srs_cards_total, srs_graduated_cards,
		       updated_at
		FROM learner_stats
		WHERE user_id = $1
	`

	s := stats.Snapshot{UserID: userID}
	err := p.db.QueryRow(ctx, query, userID).Scan(
		&s.Overall.TotalSessions, &s.Overall.CompletedSessions, &s.Overall.OverallAccuracy, &s.Overall.TotalTimeSpent,
		&s.FocusMode.Triggered, &s.FocusMode.SuccessRate, &s.FocusMode.Effectiveness,
		&s.Pronunciation.AverageScore, &s.Pronunciation.Assessments, &s.Pronunciation.Improvement,
		&s.RescueMode.Triggered, &s.RescueMode.Effectiveness,
		&s.SRS.AccuracyRate, &s.SRS.ReviewsToday, &s.SRS.CardsTotal, &s.SRS.GraduatedCards,
		&s.CapturedAt,
	)
	if IsNoRows(err) {
		return stats.Snapshot{UserID: userID}, nil
	}
	if err != nil {
		return stats.Snapshot{}, providerError("Snapshot", err)
	}
	return s.Normalize(), nil
}

// DailySeries returns per-day rows in [r.Start, r.End), oldest first.
func (p *StatsProvider) DailySeries(ctx context.Context, userID string, r stats.TimeRange) ([]stats.DailyPoint, error) {
	const query = `
		SELECT day, sessions, completed_sessions, accuracy, time_spent,
		       focus_triggers, rescue_triggers, pronunciation_score, assessments,
		       reviews, review_accuracy
		FROM learner_daily_stats
		WHERE user_id = $1 AND day >= $2::date AND day < $3::date
		ORDER BY day
	`

	rows, err := p.db.Query(ctx, query, userID, r.Start, r.End)
	if err != nil {
		return nil, providerError("DailySeries", err)
	}
	defer rows.Close()

	points := []stats.DailyPoint{}
	for rows.Next() {
		var d stats.DailyPoint
		if err := rows.Scan(
			&d.Date, &d.Sessions, &d.CompletedSessions, &d.Accuracy, &d.TimeSpent,
			&d.FocusTriggers, &d.RescueTriggers, &d.PronunciationScore, &d.Assessments,
			&d.Reviews, &d.ReviewAccuracy,
		); err != nil {
			return nil, providerError("DailySeries", err)
		}
		points = append(points, d)
	}
	if err := rows.Err(); err != nil {
		return nil, providerError("DailySeries", err)
	}
	return points, nil
}

// ActiveUsers returns learners whose counters changed since the given instant.
func (p *StatsProvider) ActiveUsers(ctx context.Context, since time.Time) ([]string, error) {
	const query = `
		SELECT user_id FROM learner_stats
		WHERE updated_at >= $1
		ORDER BY user_id
	`

	rows, err := p.db.Query(ctx, query, since)
	if err != nil {
		return nil, providerError("ActiveUsers", err)
	}
	defer rows.Close()

	users := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, providerError("ActiveUsers", err)
		}
		users = append(users, id)
	}
	if err := rows.Err(); err != nil {
		return nil, providerError("ActiveUsers", err)
	}
	return users, nil
}
