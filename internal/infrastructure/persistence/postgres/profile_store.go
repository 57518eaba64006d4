package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alem-hub/learnpulse/internal/domain/profile"
	"github.com/alem-hub/learnpulse/internal/domain/shared"
)

// ProfileStore implements profile.Store, keeping one row per learner.
type ProfileStore struct {
	db Querier
}

// NewProfileStore creates a store over db.
func NewProfileStore(db Querier) *ProfileStore {
	return &ProfileStore{db: db}
}

var _ profile.Store = (*ProfileStore)(nil)

// Save overwrites the learner's profile.
func (s *ProfileStore) Save(ctx context.Context, p profile.LearningProfile) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	const query = `
		INSERT INTO learning_profiles (user_id, learning_style, body, last_updated)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			learning_style = EXCLUDED.learning_style,
			body = EXCLUDED.body,
			last_updated = EXCLUDED.last_updated
	`
	if _, err := s.db.Exec(ctx, query, p.UserID, string(p.LearningStyle), body, p.LastUpdated); err != nil {
		return shared.WrapError("profile", "Save", shared.ErrExternalService, "failed to save profile", err)
	}
	return nil
}

// Get returns shared.ErrProfileNotFound when the learner has none.
func (s *ProfileStore) Get(ctx context.Context, userID string) (profile.LearningProfile, error) {
	var body []byte
	err := s.db.QueryRow(ctx, `SELECT body FROM learning_profiles WHERE user_id = $1`, userID).Scan(&body)
	if IsNoRows(err) {
		return profile.LearningProfile{}, shared.ErrProfileNotFound
	}
	if err != nil {
		return profile.LearningProfile{}, shared.WrapError("profile", "Get", shared.ErrExternalService, "failed to load profile", err)
	}

	var p profile.LearningProfile
	if err := json.Unmarshal(body, &p); err != nil {
		return profile.LearningProfile{}, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}
