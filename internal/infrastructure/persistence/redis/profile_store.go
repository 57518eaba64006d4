package redis

import (
	"context"
	"errors"
	"time"

	"github.com/alem-hub/learnpulse/internal/domain/profile"
	"github.com/alem-hub/learnpulse/internal/domain/shared"
)

// ProfileStore keeps the latest learning profile per learner in Redis.
type ProfileStore struct {
	cache *Cache
	ttl   time.Duration
}

// NewProfileStore creates a store. A zero ttl keeps profiles until overwritten.
func NewProfileStore(cache *Cache, ttl time.Duration) *ProfileStore {
	return &ProfileStore{cache: cache, ttl: ttl}
}

var _ profile.Store = (*ProfileStore)(nil)

// Save implements profile.Store.
func (s *ProfileStore) Save(ctx context.Context, p profile.LearningProfile) error {
	if p.UserID == "" {
		return shared.ErrEmptyUserID
	}
	return s.cache.Set(ctx, PrefixProfile+p.UserID, p, s.ttl)
}

// Get implements profile.Store.
func (s *ProfileStore) Get(ctx context.Context, userID string) (profile.LearningProfile, error) {
	var p profile.LearningProfile
	err := s.cache.Get(ctx, PrefixProfile+userID, &p)
	if errors.Is(err, ErrCacheMiss) {
		return profile.LearningProfile{}, shared.ErrProfileNotFound
	}
	if err != nil {
		return profile.LearningProfile{}, shared.WrapError("profile", "Get", shared.ErrExternalService, "failed to load profile", err)
	}
	return p, nil
}
