package memory

import (
	"context"
	"sync"

	"github.com/alem-hub/learnpulse/internal/domain/profile"
	"github.com/alem-hub/learnpulse/internal/domain/shared"
)

// ProfileStore keeps the latest profile per learner.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]profile.LearningProfile
}

// NewProfileStore creates an empty store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{profiles: make(map[string]profile.LearningProfile)}
}

var _ profile.Store = (*ProfileStore)(nil)

// Save implements profile.Store.
func (s *ProfileStore) Save(_ context.Context, p profile.LearningProfile) error {
	if p.UserID == "" {
		return shared.ErrEmptyUserID
	}
	s.mu.Lock()
	s.profiles[p.UserID] = p
	s.mu.Unlock()
	return nil
}

// Get implements profile.Store.
func (s *ProfileStore) Get(_ context.Context, userID string) (profile.LearningProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return profile.LearningProfile{}, shared.ErrProfileNotFound
	}
	return p, nil
}
