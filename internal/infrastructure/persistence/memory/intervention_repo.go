package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/alem-hub/learnpulse/internal/domain/intervention"
	"github.com/alem-hub/learnpulse/internal/domain/shared"
)

// InterventionRepository keeps executions in a map. Callers always receive
// copies.
type InterventionRepository struct {
	mu    sync.RWMutex
	items map[string]*intervention.Execution
}

// NewInterventionRepository creates an empty repository.
func NewInterventionRepository() *InterventionRepository {
	return &InterventionRepository{items: make(map[string]*intervention.Execution)}
}

var _ intervention.Repository = (*InterventionRepository)(nil)

// Save implements intervention.Repository.
func (r *InterventionRepository) Save(_ context.Context, e *intervention.Execution) error {
	r.mu.Lock()
	r.items[e.ID] = e.Clone()
	r.mu.Unlock()
	return nil
}

// FindByID implements intervention.Repository.
func (r *InterventionRepository) FindByID(_ context.Context, id string) (*intervention.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.items[id]
	if !ok {
		return nil, shared.ErrExecutionNotFound
	}
	return e.Clone(), nil
}

// FindByUser implements intervention.Repository.
func (r *InterventionRepository) FindByUser(_ context.Context, userID string, status intervention.Status) ([]*intervention.Execution, error) {
	r.mu.RLock()
	out := []*intervention.Execution{}
	for _, e := range r.items {
		if e.UserID == userID && (status == "" || e.Status == status) {
			out = append(out, e.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}
