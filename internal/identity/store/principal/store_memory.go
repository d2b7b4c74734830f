package principal

import (
	"context"
	"fmt"
	"sync"

	"torque/internal/identity/models"
	"torque/internal/sentinel"
	id "torque/pkg/domain"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return sentinel.ErrNotFound (wrapped) when the requested entity does not exist
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures

// InMemoryStore stores principals in memory for tests and development.
type InMemoryStore struct {
	mu         sync.RWMutex
	principals map[id.PrincipalID]*models.Principal
}

// New constructs an empty in-memory principal store.
func New() *InMemoryStore {
	return &InMemoryStore{principals: make(map[id.PrincipalID]*models.Principal)}
}

func (s *InMemoryStore) Save(_ context.Context, p *models.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principals[p.ID] = p
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, principalID id.PrincipalID) (*models.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.principals[principalID]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("principal not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*models.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.principals {
		if p.Email == email {
			return p, nil
		}
	}
	return nil, fmt.Errorf("principal not found: %w", sentinel.ErrNotFound)
}

var _ Store = (*InMemoryStore)(nil)
