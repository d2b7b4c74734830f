package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"torque/internal/identity/models"
	"torque/internal/sentinel"
	id "torque/pkg/domain"
)

// InMemoryStore stores sessions in memory for tests and development.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*models.Session
}

// New constructs an empty in-memory session store.
func New() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[id.SessionID]*models.Session)}
}

func (s *InMemoryStore) Save(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, sessionID id.SessionID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if session, ok := s.sessions[sessionID]; ok {
		return session, nil
	}
	return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) RevokeByPrincipal(_ context.Context, principalID id.PrincipalID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	revoked := 0
	for _, session := range s.sessions {
		if session.PrincipalID == principalID && session.RevokedAt == nil {
			at := now
			session.RevokedAt = &at
			revoked++
		}
	}
	return revoked, nil
}

var _ Store = (*InMemoryStore)(nil)
