package session

import (
	"context"

	"torque/internal/identity/models"
	id "torque/pkg/domain"
)

// Store defines the persistence interface for sessions.
// Error Contract: Find methods return sentinel.ErrNotFound (wrapped) when the
// entity doesn't exist.
type Store interface {
	Save(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error)

	// RevokeByPrincipal force-ends every live session of the principal.
	// Returns the number of sessions revoked.
	RevokeByPrincipal(ctx context.Context, principalID id.PrincipalID) (int, error)
}
