package principal

import (
	"context"

	"torque/internal/identity/models"
	id "torque/pkg/domain"
)

// Store defines the persistence interface for principals.
// Error Contract: Find methods return sentinel.ErrNotFound (wrapped) when the
// entity doesn't exist.
type Store interface {
	Save(ctx context.Context, p *models.Principal) error
	FindByID(ctx context.Context, principalID id.PrincipalID) (*models.Principal, error)
	FindByEmail(ctx context.Context, email string) (*models.Principal, error)
}
