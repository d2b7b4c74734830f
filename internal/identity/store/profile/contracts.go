package profile

import (
	"context"

	"torque/internal/docstore"
	"torque/internal/identity/models"
	id "torque/pkg/domain"
)

// Store defines the persistence interface for role profiles. Profiles live in
// the hosted document store; every mutation is a targeted field patch so
// concurrent unrelated edits are never clobbered.
//
// Error Contract: Get, Patch, and Apply return sentinel.ErrNotFound (wrapped)
// when the profile doesn't exist.
type Store interface {
	Create(ctx context.Context, profile *models.RoleProfile) error
	Get(ctx context.Context, principalID id.PrincipalID) (*models.RoleProfile, error)
	Patch(ctx context.Context, principalID id.PrincipalID, patch docstore.Patch) error

	// Apply runs an atomic read-modify-write on the profile: fn sees the
	// current profile and returns the patch to commit, or an error to abort.
	Apply(ctx context.Context, principalID id.PrincipalID, fn func(*models.RoleProfile) (docstore.Patch, error)) error

	// Watch registers onChange for every subsequent commit to the profile.
	// The returned handle is owned by the caller; it dies with ctx or with
	// an explicit Cancel.
	Watch(ctx context.Context, principalID id.PrincipalID, onChange func(*models.RoleProfile)) (docstore.Subscription, error)

	List(ctx context.Context) ([]*models.RoleProfile, error)
}
