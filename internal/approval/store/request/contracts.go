package request

import (
	"context"

	"torque/internal/approval/models"
	"torque/internal/docstore"
	id "torque/pkg/domain"
)

// Store persists approval requests.
//
// FindOpenByPrincipal returns sentinel.ErrNotFound (wrapped) when the
// principal has no pending request.
type Store interface {
	Create(ctx context.Context, req *models.Request) error
	Get(ctx context.Context, requestID id.RequestID) (*models.Request, error)
	Patch(ctx context.Context, requestID id.RequestID, patch docstore.Patch) error

	// Apply runs an atomic read-modify-write against one request document.
	// Two concurrent closers are serialized; the loser sees the winner's
	// committed status and can refuse to write.
	Apply(ctx context.Context, requestID id.RequestID, fn func(*models.Request) (docstore.Patch, error)) error

	FindOpenByPrincipal(ctx context.Context, principalID id.PrincipalID) (*models.Request, error)
	FindLatestByPrincipal(ctx context.Context, principalID id.PrincipalID) (*models.Request, error)
	ListPending(ctx context.Context) ([]*models.Request, error)
}
