package profile

import (
	"context"
	"fmt"

	"torque/internal/docstore"
	"torque/internal/identity/models"
	id "torque/pkg/domain"
)

// Collection is the document collection role profiles live in.
const Collection = "role_profiles"

// DocStore persists role profiles through the document store collaborator.
type DocStore struct {
	docs docstore.Store
}

// New constructs a profile store over the given document store.
func New(docs docstore.Store) *DocStore {
	return &DocStore{docs: docs}
}

func (s *DocStore) Create(ctx context.Context, p *models.RoleProfile) error {
	doc, err := docstore.ToDocument(p)
	if err != nil {
		return err
	}
	if err := s.docs.Set(ctx, Collection, p.PrincipalID.String(), doc); err != nil {
		return fmt.Errorf("create profile %s: %w", p.PrincipalID, err)
	}
	return nil
}

func (s *DocStore) Get(ctx context.Context, principalID id.PrincipalID) (*models.RoleProfile, error) {
	doc, err := s.docs.Get(ctx, Collection, principalID.String())
	if err != nil {
		return nil, err
	}
	return decode(doc)
}

func (s *DocStore) Patch(ctx context.Context, principalID id.PrincipalID, patch docstore.Patch) error {
	return s.docs.Update(ctx, Collection, principalID.String(), patch)
}

func (s *DocStore) Apply(ctx context.Context, principalID id.PrincipalID, fn func(*models.RoleProfile) (docstore.Patch, error)) error {
	return s.docs.Apply(ctx, Collection, principalID.String(), func(doc docstore.Document) (docstore.Patch, error) {
		p, err := decode(doc)
		if err != nil {
			return nil, err
		}
		return fn(p)
	})
}

func (s *DocStore) Watch(ctx context.Context, principalID id.PrincipalID, onChange func(*models.RoleProfile)) (docstore.Subscription, error) {
	return s.docs.Subscribe(ctx, Collection, principalID.String(), func(doc docstore.Document) {
		p, err := decode(doc)
		if err != nil {
			// A malformed committed profile is a programming error upstream;
			// a watcher can only skip the event.
			return
		}
		onChange(p)
	})
}

func (s *DocStore) List(ctx context.Context) ([]*models.RoleProfile, error) {
	docs, err := s.docs.Query(ctx, Collection, nil)
	if err != nil {
		return nil, err
	}
	out := make([]*models.RoleProfile, 0, len(docs))
	for _, doc := range docs {
		p, err := decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func decode(doc docstore.Document) (*models.RoleProfile, error) {
	var p models.RoleProfile
	if err := docstore.FromDocument(doc, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

var _ Store = (*DocStore)(nil)
