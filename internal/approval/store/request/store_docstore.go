package request

import (
	"context"
	"fmt"
	"sort"

	"torque/internal/approval/models"
	"torque/internal/docstore"
	"torque/internal/sentinel"
	id "torque/pkg/domain"
)

// Collection is the document collection approval requests live in.
const Collection = "approval_requests"

// DocStore persists approval requests through the document store collaborator.
type DocStore struct {
	docs docstore.Store
}

func New(docs docstore.Store) *DocStore {
	return &DocStore{docs: docs}
}

func (s *DocStore) Create(ctx context.Context, req *models.Request) error {
	doc, err := docstore.ToDocument(req)
	if err != nil {
		return err
	}
	if err := s.docs.Set(ctx, Collection, req.ID.String(), doc); err != nil {
		return fmt.Errorf("create request %s: %w", req.ID, err)
	}
	return nil
}

func (s *DocStore) Get(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	doc, err := s.docs.Get(ctx, Collection, requestID.String())
	if err != nil {
		return nil, err
	}
	return decode(doc)
}

func (s *DocStore) Patch(ctx context.Context, requestID id.RequestID, patch docstore.Patch) error {
	return s.docs.Update(ctx, Collection, requestID.String(), patch)
}

func (s *DocStore) Apply(ctx context.Context, requestID id.RequestID, fn func(*models.Request) (docstore.Patch, error)) error {
	return s.docs.Apply(ctx, Collection, requestID.String(), func(doc docstore.Document) (docstore.Patch, error) {
		req, err := decode(doc)
		if err != nil {
			return nil, err
		}
		return fn(req)
	})
}

func (s *DocStore) FindOpenByPrincipal(ctx context.Context, principalID id.PrincipalID) (*models.Request, error) {
	reqs, err := s.byPrincipal(ctx, principalID)
	if err != nil {
		return nil, err
	}
	for _, req := range reqs {
		if req.Status.IsOpen() {
			return req, nil
		}
	}
	return nil, fmt.Errorf("open request for %s: %w", principalID, sentinel.ErrNotFound)
}

func (s *DocStore) FindLatestByPrincipal(ctx context.Context, principalID id.PrincipalID) (*models.Request, error) {
	reqs, err := s.byPrincipal(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, fmt.Errorf("request for %s: %w", principalID, sentinel.ErrNotFound)
	}
	return reqs[0], nil
}

func (s *DocStore) ListPending(ctx context.Context) ([]*models.Request, error) {
	docs, err := s.docs.Query(ctx, Collection, func(doc docstore.Document) bool {
		status, _ := doc["status"].(string)
		return models.RequestStatus(status).IsOpen()
	})
	if err != nil {
		return nil, err
	}
	return decodeAll(docs)
}

// byPrincipal returns the principal's requests, newest first.
func (s *DocStore) byPrincipal(ctx context.Context, principalID id.PrincipalID) ([]*models.Request, error) {
	docs, err := s.docs.Query(ctx, Collection, func(doc docstore.Document) bool {
		pid, _ := doc["principal_id"].(string)
		return pid == principalID.String()
	})
	if err != nil {
		return nil, err
	}
	reqs, err := decodeAll(docs)
	if err != nil {
		return nil, err
	}
	sort.Slice(reqs, func(i, j int) bool {
		return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
	})
	return reqs, nil
}

func decodeAll(docs []docstore.Document) ([]*models.Request, error) {
	out := make([]*models.Request, 0, len(docs))
	for _, doc := range docs {
		req, err := decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

func decode(doc docstore.Document) (*models.Request, error) {
	var req models.Request
	if err := docstore.FromDocument(doc, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

var _ Store = (*DocStore)(nil)
