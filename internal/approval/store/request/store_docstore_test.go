package request

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"torque/internal/approval/models"
	"torque/internal/docstore"
	"torque/internal/sentinel"
	id "torque/pkg/domain"
)

type RequestStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *DocStore
}

func TestRequestStoreSuite(t *testing.T) {
	suite.Run(t, new(RequestStoreSuite))
}

func (s *RequestStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = New(docstore.NewMemory())
}

func (s *RequestStoreSuite) newRequest(principalID id.PrincipalID, status models.RequestStatus, createdAt time.Time) *models.Request {
	return &models.Request{
		ID:          id.NewRequestID(),
		PrincipalID: principalID,
		RequestType: models.RequestTypeNewEmployee,
		Status:      status,
		CreatedAt:   createdAt,
	}
}

func (s *RequestStoreSuite) TestFindOpenByPrincipal() {
	principalID := id.NewPrincipalID()
	now := time.Now()

	open := s.newRequest(principalID, models.RequestStatusPending, now)
	s.Require().NoError(s.store.Create(s.ctx, s.newRequest(principalID, models.RequestStatusSuperseded, now.Add(-time.Hour))))
	s.Require().NoError(s.store.Create(s.ctx, open))
	s.Require().NoError(s.store.Create(s.ctx, s.newRequest(id.NewPrincipalID(), models.RequestStatusPending, now)))

	found, err := s.store.FindOpenByPrincipal(s.ctx, principalID)
	s.Require().NoError(err)
	s.Equal(open.ID, found.ID)
	s.Equal(principalID, found.PrincipalID)
}

func (s *RequestStoreSuite) TestFindOpenByPrincipalNotFound() {
	principalID := id.NewPrincipalID()
	s.Require().NoError(s.store.Create(s.ctx, s.newRequest(principalID, models.RequestStatusApproved, time.Now())))

	_, err := s.store.FindOpenByPrincipal(s.ctx, principalID)
	s.Require().Error(err)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *RequestStoreSuite) TestFindLatestByPrincipalOrdersByCreation() {
	principalID := id.NewPrincipalID()
	now := time.Now()

	s.Require().NoError(s.store.Create(s.ctx, s.newRequest(principalID, models.RequestStatusRejected, now.Add(-2*time.Hour))))
	latest := s.newRequest(principalID, models.RequestStatusRejected, now)
	s.Require().NoError(s.store.Create(s.ctx, latest))
	s.Require().NoError(s.store.Create(s.ctx, s.newRequest(principalID, models.RequestStatusSuperseded, now.Add(-time.Hour))))

	found, err := s.store.FindLatestByPrincipal(s.ctx, principalID)
	s.Require().NoError(err)
	s.Equal(latest.ID, found.ID)
}

func (s *RequestStoreSuite) TestGetRoundTripsIdentifiers() {
	principalID := id.NewPrincipalID()
	created := s.newRequest(principalID, models.RequestStatusPending, time.Now())
	s.Require().NoError(s.store.Create(s.ctx, created))

	got, err := s.store.Get(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created.ID, got.ID)
	s.Equal(principalID, got.PrincipalID)
}
