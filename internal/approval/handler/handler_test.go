package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"torque/internal/approval/models"
	"torque/internal/approval/service"
	"torque/internal/platform/middleware"
	id "torque/pkg/domain"
	dErrors "torque/pkg/domain-errors"
)

// stubService records the last call and answers with canned results.
type stubService struct {
	submitIn  service.SubmitRequest
	submitOut *models.Request
	submitErr error

	approveErr error
	rejectIn   string
	rejectErr  error
}

func (s *stubService) Submit(_ context.Context, in service.SubmitRequest) (*models.Request, error) {
	s.submitIn = in
	return s.submitOut, s.submitErr
}

func (s *stubService) Approve(context.Context, id.PrincipalID, id.RequestID) error {
	return s.approveErr
}

func (s *stubService) Reject(_ context.Context, _ id.PrincipalID, _ id.RequestID, reason string) error {
	s.rejectIn = reason
	return s.rejectErr
}

func (s *stubService) Reapply(context.Context, id.PrincipalID, string) (*models.Request, error) {
	return nil, nil
}

func (s *stubService) Suspend(context.Context, id.PrincipalID, id.PrincipalID, string) error {
	return nil
}

func (s *stubService) Reinstate(context.Context, id.PrincipalID, id.PrincipalID) error {
	return nil
}

func (s *stubService) ListPending(context.Context, id.PrincipalID) ([]*models.Request, error) {
	return nil, nil
}

func (s *stubService) WatchProfile(context.Context, id.PrincipalID) (<-chan service.ProfileEvent, func(), error) {
	return nil, nil, nil
}

type HandlerSuite struct {
	suite.Suite
	stub   *stubService
	router chi.Router
	caller id.PrincipalID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.stub = &stubService{}
	s.caller = id.NewPrincipalID()

	h := New(s.stub, slog.Default())
	s.router = chi.NewRouter()
	h.Register(s.router)
}

// do performs a request with an authenticated principal in context.
func (s *HandlerSuite) do(method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req = req.WithContext(middleware.WithPrincipalID(req.Context(), s.caller))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) errorCode(rec *httptest.ResponseRecorder) string {
	var envelope map[string]string
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope["error"]
}

func (s *HandlerSuite) TestSubmit() {
	s.Run("created", func() {
		s.stub.submitOut = &models.Request{
			ID:          id.NewRequestID(),
			PrincipalID: s.caller,
			Status:      models.RequestStatusPending,
		}
		body := []byte(`{"request_type":"new_employee","branch":" NSN002 "}`)
		rec := s.do(http.MethodPost, "/approval/requests", body)

		s.Equal(http.StatusCreated, rec.Code)
		s.Equal(s.caller, s.stub.submitIn.PrincipalID)
		// Handler trims before handing off.
		s.Equal("NSN002", string(s.stub.submitIn.TargetBranch))
	})

	s.Run("invalid json", func() {
		rec := s.do(http.MethodPost, "/approval/requests", []byte(`{`))
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Equal("bad_request", s.errorCode(rec))
	})

	s.Run("missing branch", func() {
		rec := s.do(http.MethodPost, "/approval/requests", []byte(`{"request_type":"new_employee"}`))
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Equal("validation_failed", s.errorCode(rec))
	})

	s.Run("service conflict surfaces as 409", func() {
		s.stub.submitErr = dErrors.New(dErrors.CodeConflict, "profile in status \"approved\" cannot move to pending")
		body := []byte(`{"request_type":"new_employee","branch":"NSN002"}`)
		rec := s.do(http.MethodPost, "/approval/requests", body)
		s.Equal(http.StatusConflict, rec.Code)
		s.Equal("conflict", s.errorCode(rec))
		s.stub.submitErr = nil
	})
}

func (s *HandlerSuite) TestApprove() {
	target := "/approval/requests/" + id.NewRequestID().String() + "/approve"

	s.Run("ok", func() {
		rec := s.do(http.MethodPost, target, nil)
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("already decided", func() {
		s.stub.approveErr = dErrors.New(dErrors.CodeConflict, "request already approved")
		rec := s.do(http.MethodPost, target, nil)
		s.Equal(http.StatusConflict, rec.Code)
		s.stub.approveErr = nil
	})

	s.Run("malformed request id", func() {
		rec := s.do(http.MethodPost, "/approval/requests/not-a-uuid/approve", nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("forbidden decider", func() {
		s.stub.approveErr = dErrors.New(dErrors.CodeForbidden, "request requires the province_manager tier")
		rec := s.do(http.MethodPost, target, nil)
		s.Equal(http.StatusForbidden, rec.Code)
		s.stub.approveErr = nil
	})
}

func (s *HandlerSuite) TestReject() {
	target := "/approval/requests/" + id.NewRequestID().String() + "/reject"

	s.Run("reason required", func() {
		rec := s.do(http.MethodPost, target, []byte(`{"reason":"  "}`))
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Equal("validation_failed", s.errorCode(rec))
	})

	s.Run("ok", func() {
		rec := s.do(http.MethodPost, target, []byte(`{"reason":"incomplete references"}`))
		s.Equal(http.StatusOK, rec.Code)
		s.Equal("incomplete references", s.stub.rejectIn)
	})
}

func (s *HandlerSuite) TestUnauthenticated() {
	req := httptest.NewRequest(http.MethodPost, "/approval/requests", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusUnauthorized, rec.Code)
}
