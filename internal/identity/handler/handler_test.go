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

	"torque/internal/geo"
	"torque/internal/identity/models"
	"torque/internal/identity/service"
	"torque/internal/platform/middleware"
	"torque/internal/rbac"
	id "torque/pkg/domain"
	dErrors "torque/pkg/domain-errors"
)

type stubService struct {
	loginEmail  string
	loginSecret string
	loginOut    *service.LoginResult
	loginErr    error

	profileOut *models.RoleProfile
	profileErr error

	checkAllowed bool
	checkToken   rbac.Permission
	checkGeo     *geo.Context

	updateIn  service.UpdateAccessRequest
	updateErr error
}

func (s *stubService) Login(_ context.Context, email, secret, _ string) (*service.LoginResult, error) {
	s.loginEmail = email
	s.loginSecret = secret
	return s.loginOut, s.loginErr
}

func (s *stubService) RevokeSessions(context.Context, id.PrincipalID) (int, error) {
	return 2, nil
}

func (s *stubService) Profile(context.Context, id.PrincipalID) (*models.RoleProfile, error) {
	return s.profileOut, s.profileErr
}

func (s *stubService) CheckPermission(_ *models.RoleProfile, token rbac.Permission, geoCtx *geo.Context) bool {
	s.checkToken = token
	s.checkGeo = geoCtx
	return s.checkAllowed
}

func (s *stubService) UpdateAccess(_ context.Context, _, _ id.PrincipalID, req service.UpdateAccessRequest) error {
	s.updateIn = req
	return s.updateErr
}

type stubMigrator struct {
	out *models.RoleProfile
}

func (m *stubMigrator) MigrateIfNeeded(context.Context, id.PrincipalID) (*models.RoleProfile, error) {
	return m.out, nil
}

type IdentityHandlerSuite struct {
	suite.Suite
	stub   *stubService
	router chi.Router
	caller id.PrincipalID
}

func TestIdentityHandlerSuite(t *testing.T) {
	suite.Run(t, new(IdentityHandlerSuite))
}

func (s *IdentityHandlerSuite) SetupTest() {
	s.stub = &stubService{}
	s.caller = id.NewPrincipalID()

	h := New(s.stub, &stubMigrator{}, slog.Default())
	s.router = chi.NewRouter()
	h.Register(s.router)
	h.RegisterProtected(s.router)
}

func (s *IdentityHandlerSuite) do(method, target string, body []byte, authenticated bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if authenticated {
		req = req.WithContext(middleware.WithPrincipalID(req.Context(), s.caller))
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *IdentityHandlerSuite) TestLogin() {
	s.Run("ok", func() {
		s.stub.loginOut = &service.LoginResult{
			AccessToken: "token-abc",
			Session: &models.Session{
				ID:                id.NewSessionID(),
				PrincipalID:       s.caller,
				DeviceDisplayName: "Chrome on macOS",
			},
			Profile: &models.RoleProfile{PrincipalID: s.caller},
		}
		body := []byte(`{"email":" alice@torque.example ","secret":"s3cret"}`)
		rec := s.do(http.MethodPost, "/identity/login", body, false)

		s.Equal(http.StatusOK, rec.Code)
		s.Equal("alice@torque.example", s.stub.loginEmail)

		var resp map[string]any
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Equal("token-abc", resp["access_token"])
		s.Equal("Chrome on macOS", resp["device"])
	})

	s.Run("malformed email", func() {
		rec := s.do(http.MethodPost, "/identity/login", []byte(`{"email":"nope","secret":"x"}`), false)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("bad credentials", func() {
		s.stub.loginErr = dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		body := []byte(`{"email":"alice@torque.example","secret":"wrong"}`)
		rec := s.do(http.MethodPost, "/identity/login", body, false)
		s.Equal(http.StatusUnauthorized, rec.Code)
		s.stub.loginErr = nil
	})

	s.Run("suspended profile", func() {
		s.stub.loginErr = dErrors.New(dErrors.CodeForbidden, "account is suspended")
		body := []byte(`{"email":"alice@torque.example","secret":"s3cret"}`)
		rec := s.do(http.MethodPost, "/identity/login", body, false)
		s.Equal(http.StatusForbidden, rec.Code)
		s.Contains(rec.Body.String(), "suspended")
		s.stub.loginErr = nil
	})
}

func (s *IdentityHandlerSuite) TestCheckPermission() {
	s.stub.profileOut = &models.RoleProfile{PrincipalID: s.caller}
	s.stub.checkAllowed = true

	s.Run("scoped check forwards the geographic context", func() {
		body := []byte(`{"permission":"users.approve","province":"nakhonsawan","branch":"NSN002"}`)
		rec := s.do(http.MethodPost, "/identity/check", body, true)

		s.Equal(http.StatusOK, rec.Code)
		s.Equal(rbac.Permission("users.approve"), s.stub.checkToken)
		s.Require().NotNil(s.stub.checkGeo)
		s.Equal(geo.BranchKey("NSN002"), s.stub.checkGeo.Branch)
		s.Contains(rec.Body.String(), `"allowed":true`)
	})

	s.Run("unscoped check passes a nil context", func() {
		rec := s.do(http.MethodPost, "/identity/check", []byte(`{"permission":"sales.view"}`), true)
		s.Equal(http.StatusOK, rec.Code)
		s.Nil(s.stub.checkGeo)
	})

	s.Run("requires authentication", func() {
		rec := s.do(http.MethodPost, "/identity/check", []byte(`{"permission":"sales.view"}`), false)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})
}

func (s *IdentityHandlerSuite) TestRevokeSessions() {
	rec := s.do(http.MethodPost, "/identity/sessions/revoke", nil, true)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"revoked":2`)
}

func (s *IdentityHandlerSuite) TestUpdateAccess() {
	target := "/identity/profiles/" + id.NewPrincipalID().String() + "/access"

	s.Run("role only", func() {
		rec := s.do(http.MethodPut, target, []byte(`{"role":"branch_manager"}`), true)
		s.Equal(http.StatusOK, rec.Code)
		s.Require().NotNil(s.stub.updateIn.Role)
		s.Equal(rbac.RoleKey("branch_manager"), *s.stub.updateIn.Role)
		s.Nil(s.stub.updateIn.Permissions)
	})

	s.Run("explicit permissions become a set", func() {
		body := []byte(`{"permissions":["sales.view","reports.view"]}`)
		rec := s.do(http.MethodPut, target, body, true)
		s.Equal(http.StatusOK, rec.Code)
		s.Require().NotNil(s.stub.updateIn.Permissions)
		s.True(s.stub.updateIn.Permissions.Contains(rbac.Permission("reports.view")))
	})

	s.Run("forbidden actor", func() {
		s.stub.updateErr = dErrors.New(dErrors.CodeForbidden, "requires users.manage")
		rec := s.do(http.MethodPut, target, []byte(`{"role":"sales_staff"}`), true)
		s.Equal(http.StatusForbidden, rec.Code)
		s.stub.updateErr = nil
	})
}
