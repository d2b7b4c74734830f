// Package handler exposes the identity endpoints: login, session revocation,
// and profile/access administration.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"torque/internal/geo"
	"torque/internal/identity/models"
	"torque/internal/identity/service"
	"torque/internal/platform/middleware"
	"torque/internal/rbac"
	jsonResponse "torque/internal/transport/http/json"
	"torque/internal/transport/http/shared"
	id "torque/pkg/domain"
	dErrors "torque/pkg/domain-errors"
	s "torque/pkg/string"
	"torque/pkg/validation"
)

// Service defines the identity operations the handler delegates to.
type Service interface {
	Login(ctx context.Context, email, secret, userAgentString string) (*service.LoginResult, error)
	RevokeSessions(ctx context.Context, principalID id.PrincipalID) (int, error)
	Profile(ctx context.Context, principalID id.PrincipalID) (*models.RoleProfile, error)
	CheckPermission(profile *models.RoleProfile, token rbac.Permission, geoCtx *geo.Context) bool
	UpdateAccess(ctx context.Context, actorID, targetID id.PrincipalID, req service.UpdateAccessRequest) error
}

// Migrator upgrades legacy permission maps into role profiles.
type Migrator interface {
	MigrateIfNeeded(ctx context.Context, principalID id.PrincipalID) (*models.RoleProfile, error)
}

type Handler struct {
	identity Service
	migrator Migrator
	logger   *slog.Logger
}

func New(identity Service, migrator Migrator, logger *slog.Logger) *Handler {
	return &Handler{identity: identity, migrator: migrator, logger: logger}
}

// Register wires the public identity routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/identity/login", h.HandleLogin)
}

// RegisterProtected wires the routes that require an authenticated caller.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Get("/identity/profile", h.HandleOwnProfile)
	r.Post("/identity/migrate", h.HandleMigrate)
	r.Post("/identity/sessions/revoke", h.HandleRevokeSessions)
	r.Post("/identity/check", h.HandleCheckPermission)
	r.Put("/identity/profiles/{principal_id}/access", h.HandleUpdateAccess)
}

type loginRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Secret string `json:"secret" validate:"required"`
}

type loginResponse struct {
	AccessToken string              `json:"access_token"`
	SessionID   string              `json:"session_id"`
	Device      string              `json:"device"`
	Profile     *models.RoleProfile `json:"profile"`
}

// HandleLogin implements POST /identity/login.
// Verifies credentials and the profile gate, then issues a session token.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON in request body"))
		return
	}
	s.TrimStrings(&req.Email)
	if err := validation.Validate(req); err != nil {
		shared.WriteError(w, err)
		return
	}

	res, err := h.identity.Login(ctx, req.Email, req.Secret, r.UserAgent())
	if err != nil {
		h.logger.WarnContext(ctx, "login refused",
			"error", err,
			"request_id", requestID,
		)
		shared.WriteError(w, err)
		return
	}

	jsonResponse.WriteJSON(w, http.StatusOK, loginResponse{
		AccessToken: res.AccessToken,
		SessionID:   res.Session.ID.String(),
		Device:      res.Session.DeviceDisplayName,
		Profile:     res.Profile,
	})
}

// HandleOwnProfile implements GET /identity/profile for the caller.
func (h *Handler) HandleOwnProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principalID, ok := middleware.GetPrincipalID(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "not authenticated"))
		return
	}
	prof, err := h.identity.Profile(ctx, principalID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, prof)
}

// HandleMigrate implements POST /identity/migrate.
// Upgrades the caller's legacy permission map into a role profile. Calling it
// again after the profile is materialized is a no-op.
func (h *Handler) HandleMigrate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principalID, ok := middleware.GetPrincipalID(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "not authenticated"))
		return
	}
	prof, err := h.migrator.MigrateIfNeeded(ctx, principalID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, prof)
}

// HandleRevokeSessions implements POST /identity/sessions/revoke.
// Revokes every live session of the caller.
func (h *Handler) HandleRevokeSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principalID, ok := middleware.GetPrincipalID(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "not authenticated"))
		return
	}
	count, err := h.identity.RevokeSessions(ctx, principalID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, map[string]int{"revoked": count})
}

type checkRequest struct {
	Permission string `json:"permission" validate:"required"`
	Province   string `json:"province,omitempty"`
	Branch     string `json:"branch,omitempty"`
}

// HandleCheckPermission implements POST /identity/check.
// Resolves one permission token, optionally within a geographic context, for
// the caller's own profile.
func (h *Handler) HandleCheckPermission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principalID, ok := middleware.GetPrincipalID(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "not authenticated"))
		return
	}

	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON in request body"))
		return
	}
	s.TrimStrings(&req.Permission, &req.Province, &req.Branch)
	if err := validation.Validate(req); err != nil {
		shared.WriteError(w, err)
		return
	}

	prof, err := h.identity.Profile(ctx, principalID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var geoCtx *geo.Context
	if req.Province != "" || req.Branch != "" {
		geoCtx = &geo.Context{
			Province: geo.ProvinceKey(req.Province),
			Branch:   geo.BranchKey(req.Branch),
		}
	}
	allowed := h.identity.CheckPermission(prof, rbac.Permission(req.Permission), geoCtx)
	jsonResponse.WriteJSON(w, http.StatusOK, map[string]bool{"allowed": allowed})
}

type updateAccessRequest struct {
	Role        *string     `json:"role,omitempty"`
	Permissions []string    `json:"permissions,omitempty"`
	Geographic  *geo.Access `json:"geographic,omitempty"`
}

// HandleUpdateAccess implements PUT /identity/profiles/{principal_id}/access.
// Administrator mutation of a profile's role, permissions, or scope.
func (h *Handler) HandleUpdateAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := middleware.GetPrincipalID(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "not authenticated"))
		return
	}
	targetID, err := id.ParsePrincipalID(chi.URLParam(r, "principal_id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid principal id"))
		return
	}

	var req updateAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON in request body"))
		return
	}

	var update service.UpdateAccessRequest
	if req.Role != nil {
		role := rbac.RoleKey(*req.Role)
		update.Role = &role
	}
	if req.Permissions != nil {
		perms := make([]rbac.Permission, 0, len(req.Permissions))
		for _, p := range req.Permissions {
			perms = append(perms, rbac.Permission(p))
		}
		set := rbac.NewSet(perms...)
		update.Permissions = &set
	}
	update.Geographic = req.Geographic

	if err := h.identity.UpdateAccess(ctx, actorID, targetID, update); err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
