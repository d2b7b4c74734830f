package service

import (
	"context"
	"errors"
	"time"

	"torque/internal/audit"
	"torque/internal/docstore"
	"torque/internal/geo"
	"torque/internal/identity/models"
	"torque/internal/rbac"
	"torque/internal/sentinel"
	id "torque/pkg/domain"
	dErrors "torque/pkg/domain-errors"
)

// CheckPermission answers whether the profile may perform the operation named
// by token, optionally within a geographic context. A nil geographic context
// checks the permission alone; a non-nil context additionally requires the
// profile's geographic scope to cover it. A profile without a geographic
// descriptor fails any scoped check - fail closed.
func (s *Service) CheckPermission(profile *models.RoleProfile, token rbac.Permission, geoCtx *geo.Context) bool {
	allowed := profile != nil && rbac.Check(profile.Permissions, token)
	if allowed && geoCtx != nil {
		allowed = profile.Geographic != nil && geo.Check(*profile.Geographic, *geoCtx)
	}
	if s.metrics != nil {
		outcome := "denied"
		if allowed {
			outcome = "allowed"
		}
		s.metrics.PermissionChecks.WithLabelValues(outcome).Inc()
	}
	return allowed
}

// UpdateAccessRequest carries the fields an administrator may change on a
// profile. Nil fields are left untouched.
type UpdateAccessRequest struct {
	Role        *rbac.RoleKey
	Permissions *rbac.Set
	Geographic  *geo.Access
}

// UpdateAccess is the explicit administrator mutation of a profile's role,
// permission set, or geographic scope. The actor needs users.manage and a
// geographic scope covering the target's home branch. The write is a targeted
// field patch so concurrent approval transitions on the same profile are
// never clobbered.
func (s *Service) UpdateAccess(ctx context.Context, actorID, targetID id.PrincipalID, req UpdateAccessRequest) error {
	if req.Role == nil && req.Permissions == nil && req.Geographic == nil {
		return dErrors.New(dErrors.CodeValidation, "nothing to update")
	}
	if req.Role != nil && !req.Role.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown role")
	}
	if req.Geographic != nil && !req.Geographic.Level.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown access level")
	}

	actor, err := s.profiles.Get(ctx, actorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeForbidden, "actor has no access profile")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load actor profile")
	}
	if !rbac.Check(actor.Permissions, rbac.Combine(rbac.DeptUsers, rbac.ActionManage)) {
		return dErrors.New(dErrors.CodeForbidden, "users.manage permission required")
	}

	target, err := s.profiles.Get(ctx, targetID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "target profile not found")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load target profile")
	}

	targetCtx := geo.Context{}
	if target.Geographic != nil {
		targetCtx = geo.Context{
			Province: target.Geographic.HomeProvince,
			Branch:   target.Geographic.HomeBranch,
		}
	}
	if actor.Geographic == nil || !geo.Check(*actor.Geographic, targetCtx) {
		return dErrors.New(dErrors.CodeForbidden, "target is outside actor's geographic scope")
	}

	patch := docstore.Patch{"updated_at": time.Now()}
	if req.Role != nil {
		patch["role"] = req.Role.String()
		if req.Permissions == nil {
			// Assigning a catalogued role without an explicit permission set
			// resets the set to the catalogue entry.
			if perms, ok := rbac.RolePermissions[*req.Role]; ok {
				patch["permissions"] = perms.Slice()
			}
		}
	}
	if req.Permissions != nil {
		patch["permissions"] = req.Permissions.Slice()
	}
	if req.Geographic != nil {
		patch["geographic"] = req.Geographic
	}

	if err := s.profiles.Patch(ctx, targetID, patch); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to update access")
	}

	s.logAudit(ctx, string(audit.EventAccessUpdated),
		"principal_id", targetID.String(),
		"actor_id", actorID.String(),
	)
	return nil
}

// Profile returns the principal's materialized access profile.
func (s *Service) Profile(ctx context.Context, principalID id.PrincipalID) (*models.RoleProfile, error) {
	prof, err := s.profiles.Get(ctx, principalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load profile")
	}
	return prof, nil
}
