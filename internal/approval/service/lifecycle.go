package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"torque/internal/approval/models"
	"torque/internal/audit"
	"torque/internal/docstore"
	"torque/internal/geo"
	imodels "torque/internal/identity/models"
	"torque/internal/platform/tracer"
	"torque/internal/rbac"
	"torque/internal/sentinel"
	id "torque/pkg/domain"
	dErrors "torque/pkg/domain-errors"
)

// Suspend takes an approved profile out of service and revokes every live
// session, so the suspension bites immediately rather than at next login.
func (s *Service) Suspend(ctx context.Context, actorID, principalID id.PrincipalID, reason string) (err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanSuspend,
		tracer.String(tracer.AttrPrincipalID, principalID.String()),
	)
	defer func() { span.End(err) }()

	if err := s.authorizeAdmin(ctx, actorID, principalID); err != nil {
		return err
	}
	if err := s.transitionProfile(ctx, principalID, imodels.ApprovalStatusSuspended, false); err != nil {
		return err
	}

	if s.sessions != nil {
		revoked, revokeErr := s.sessions.RevokeSessions(ctx, principalID)
		if revokeErr != nil {
			s.logger.ErrorContext(ctx, "failed to revoke sessions on suspension",
				"principal_id", principalID.String(),
				"error", revokeErr,
			)
		} else {
			s.logger.InfoContext(ctx, "sessions revoked on suspension",
				"principal_id", principalID.String(),
				"count", revoked,
			)
		}
	}

	s.logAudit(ctx, audit.EventProfileSuspended, audit.Event{
		PrincipalID: actorID.String(),
		Subject:     principalID.String(),
		Reason:      reason,
	})
	return nil
}

// Reinstate returns a suspended profile to service. Existing sessions are
// gone; the principal logs in again.
func (s *Service) Reinstate(ctx context.Context, actorID, principalID id.PrincipalID) (err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanReinstate,
		tracer.String(tracer.AttrPrincipalID, principalID.String()),
	)
	defer func() { span.End(err) }()

	if err := s.authorizeAdmin(ctx, actorID, principalID); err != nil {
		return err
	}
	if err := s.transitionProfile(ctx, principalID, imodels.ApprovalStatusApproved, true); err != nil {
		return err
	}

	s.logAudit(ctx, audit.EventProfileReinstated, audit.Event{
		PrincipalID: actorID.String(),
		Subject:     principalID.String(),
	})
	return nil
}

// authorizeAdmin checks the actor holds users.manage and that their scope
// covers the target's home branch.
func (s *Service) authorizeAdmin(ctx context.Context, actorID, targetID id.PrincipalID) error {
	prof, err := s.profiles.Get(ctx, actorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeForbidden, "actor has no access profile")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load actor profile")
	}
	if !prof.Status().MayAuthenticate() {
		return dErrors.New(dErrors.CodeForbidden, "actor profile is not active")
	}
	if !rbac.Check(prof.Permissions, rbac.Combine(rbac.DeptUsers, rbac.ActionManage)) {
		return dErrors.New(dErrors.CodeForbidden, "actor lacks user management permission")
	}
	if prof.Geographic == nil {
		return dErrors.New(dErrors.CodeForbidden, "actor has no geographic grant")
	}

	target, err := s.principals.FindByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "principal not found")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load principal")
	}
	if !geo.Check(*prof.Geographic, geo.Context{Branch: target.HomeBranch}) {
		return dErrors.New(dErrors.CodeForbidden, "principal is outside the actor's scope")
	}
	return nil
}

// transitionProfile moves the profile to the target approval status under the
// state machine, flipping is_active to match.
func (s *Service) transitionProfile(ctx context.Context, principalID id.PrincipalID, target imodels.ApprovalStatus, active bool) error {
	err := s.profiles.Apply(ctx, principalID, func(prof *imodels.RoleProfile) (docstore.Patch, error) {
		if !prof.ApprovalStatus.CanTransitionTo(target) {
			return nil, dErrors.New(dErrors.CodeConflict,
				fmt.Sprintf("profile in status %q cannot move to %q", prof.ApprovalStatus, target))
		}
		return docstore.Patch{
			"approval_status": string(target),
			"is_active":       active,
			"updated_at":      time.Now(),
		}, nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		var derr *dErrors.Error
		if errors.As(err, &derr) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to update profile")
	}
	return nil
}

// ProfileEvent is one committed change to a watched profile.
type ProfileEvent struct {
	Profile *imodels.RoleProfile
	Status  imodels.IdentityStatus
}

// WatchProfile streams every committed change to the principal's profile
// until ctx is cancelled or the returned cancel func is called. The channel
// is closed on cancellation; a slow consumer drops events rather than
// blocking the store's delivery goroutines.
func (s *Service) WatchProfile(ctx context.Context, principalID id.PrincipalID) (<-chan ProfileEvent, func(), error) {
	if _, err := s.profiles.Get(ctx, principalID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load profile")
	}

	// Store callbacks may still fire after Cancel returns, so they write to a
	// channel nobody closes; the forwarder owns closing the consumer channel.
	raw := make(chan ProfileEvent, 16)
	sub, err := s.profiles.Watch(ctx, principalID, func(prof *imodels.RoleProfile) {
		select {
		case raw <- ProfileEvent{Profile: prof, Status: prof.Status()}:
		default:
		}
	})
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to subscribe")
	}
	if s.metrics != nil {
		s.metrics.WatchSubscriptions.Inc()
	}

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			sub.Cancel()
			close(done)
			if s.metrics != nil {
				s.metrics.WatchSubscriptions.Dec()
			}
		})
	}

	events := make(chan ProfileEvent, 16)
	go func() {
		defer close(events)
		for {
			select {
			case <-done:
				return
			case ev := <-raw:
				select {
				case events <- ev:
				case <-done:
					return
				}
			}
		}
	}()
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return events, cancel, nil
}

// ListPending returns the open requests the actor is allowed to decide,
// filtered to their geographic scope.
func (s *Service) ListPending(ctx context.Context, actorID id.PrincipalID) ([]*models.Request, error) {
	prof, err := s.profiles.Get(ctx, actorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeForbidden, "actor has no access profile")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load actor profile")
	}
	canDecide := rbac.Check(prof.Permissions, rbac.Combine(rbac.DeptUsers, rbac.ActionApprove)) ||
		rbac.Check(prof.Permissions, rbac.Combine(rbac.DeptUsers, rbac.ActionManage))
	if !canDecide {
		return nil, dErrors.New(dErrors.CodeForbidden, "actor lacks user approval permission")
	}
	if prof.Geographic == nil {
		return nil, dErrors.New(dErrors.CodeForbidden, "actor has no geographic grant")
	}

	pending, err := s.requests.ListPending(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list requests")
	}
	return geo.Filter(pending, *prof.Geographic, func(req *models.Request) geo.Tag {
		return geo.Tag{Province: req.TargetProvince, Branch: req.TargetBranch}
	}), nil
}
