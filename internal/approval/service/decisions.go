package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"torque/internal/approval/models"
	"torque/internal/audit"
	"torque/internal/docstore"
	"torque/internal/geo"
	imodels "torque/internal/identity/models"
	"torque/internal/notify"
	"torque/internal/platform/tracer"
	"torque/internal/rbac"
	"torque/internal/sentinel"
	id "torque/pkg/domain"
	dErrors "torque/pkg/domain-errors"
)

type decision string

const (
	decisionApprove decision = "approve"
	decisionReject  decision = "reject"
)

// Approve closes the request in the applicant's favor and opens the profile
// gate. Between two concurrent deciders the store serializes the close: the
// first write wins and the second caller gets a conflict.
func (s *Service) Approve(ctx context.Context, approverID id.PrincipalID, requestID id.RequestID) (err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanApprove,
		tracer.String(tracer.AttrRequestID, requestID.String()),
	)
	defer func() { span.End(err) }()

	if err := s.authorizeDecider(ctx, approverID, requestID); err != nil {
		return err
	}
	return s.close(ctx, approverID.String(), requestID, decisionApprove, "")
}

// Reject closes the request against the applicant, recording the mandatory
// reason on the profile. Sessions are untouched: a rejected applicant never
// had any.
func (s *Service) Reject(ctx context.Context, approverID id.PrincipalID, requestID id.RequestID, reason string) (err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanReject,
		tracer.String(tracer.AttrRequestID, requestID.String()),
	)
	defer func() { span.End(err) }()

	if reason == "" {
		return dErrors.New(dErrors.CodeValidation, "rejection reason is required")
	}
	if err := s.authorizeDecider(ctx, approverID, requestID); err != nil {
		return err
	}
	return s.close(ctx, approverID.String(), requestID, decisionReject, reason)
}

// authorizeDecider checks that the approver holds a users.approve or
// users.manage grant, sits at the tier the request demands, and that their
// geographic scope covers the request target.
func (s *Service) authorizeDecider(ctx context.Context, approverID id.PrincipalID, requestID id.RequestID) error {
	req, err := s.getRequest(ctx, requestID)
	if err != nil {
		return err
	}

	prof, err := s.profiles.Get(ctx, approverID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeForbidden, "approver has no access profile")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load approver profile")
	}
	if !prof.Status().MayAuthenticate() {
		return dErrors.New(dErrors.CodeForbidden, "approver profile is not active")
	}
	canDecide := rbac.Check(prof.Permissions, rbac.Combine(rbac.DeptUsers, rbac.ActionApprove)) ||
		rbac.Check(prof.Permissions, rbac.Combine(rbac.DeptUsers, rbac.ActionManage))
	if !canDecide {
		return dErrors.New(dErrors.CodeForbidden, "approver lacks user approval permission")
	}
	if !tierSatisfied(prof.Role, req.ApprovalLevel) {
		return dErrors.New(dErrors.CodeForbidden,
			fmt.Sprintf("request requires the %s tier", req.ApprovalLevel))
	}
	if prof.Geographic == nil {
		return dErrors.New(dErrors.CodeForbidden, "approver has no geographic grant")
	}
	covered := geo.Check(*prof.Geographic, geo.Context{
		Province: req.TargetProvince,
		Branch:   req.TargetBranch,
	})
	if !covered {
		return dErrors.New(dErrors.CodeForbidden, "request target is outside the approver's scope")
	}
	return nil
}

// tierSatisfied reports whether the role sits at or above the tier a request
// demands. Branch-tier requests accept any managerial role; province-tier
// requests need the province manager or higher.
func tierSatisfied(role rbac.RoleKey, level models.ApprovalLevel) bool {
	switch level {
	case models.ApprovalLevelBranchManager:
		return role.IsManagerial()
	case models.ApprovalLevelProvinceManager:
		switch role {
		case rbac.RoleSuperAdmin, rbac.RoleExecutive, rbac.RoleProvinceManager:
			return true
		}
		return false
	default:
		return false
	}
}

// close commits the decision: first the request document, then the profile.
// The request write is the linearization point; once it commits the decision
// stands even if a later step has to be retried.
func (s *Service) close(ctx context.Context, actor string, requestID id.RequestID, d decision, reason string) error {
	var closed *models.Request
	now := time.Now()
	err := s.requests.Apply(ctx, requestID, func(req *models.Request) (docstore.Patch, error) {
		if !req.Status.IsOpen() {
			return nil, dErrors.New(dErrors.CodeConflict,
				fmt.Sprintf("request already %s", req.Status))
		}
		closed = req
		status := models.RequestStatusApproved
		if d == decisionReject {
			status = models.RequestStatusRejected
		}
		return docstore.Patch{
			"status":     string(status),
			"decided_by": actor,
			"decided_at": now,
			"reason":     reason,
			"updated_at": now,
		}, nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeConflict, "approval request does not exist")
		}
		var derr *dErrors.Error
		if errors.As(err, &derr) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to close request")
	}

	if err := s.commitProfileDecision(ctx, closed, d, actor, reason, now); err != nil {
		return err
	}

	event := audit.EventApplicationApproved
	if d == decisionReject {
		event = audit.EventApplicationRejected
	}
	s.logAudit(ctx, event, audit.Event{
		PrincipalID: actor,
		Subject:     closed.PrincipalID.String(),
		RequestID:   requestID.String(),
		Reason:      reason,
	})
	if s.metrics != nil {
		s.metrics.PendingRequests.Dec()
		if d == decisionReject {
			s.metrics.ApplicationsRejected.Inc()
		} else {
			s.metrics.ApplicationsApproved.Inc()
		}
	}
	s.notifyApplicant(ctx, closed, d, reason)
	return nil
}

// commitProfileDecision moves the profile through the state machine to match
// the decided request. A pending request whose profile cannot take the
// transition means the two documents have drifted, which is a consistency
// fault, not a user error.
func (s *Service) commitProfileDecision(ctx context.Context, req *models.Request, d decision, actor, reason string, now time.Time) error {
	target := imodels.ApprovalStatusApproved
	if d == decisionReject {
		target = imodels.ApprovalStatusRejected
	}
	err := s.profiles.Apply(ctx, req.PrincipalID, func(prof *imodels.RoleProfile) (docstore.Patch, error) {
		if !prof.ApprovalStatus.CanTransitionTo(target) {
			return nil, dErrors.New(dErrors.CodeConflict,
				fmt.Sprintf("profile in status %q cannot move to %q", prof.ApprovalStatus, target))
		}
		patch := docstore.Patch{
			"approval_status": string(target),
			"updated_at":      now,
		}
		if d == decisionReject {
			patch["is_approved"] = false
			patch["is_active"] = false
			patch["rejection_reason"] = reason
			patch["rejected_at"] = now
			patch["rejected_by"] = actor
		} else {
			patch["is_approved"] = true
			patch["is_active"] = true
		}
		return patch, nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeConflict, "decided request has no profile")
		}
		var derr *dErrors.Error
		if errors.As(err, &derr) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to update profile")
	}
	return nil
}

func (s *Service) getRequest(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	req, err := s.requests.Get(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeConflict, "approval request does not exist")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load request")
	}
	return req, nil
}

// notifyApplicant tells the applicant the outcome. Best effort.
func (s *Service) notifyApplicant(ctx context.Context, req *models.Request, d decision, reason string) {
	if s.notifier == nil {
		return
	}
	payload := notify.Payload{
		Kind:        "approval_decision",
		Title:       "Your access application was approved",
		PrincipalID: req.PrincipalID.String(),
		RequestID:   req.ID.String(),
	}
	if d == decisionReject {
		payload.Title = "Your access application was rejected"
		payload.Body = reason
	}
	audience := notify.Audience{
		Province: req.TargetProvince,
		Branch:   req.TargetBranch,
	}
	if err := s.notifier.Notify(ctx, audience, payload); err != nil {
		s.logger.WarnContext(ctx, "applicant notification failed",
			"request_id", req.ID.String(),
			"error", err,
		)
	}
}
