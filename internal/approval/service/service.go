// Package service implements the access approval workflow: submission,
// manager decision, reapplication after rejection, and administrative
// suspension. Every transition is validated against the profile state
// machine before anything is written.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"torque/internal/approval/models"
	"torque/internal/approval/store/request"
	"torque/internal/audit"
	"torque/internal/docstore"
	"torque/internal/geo"
	imodels "torque/internal/identity/models"
	"torque/internal/identity/store/principal"
	"torque/internal/identity/store/profile"
	"torque/internal/notify"
	"torque/internal/platform/metrics"
	"torque/internal/platform/tracer"
	"torque/internal/rbac"
	"torque/internal/sentinel"
	id "torque/pkg/domain"
	dErrors "torque/pkg/domain-errors"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks SessionRevoker,AuditPublisher
//go:generate mockgen -source=../../notify/notify.go -destination=mocks/notifier_mock.go -package=mocks Notifier

// SessionRevoker revokes every live session of a principal. Satisfied by the
// identity service.
type SessionRevoker interface {
	RevokeSessions(ctx context.Context, principalID id.PrincipalID) (int, error)
}

// AuditPublisher records workflow audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Service orchestrates the approval workflow over the request and profile
// stores.
type Service struct {
	requests   request.Store
	profiles   profile.Store
	principals principal.Store

	notifier notify.Notifier
	sessions SessionRevoker

	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         tracer.Tracer

	autoApprove        bool
	improvementNoteMin int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithSessionRevoker(r SessionRevoker) Option {
	return func(s *Service) { s.sessions = r }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithAutoApprove short-circuits the manager decision: every submission is
// approved immediately by the system actor. Development and test environments
// only.
func WithAutoApprove(enabled bool) Option {
	return func(s *Service) { s.autoApprove = enabled }
}

// WithImprovementNoteMin overrides the minimum improvement note length a
// reapplication must carry.
func WithImprovementNoteMin(n int) Option {
	return func(s *Service) { s.improvementNoteMin = n }
}

const defaultImprovementNoteMin = 20

// SystemActor identifies decisions made by configuration, not a manager.
const SystemActor = "system"

func New(requests request.Store, profiles profile.Store, principals principal.Store, opts ...Option) *Service {
	s := &Service{
		requests:           requests,
		profiles:           profiles,
		principals:         principals,
		improvementNoteMin: defaultImprovementNoteMin,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = tracer.NewNoop()
	}
	return s
}

// SubmitRequest is the input to Submit.
type SubmitRequest struct {
	PrincipalID    id.PrincipalID
	RequestType    models.RequestType
	TargetProvince geo.ProvinceKey
	TargetBranch   geo.BranchKey
}

// Submit opens an access application for the principal. Any still-open
// previous request is superseded first, so a principal never holds two
// pending applications. The materialized profile moves to pending/inactive
// until a manager decides.
func (s *Service) Submit(ctx context.Context, in SubmitRequest) (req *models.Request, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanSubmit,
		tracer.String(tracer.AttrPrincipalID, in.PrincipalID.String()),
		tracer.String(tracer.AttrRequestType, string(in.RequestType)),
	)
	defer func() { span.End(err) }()

	if !in.RequestType.IsValid() || in.RequestType == models.RequestTypeReapplication {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid request type")
	}
	if !geo.KnownBranch(in.TargetBranch) {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown target branch")
	}
	if province, _ := geo.ProvinceOfBranch(in.TargetBranch); in.TargetProvince != "" && in.TargetProvince != province {
		return nil, dErrors.New(dErrors.CodeValidation, "target branch does not belong to target province")
	} else if in.TargetProvince == "" {
		in.TargetProvince = province
	}

	p, err := s.principals.FindByID(ctx, in.PrincipalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "principal not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load principal")
	}

	requestType := in.RequestType
	if p.IsResignedEmployee {
		// A resigned former employee always re-enters at the province tier,
		// whatever the caller claimed.
		requestType = models.RequestTypeResignedEmployee
	}

	// The profile gate is checked before anything is written: a refused
	// transition must not leave a request document behind.
	existing, err := s.profiles.Get(ctx, in.PrincipalID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load profile")
	}
	if err := pendingTransitionError(existing); err != nil {
		return nil, err
	}

	if err := s.supersedeOpen(ctx, in.PrincipalID); err != nil {
		return nil, err
	}

	now := time.Now()
	req = &models.Request{
		ID:             id.NewRequestID(),
		PrincipalID:    in.PrincipalID,
		RequestType:    requestType,
		Status:         models.RequestStatusPending,
		TargetProvince: in.TargetProvince,
		TargetBranch:   in.TargetBranch,
		ApprovalLevel:  models.RequiredApprovalLevel(requestType),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to persist request")
	}

	if err := s.materializePendingProfile(ctx, p, existing, now); err != nil {
		return nil, err
	}

	s.logAudit(ctx, audit.EventApplicationSubmitted, audit.Event{
		PrincipalID: in.PrincipalID.String(),
		Subject:     in.PrincipalID.String(),
		RequestID:   req.ID.String(),
	})
	if s.metrics != nil {
		s.metrics.ApplicationsSubmitted.Inc()
		s.metrics.PendingRequests.Inc()
	}

	s.notifyApprovers(ctx, req)

	if s.autoApprove {
		if err := s.close(ctx, SystemActor, req.ID, decisionApprove, ""); err != nil {
			return nil, err
		}
		req.Status = models.RequestStatusApproved
		req.DecidedBy = SystemActor
	}
	return req, nil
}

// Reapply opens a follow-up application after a rejection. The improvement
// note is mandatory and must meet the configured minimum length; the new
// request carries the rejection it answers to, so the deciding manager sees
// the history.
func (s *Service) Reapply(ctx context.Context, principalID id.PrincipalID, improvementNote string) (req *models.Request, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanReapply,
		tracer.String(tracer.AttrPrincipalID, principalID.String()),
	)
	defer func() { span.End(err) }()

	if utf8.RuneCountInString(improvementNote) < s.improvementNoteMin {
		return nil, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("improvement note must be at least %d characters", s.improvementNoteMin))
	}

	prof, err := s.profiles.Get(ctx, principalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load profile")
	}
	if prof.ApprovalStatus != imodels.ApprovalStatusRejected {
		return nil, dErrors.New(dErrors.CodeConflict, "reapplication requires a prior rejection")
	}

	previous, err := s.requests.FindLatestByPrincipal(ctx, principalID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load previous request")
	}

	now := time.Now()
	req = &models.Request{
		ID:              id.NewRequestID(),
		PrincipalID:     principalID,
		RequestType:     models.RequestTypeReapplication,
		Status:          models.RequestStatusPending,
		ApprovalLevel:   models.RequiredApprovalLevel(models.RequestTypeReapplication),
		ImprovementNote: improvementNote,
		PreviousRejection: &models.PreviousRejection{
			Reason:     prof.RejectionReason,
			RejectedBy: prof.RejectedBy,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if prof.RejectedAt != nil {
		req.PreviousRejection.RejectedAt = *prof.RejectedAt
	}
	if previous != nil {
		// The follow-up is decided at the same tier as the request it
		// answers to.
		req.ApprovalLevel = previous.ApprovalLevel
		req.TargetProvince = previous.TargetProvince
		req.TargetBranch = previous.TargetBranch
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to persist request")
	}

	// rejected -> pending wipes the rejection record from the profile; the
	// history survives on the request documents.
	patch := docstore.Patch{
		"approval_status":  string(imodels.ApprovalStatusPending),
		"rejection_reason": "",
		"rejected_at":      nil,
		"rejected_by":      "",
		"updated_at":       now,
	}
	if err := s.profiles.Patch(ctx, principalID, patch); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to update profile")
	}

	s.logAudit(ctx, audit.EventReapplication, audit.Event{
		PrincipalID: principalID.String(),
		Subject:     principalID.String(),
		RequestID:   req.ID.String(),
	})
	if s.metrics != nil {
		s.metrics.Reapplications.Inc()
		s.metrics.PendingRequests.Inc()
	}
	s.notifyApprovers(ctx, req)
	return req, nil
}

// supersedeOpen closes any still-pending request of the principal. The
// atomic read-modify-write keeps a concurrent decider from racing the
// supersede.
func (s *Service) supersedeOpen(ctx context.Context, principalID id.PrincipalID) error {
	open, err := s.requests.FindOpenByPrincipal(ctx, principalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to look up open request")
	}
	superseded := false
	err = s.requests.Apply(ctx, open.ID, func(req *models.Request) (docstore.Patch, error) {
		if !req.Status.IsOpen() {
			// Decided while we looked; nothing left to supersede.
			return nil, nil
		}
		superseded = true
		return docstore.Patch{
			"status":     string(models.RequestStatusSuperseded),
			"updated_at": time.Now(),
		}, nil
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to supersede open request")
	}
	if superseded && s.metrics != nil {
		s.metrics.PendingRequests.Dec()
	}
	return nil
}

// pendingTransitionError reports whether the profile may (re)enter the
// pending gate. A missing or already-pending profile passes.
func pendingTransitionError(existing *imodels.RoleProfile) error {
	if existing == nil || existing.ApprovalStatus == imodels.ApprovalStatusPending {
		return nil
	}
	if !existing.ApprovalStatus.CanTransitionTo(imodels.ApprovalStatusPending) {
		return dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("profile in status %q cannot move to pending", existing.ApprovalStatus))
	}
	return nil
}

// materializePendingProfile creates the profile in the pending gate, or moves
// an existing one back into it. The transition has already been validated by
// the caller.
func (s *Service) materializePendingProfile(ctx context.Context, p *imodels.Principal, existing *imodels.RoleProfile, now time.Time) error {
	if existing == nil {
		prof := &imodels.RoleProfile{
			PrincipalID:        p.ID,
			Permissions:        rbac.NewSet(),
			IsApproved:         false,
			IsActive:           false,
			ApprovalStatus:     imodels.ApprovalStatusPending,
			IsResignedEmployee: p.IsResignedEmployee,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := s.profiles.Create(ctx, prof); err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to create profile")
		}
		return nil
	}
	patch := docstore.Patch{
		"approval_status": string(imodels.ApprovalStatusPending),
		"is_approved":     false,
		"is_active":       false,
		"updated_at":      now,
	}
	if err := s.profiles.Patch(ctx, p.ID, patch); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to update profile")
	}
	return nil
}

// notifyApprovers fans the new-request notification out to the manager tiers
// that can decide it. Delivery failures are logged, never surfaced: a lost
// notification must not fail a submission.
func (s *Service) notifyApprovers(ctx context.Context, req *models.Request) {
	if s.notifier == nil {
		return
	}
	payload := notify.Payload{
		Kind:        "approval_request",
		Title:       "Access application awaiting review",
		Body:        fmt.Sprintf("A %s application is waiting at the %s tier.", req.RequestType, req.ApprovalLevel),
		PrincipalID: req.PrincipalID.String(),
		RequestID:   req.ID.String(),
	}
	audiences := []notify.Audience{
		{
			AnyPermission: []rbac.Permission{
				rbac.Combine(rbac.DeptUsers, rbac.ActionApprove),
				rbac.Combine(rbac.DeptUsers, rbac.ActionManage),
			},
			Province: req.TargetProvince,
			Branch:   req.TargetBranch,
		},
	}
	if req.ApprovalLevel == models.ApprovalLevelProvinceManager {
		// Province-tier requests also alert the province scope without a
		// branch restriction.
		audiences = append(audiences, notify.Audience{
			AnyPermission: []rbac.Permission{
				rbac.Combine(rbac.DeptUsers, rbac.ActionApprove),
				rbac.Combine(rbac.DeptUsers, rbac.ActionManage),
			},
			Province: req.TargetProvince,
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, audience := range audiences {
		audience := audience
		g.Go(func() error {
			return s.notifier.Notify(gctx, audience, payload)
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.WarnContext(ctx, "approver notification failed",
			"request_id", req.ID.String(),
			"error", err,
		)
	}
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, base audit.Event) {
	base.Action = string(event)
	s.logger.InfoContext(ctx, string(event),
		"principal_id", base.PrincipalID,
		"subject", base.Subject,
		"request_id", base.RequestID,
		"log_type", "audit",
	)
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, base); err != nil {
		s.logger.WarnContext(ctx, "failed to publish audit event", "error", err)
	}
}
