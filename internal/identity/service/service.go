package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"torque/internal/audit"
	"torque/internal/identity/device"
	"torque/internal/identity/models"
	"torque/internal/identity/store/principal"
	"torque/internal/identity/store/profile"
	"torque/internal/identity/store/session"
	"torque/internal/platform/metrics"
	"torque/internal/platform/middleware"
	"torque/internal/sentinel"
	id "torque/pkg/domain"
	dErrors "torque/pkg/domain-errors"
	"torque/pkg/secrets"
)

// TokenGenerator signs access tokens for approved principals.
type TokenGenerator interface {
	GenerateAccessToken(principalID id.PrincipalID, sessionID id.SessionID, role string) (string, error)
}

// AuditPublisher records audit events emitted by identity operations.
type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Service verifies credentials and gates authentication on the identity
// status derived from the principal's role profile.
type Service struct {
	principals principal.Store
	profiles   profile.Store
	sessions   session.Store
	tokens     TokenGenerator

	sessionTTL     time.Duration
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

const defaultSessionTTL = 24 * time.Hour

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithSessionTTL configures the time-to-live duration for sessions.
// If not set or set to zero/negative, defaults to 24 hours.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

func New(principals principal.Store, profiles profile.Store, sessions session.Store, tokens TokenGenerator, opts ...Option) *Service {
	svc := &Service{
		principals: principals,
		profiles:   profiles,
		sessions:   sessions,
		tokens:     tokens,
		sessionTTL: defaultSessionTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	if svc.sessionTTL <= 0 {
		svc.sessionTTL = defaultSessionTTL
	}
	return svc
}

// LoginResult is what a successful authentication hands back to the caller.
type LoginResult struct {
	AccessToken string
	Session     *models.Session
	Profile     *models.RoleProfile
}

// Login verifies credentials, consults the identity status gate, and issues a
// session plus access token. A principal whose profile is pending, rejected,
// or suspended authenticates successfully at the credential level but is
// refused a session; the returned error carries the approval status so the
// client can route to the right waiting screen.
func (s *Service) Login(ctx context.Context, email, secret, userAgentString string) (*LoginResult, error) {
	p, err := s.principals.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.logAuthFailure(ctx, "unknown_email", false)
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to look up principal")
	}

	if err := secrets.Verify(secret, p.SecretHash); err != nil {
		s.logAuthFailure(ctx, "bad_secret", false, "principal_id", p.ID.String())
		return nil, err
	}

	prof, err := s.profiles.Get(ctx, p.ID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.logAuthFailure(ctx, "no_profile", false, "principal_id", p.ID.String())
			return nil, dErrors.New(dErrors.CodeForbidden, "no access profile; submit an application first")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load profile")
	}

	status := prof.Status()
	if !status.MayAuthenticate() {
		s.logAuthFailure(ctx, "status_"+status.ApprovalStatus.String(), false,
			"principal_id", p.ID.String(),
		)
		return nil, dErrors.New(dErrors.CodeForbidden, "account is "+status.ApprovalStatus.String())
	}

	now := time.Now()
	sess := &models.Session{
		ID:                id.NewSessionID(),
		PrincipalID:       p.ID,
		DeviceDisplayName: device.DisplayName(userAgentString),
		CreatedAt:         now,
		ExpiresAt:         now.Add(s.sessionTTL),
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to save session")
	}

	accessToken, err := s.tokens.GenerateAccessToken(p.ID, sess.ID, prof.Role.String())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate access token")
	}

	s.logAudit(ctx, string(audit.EventLoginSucceeded),
		"principal_id", p.ID.String(),
		"session_id", sess.ID.String(),
	)
	if s.metrics != nil {
		s.metrics.ActiveSessions.Inc()
	}

	return &LoginResult{
		AccessToken: accessToken,
		Session:     sess,
		Profile:     prof,
	}, nil
}

// RevokeSessions force-ends every live session of the principal. Used by the
// suspension transition; returns how many sessions were ended.
func (s *Service) RevokeSessions(ctx context.Context, principalID id.PrincipalID) (int, error) {
	revoked, err := s.sessions.RevokeByPrincipal(ctx, principalID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to revoke sessions")
	}
	if revoked > 0 {
		s.logAudit(ctx, string(audit.EventSessionsRevoked),
			"principal_id", principalID.String(),
			"revoked", revoked,
		)
		if s.metrics != nil {
			s.metrics.ActiveSessions.Sub(float64(revoked))
		}
	}
	return revoked, nil
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := middleware.GetRequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
	if s.auditPublisher == nil {
		return
	}
	principalID := extractString(attributes, "principal_id")
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		PrincipalID: principalID,
		Subject:     principalID,
		Action:      event,
		RequestID:   middleware.GetRequestID(ctx),
	})
}

func (s *Service) logAuthFailure(ctx context.Context, reason string, isError bool, attributes ...any) {
	if requestID := middleware.GetRequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", audit.EventAuthFailed, "reason", reason, "log_type", "standard")
	if s.metrics != nil {
		s.metrics.AuthFailures.Inc()
	}
	if isError {
		s.logger.ErrorContext(ctx, string(audit.EventAuthFailed), args...)
		return
	}
	s.logger.WarnContext(ctx, string(audit.EventAuthFailed), args...)
}

// extractString pulls the value following a key in a variadic attribute list.
func extractString(attributes []any, key string) string {
	for i := 0; i+1 < len(attributes); i += 2 {
		if k, ok := attributes[i].(string); ok && k == key {
			if v, ok := attributes[i+1].(string); ok {
				return v
			}
		}
	}
	return ""
}
