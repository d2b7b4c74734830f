package migration

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"torque/internal/audit"
	"torque/internal/docstore"
	"torque/internal/identity/models"
	"torque/internal/identity/store/principal"
	"torque/internal/identity/store/profile"
	"torque/internal/platform/metrics"
	"torque/internal/platform/tracer"
	"torque/internal/sentinel"
	id "torque/pkg/domain"
	dErrors "torque/pkg/domain-errors"
)

// AuditPublisher records audit events emitted by migrations.
type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Engine drives the read-modify-write migration cycle against the profile
// store. Safe to call repeatedly: the ratchet in NeedsMigration makes every
// call after the first a no-op.
type Engine struct {
	principals principal.Store
	profiles   profile.Store

	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         tracer.Tracer
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(e *Engine) { e.auditPublisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithTracer(t tracer.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

func NewEngine(principals principal.Store, profiles profile.Store, opts ...Option) *Engine {
	e := &Engine{
		principals: principals,
		profiles:   profiles,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.tracer == nil {
		e.tracer = tracer.NewNoop()
	}
	return e
}

// MigrateIfNeeded upgrades the principal's legacy permissions into a role
// profile, if the ratchet allows. Returns the resulting profile: the existing
// one untouched when no migration applies, the freshly migrated one, or the
// materialized fallback when there was nothing legacy to migrate from.
func (e *Engine) MigrateIfNeeded(ctx context.Context, principalID id.PrincipalID) (prof *models.RoleProfile, err error) {
	ctx, span := e.tracer.Start(ctx, tracer.SpanMigrate,
		tracer.String(tracer.AttrPrincipalID, principalID.String()),
	)
	defer func() { span.End(err) }()

	p, err := e.principals.FindByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "principal not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load principal")
	}

	existing, err := e.profiles.Get(ctx, principalID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load profile")
	}

	if !NeedsMigration(p, existing) {
		if existing != nil {
			return existing, nil
		}
		// Nothing legacy to migrate: materialize the fallback so the
		// principal never ends up with an undefined profile.
		fallback, fbErr := FallbackProfile(p, time.Now())
		if fbErr != nil {
			return nil, fbErr
		}
		return e.persist(ctx, p, existing, fallback)
	}

	now := time.Now()
	perms := MigrateLegacyPermissions(p)
	role := DetermineRole(perms, p)
	access, err := SynthesizeGeographicAccess(p, role)
	if err != nil {
		return nil, err
	}

	migrated := &models.RoleProfile{
		PrincipalID:    p.ID,
		Permissions:    perms,
		Role:           role,
		Geographic:     access,
		IsApproved:     true,
		IsActive:       true,
		ApprovalStatus: models.ApprovalStatusApproved,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if existing != nil {
		// Approval lifecycle flags are owned by the workflow; migration only
		// materializes the access shape.
		migrated.IsApproved = existing.IsApproved
		migrated.IsActive = existing.IsActive
		migrated.ApprovalStatus = existing.ApprovalStatus
		migrated.CreatedAt = existing.CreatedAt
	}

	return e.persist(ctx, p, existing, migrated)
}

// persist validates the migrated profile and writes it: a targeted patch when
// a profile document already exists, a create otherwise. Validation failure
// blocks the write and surfaces an invariant violation.
func (e *Engine) persist(ctx context.Context, p *models.Principal, existing, migrated *models.RoleProfile) (*models.RoleProfile, error) {
	if !ValidateProfile(migrated) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "migrated profile failed structural validation")
	}

	if existing != nil {
		patch := docstore.Patch{
			"permissions": migrated.Permissions.Slice(),
			"role":        migrated.Role.String(),
			"geographic":  migrated.Geographic,
			"updated_at":  migrated.UpdatedAt,
		}
		if err := e.profiles.Patch(ctx, p.ID, patch); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to persist migrated profile")
		}
	} else {
		if err := e.profiles.Create(ctx, migrated); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to persist migrated profile")
		}
	}

	e.logger.InfoContext(ctx, string(audit.EventLegacyMigration),
		"principal_id", p.ID.String(),
		"role", migrated.Role.String(),
		"permission_count", len(migrated.Permissions),
		"log_type", "audit",
	)
	if e.auditPublisher != nil {
		_ = e.auditPublisher.Emit(ctx, audit.Event{
			PrincipalID: p.ID.String(),
			Subject:     p.ID.String(),
			Action:      string(audit.EventLegacyMigration),
		})
	}
	if e.metrics != nil {
		e.metrics.MigrationsPerformed.Inc()
	}
	return migrated, nil
}
