package models

import (
	"time"

	"torque/internal/geo"
	"torque/internal/rbac"
	id "torque/pkg/domain"
)

// This file contains pure domain models for identity: entities that should
// not depend on transport or HTTP-specific concerns.

// Principal is one registered identity. Credentials are verified by the
// identity collaborator; the workflow core only consumes the outcome.
type Principal struct {
	ID         id.PrincipalID
	Email      string
	SecretHash string
	FirstName  string
	LastName   string

	// EmployeeID links the principal to the HR employee record, when known.
	EmployeeID string

	IsDeveloper        bool
	IsExecutive        bool
	IsResignedEmployee bool

	HomeBranch geo.BranchKey

	// LegacyPermissions is the flat boolean permission map carried over from
	// the pre-RBAC scheme. The migration engine consumes it exactly once.
	LegacyPermissions map[string]bool

	CreatedAt time.Time
}

// RoleProfile is the materialized access profile of one principal: permission
// set, inferred or assigned role, and geographic scope, plus the approval
// lifecycle flags consulted at every authentication attempt.
//
// Profiles are created at registration completion or legacy migration, mutated
// only by explicit administrator action or workflow transitions, and never
// deleted - only superseded.
type RoleProfile struct {
	PrincipalID id.PrincipalID `json:"principal_id"`
	Permissions rbac.Set       `json:"permissions"`
	Role        rbac.RoleKey   `json:"role,omitempty"`
	Geographic  *geo.Access    `json:"geographic,omitempty"`

	IsApproved     bool           `json:"is_approved"`
	IsActive       bool           `json:"is_active"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`

	RejectionReason string     `json:"rejection_reason,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectedBy      string     `json:"rejected_by,omitempty"`

	IsResignedEmployee bool `json:"is_resigned_employee,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Status derives the identity status triple. It is never stored separately,
// so the three fields cannot drift apart.
func (p *RoleProfile) Status() IdentityStatus {
	return IdentityStatus{
		IsApproved:     p.IsApproved,
		IsActive:       p.IsActive,
		ApprovalStatus: p.ApprovalStatus,
	}
}

// HasRole reports whether a role has ever been materialized on the profile.
// The migration ratchet keys off this.
func (p *RoleProfile) HasRole() bool {
	return p.Role != ""
}

// IdentityStatus is the derived gate consulted at every authentication
// attempt.
type IdentityStatus struct {
	IsApproved     bool           `json:"is_approved"`
	IsActive       bool           `json:"is_active"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`
}

// MayAuthenticate reports whether the gate admits a session.
func (s IdentityStatus) MayAuthenticate() bool {
	return s.IsApproved && s.IsActive && s.ApprovalStatus == ApprovalStatusApproved
}

// Session is an authenticated session for an approved principal.
type Session struct {
	ID          id.SessionID
	PrincipalID id.PrincipalID

	// DeviceDisplayName is derived from the login User-Agent, e.g.
	// "Chrome on macOS". Display only.
	DeviceDisplayName string

	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// IsLive reports whether the session is neither revoked nor expired.
func (s *Session) IsLive(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
