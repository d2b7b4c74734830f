package audit

import "time"

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp   time.Time
	PrincipalID string
	Subject     string
	Action      string
	RequestID   string
	Reason      string
}

type AuditEvent string

const (
	EventApplicationSubmitted AuditEvent = "application_submitted"
	EventApplicationApproved  AuditEvent = "application_approved"
	EventApplicationRejected  AuditEvent = "application_rejected"
	EventReapplication        AuditEvent = "reapplication_submitted"
	EventProfileSuspended     AuditEvent = "profile_suspended"
	EventProfileReinstated    AuditEvent = "profile_reinstated"
	EventAccessUpdated        AuditEvent = "access_updated"
	EventLegacyMigration      AuditEvent = "legacy_permissions_migrated"
	EventLoginSucceeded       AuditEvent = "login_succeeded"
	EventAuthFailed           AuditEvent = "auth_failed"
	EventSessionsRevoked      AuditEvent = "sessions_revoked"
)
