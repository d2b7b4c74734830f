// Package notify is the notification collaborator contract. Delivery is
// fire-and-forget from the workflow's point of view: a failed notification is
// logged and retried out-of-band, never allowed to block a state transition.
package notify

import (
	"context"
	"log/slog"

	"torque/internal/geo"
	"torque/internal/rbac"
)

// Audience describes who should receive a notification: principals holding
// any of the listed permissions whose geographic scope covers the given
// province/branch.
type Audience struct {
	AnyPermission []rbac.Permission
	Province      geo.ProvinceKey
	Branch        geo.BranchKey
}

// Payload is the notification content.
type Payload struct {
	Kind        string
	Title       string
	Body        string
	PrincipalID string
	RequestID   string
}

// Notifier delivers a payload to an audience.
type Notifier interface {
	Notify(ctx context.Context, audience Audience, payload Payload) error
}

// LogNotifier writes notifications to the structured log. It stands in for
// the real push/mail collaborator in tests and development.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, audience Audience, payload Payload) error {
	n.logger.InfoContext(ctx, "notification dispatched",
		"kind", payload.Kind,
		"title", payload.Title,
		"principal_id", payload.PrincipalID,
		"request_id", payload.RequestID,
		"audience_province", string(audience.Province),
		"audience_branch", string(audience.Branch),
	)
	return nil
}

var _ Notifier = (*LogNotifier)(nil)
