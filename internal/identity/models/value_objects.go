package models

// ApprovalStatus is the lifecycle state recorded on a RoleProfile.
type ApprovalStatus string

const (
	ApprovalStatusUnsubmitted ApprovalStatus = "unsubmitted"
	ApprovalStatusPending     ApprovalStatus = "pending"
	ApprovalStatusApproved    ApprovalStatus = "approved"
	ApprovalStatusRejected    ApprovalStatus = "rejected"
	ApprovalStatusSuspended   ApprovalStatus = "suspended"
)

func (s ApprovalStatus) IsValid() bool {
	switch s {
	case ApprovalStatusUnsubmitted, ApprovalStatusPending, ApprovalStatusApproved,
		ApprovalStatusRejected, ApprovalStatusSuspended:
		return true
	}
	return false
}

func (s ApprovalStatus) String() string { return string(s) }

// CanTransitionTo checks if a transition from the current status to the target is valid.
// Valid transitions:
//   - unsubmitted -> pending       (submit)
//   - pending     -> approved      (administrator approves)
//   - pending     -> rejected      (administrator rejects)
//   - rejected    -> pending       (reapplication)
//   - approved    -> suspended     (administrative suspension)
//   - suspended   -> approved      (administrative reinstatement)
//
// rejected -> approved is never legal; a rejected principal must reapply.
func (s ApprovalStatus) CanTransitionTo(target ApprovalStatus) bool {
	switch s {
	case ApprovalStatusUnsubmitted:
		return target == ApprovalStatusPending
	case ApprovalStatusPending:
		return target == ApprovalStatusApproved || target == ApprovalStatusRejected
	case ApprovalStatusRejected:
		return target == ApprovalStatusPending
	case ApprovalStatusApproved:
		return target == ApprovalStatusSuspended
	case ApprovalStatusSuspended:
		return target == ApprovalStatusApproved
	default:
		return false
	}
}
