package models

import (
	"time"

	"torque/internal/geo"
	id "torque/pkg/domain"
)

// RequestType classifies who is applying and why. The type decides which
// manager tier must sign off.
type RequestType string

const (
	RequestTypeNewEmployee      RequestType = "new_employee"
	RequestTypeExistingEmployee RequestType = "existing_employee"
	RequestTypeResignedEmployee RequestType = "resigned_employee"
	RequestTypeReapplication    RequestType = "reapplication"
)

func (t RequestType) IsValid() bool {
	switch t {
	case RequestTypeNewEmployee, RequestTypeExistingEmployee,
		RequestTypeResignedEmployee, RequestTypeReapplication:
		return true
	}
	return false
}

// RequestStatus is the lifecycle of a single request document. Profile-level
// approval state lives on the role profile; a request is closed exactly once.
type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "pending"
	RequestStatusApproved   RequestStatus = "approved"
	RequestStatusRejected   RequestStatus = "rejected"
	RequestStatusSuperseded RequestStatus = "superseded"
)

func (s RequestStatus) IsOpen() bool { return s == RequestStatusPending }

// ApprovalLevel names the manager tier allowed to close a request.
type ApprovalLevel string

const (
	ApprovalLevelBranchManager   ApprovalLevel = "branch_manager"
	ApprovalLevelProvinceManager ApprovalLevel = "province_manager"
)

// PreviousRejection carries the rejection a reapplication answers to.
type PreviousRejection struct {
	Reason     string    `json:"reason"`
	RejectedAt time.Time `json:"rejected_at"`
	RejectedBy string    `json:"rejected_by"`
}

// Request is one access application awaiting (or having received) a decision.
type Request struct {
	ID                id.RequestID       `json:"id"`
	PrincipalID       id.PrincipalID     `json:"principal_id"`
	RequestType       RequestType        `json:"request_type"`
	Status            RequestStatus      `json:"status"`
	TargetProvince    geo.ProvinceKey    `json:"target_province"`
	TargetBranch      geo.BranchKey      `json:"target_branch"`
	ApprovalLevel     ApprovalLevel      `json:"approval_level"`
	ImprovementNote   string             `json:"improvement_note,omitempty"`
	PreviousRejection *PreviousRejection `json:"previous_rejection,omitempty"`

	DecidedBy string    `json:"decided_by,omitempty"`
	DecidedAt time.Time `json:"decided_at,omitempty"`
	Reason    string    `json:"reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RequiredApprovalLevel maps the request type to the tier that must decide it.
// Resigned former employees and brand-new hires need the province tier; a
// known current employee only needs their branch manager. A reapplication
// keeps the tier of the request it follows up on, which callers resolve from
// the previous request, so the zero antecedent falls back to the province
// tier.
func RequiredApprovalLevel(t RequestType) ApprovalLevel {
	switch t {
	case RequestTypeExistingEmployee:
		return ApprovalLevelBranchManager
	default:
		return ApprovalLevelProvinceManager
	}
}
