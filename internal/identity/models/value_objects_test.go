package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApprovalStatusTransitions(t *testing.T) {
	allowed := map[ApprovalStatus][]ApprovalStatus{
		ApprovalStatusUnsubmitted: {ApprovalStatusPending},
		ApprovalStatusPending:     {ApprovalStatusApproved, ApprovalStatusRejected},
		ApprovalStatusRejected:    {ApprovalStatusPending},
		ApprovalStatusApproved:    {ApprovalStatusSuspended},
		ApprovalStatusSuspended:   {ApprovalStatusApproved},
	}
	all := []ApprovalStatus{
		ApprovalStatusUnsubmitted,
		ApprovalStatusPending,
		ApprovalStatusApproved,
		ApprovalStatusRejected,
		ApprovalStatusSuspended,
	}

	for from, targets := range allowed {
		legal := make(map[ApprovalStatus]bool, len(targets))
		for _, target := range targets {
			legal[target] = true
		}
		for _, to := range all {
			assert.Equal(t, legal[to], from.CanTransitionTo(to),
				"%s -> %s", from, to)
		}
	}
}

func TestRejectedNeverReachesApprovedDirectly(t *testing.T) {
	assert.False(t, ApprovalStatusRejected.CanTransitionTo(ApprovalStatusApproved))
}

func TestUnknownStatusIsTerminal(t *testing.T) {
	bogus := ApprovalStatus("archived")
	assert.False(t, bogus.IsValid())
	for _, to := range []ApprovalStatus{ApprovalStatusPending, ApprovalStatusApproved} {
		assert.False(t, bogus.CanTransitionTo(to))
	}
}
