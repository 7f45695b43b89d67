package models

import (
	"fmt"
	"strings"
)

// ClaimStatus is the position of a claim in the Draft → Paid progression.
type ClaimStatus string

// Claim statuses in their natural order.
const (
	StatusDraft         ClaimStatus = "Draft"
	StatusForAssessment ClaimStatus = "For Assessment"
	StatusApproved      ClaimStatus = "Approved"
	StatusInvoiced      ClaimStatus = "Invoiced"
	StatusPaid          ClaimStatus = "Paid"
)

// ClaimStatuses lists every status in progression order.
var ClaimStatuses = []ClaimStatus{
	StatusDraft,
	StatusForAssessment,
	StatusApproved,
	StatusInvoiced,
	StatusPaid,
}

// Valid reports whether s is one of the known statuses.
func (s ClaimStatus) Valid() bool {
	for _, known := range ClaimStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsPending reports whether the claim still awaits assessment.
func (s ClaimStatus) IsPending() bool {
	return s == StatusDraft || s == StatusForAssessment
}

// NextOffered returns the transition offered to the user from s, if any.
// Approved has no offer: it moves to Invoiced when an invoice is generated.
func (s ClaimStatus) NextOffered() (ClaimStatus, bool) {
	switch s {
	case StatusDraft:
		return StatusForAssessment, true
	case StatusForAssessment:
		return StatusApproved, true
	case StatusInvoiced:
		return StatusPaid, true
	default:
		return "", false
	}
}

// ParseClaimStatus accepts a status name case-insensitively, with "_" or "-" for spaces.
func ParseClaimStatus(s string) (ClaimStatus, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", " ", "-", " ").Replace(norm)
	norm = strings.Join(strings.Fields(norm), " ")

	for _, known := range ClaimStatuses {
		if strings.ToLower(string(known)) == norm {
			return known, nil
		}
	}
	if norm == "assessment" {
		return StatusForAssessment, nil
	}
	return "", fmt.Errorf("%w: unknown claim status %q", ErrValidation, s)
}
