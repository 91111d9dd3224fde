package campaign

import (
	"strings"

	"github.com/cnec/backend/internal/domain/shared"
)

// Status represents the lifecycle status of a campaign
type Status string

const (
	StatusDraft             Status = "draft"
	StatusPendingPayment    Status = "pending_payment"
	StatusPendingApproval   Status = "pending_approval"
	StatusActive            Status = "active"
	StatusGuideConfirmation Status = "guide_confirmation"
	StatusFilming           Status = "filming"
	StatusEditing           Status = "editing"
	StatusCompleted         Status = "completed"
	StatusCancelled         Status = "cancelled"
)

// legacyStatuses are values written by older clients
var legacyStatuses = map[string]Status{
	"approved": StatusActive,
	"paused":   StatusActive,
}

// ParseStatus parses a stored or requested status, folding legacy values
func ParseStatus(s string) (Status, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if legacy, ok := legacyStatuses[v]; ok {
		return legacy, nil
	}
	st := Status(v)
	if !st.IsValid() {
		return "", shared.NewValidationError("invalid campaign status: " + s)
	}
	return st, nil
}

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPendingPayment, StatusPendingApproval, StatusActive,
		StatusGuideConfirmation, StatusFilming, StatusEditing,
		StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether only an admin override may leave s
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status
// through a regular (non-override) operation.
func (s Status) CanTransitionTo(target Status) bool {
	if target == StatusCancelled {
		return !s.IsTerminal()
	}
	switch s {
	case StatusDraft:
		return target == StatusPendingPayment
	case StatusPendingPayment:
		return target == StatusPendingApproval
	case StatusPendingApproval:
		return target == StatusActive
	case StatusActive:
		return target == StatusCompleted
	}
	return false
}

// ApprovalStatus is the admin review result
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// PaymentStatus tracks the campaign fee payment
type PaymentStatus string

const (
	PaymentUnpaid    PaymentStatus = "unpaid"
	PaymentPending   PaymentStatus = "pending"
	PaymentConfirmed PaymentStatus = "confirmed"
)

// ProgressRecruiting is the sub-status set when a campaign goes live
const ProgressRecruiting = "recruiting"

// StoredValues returns the column values that read back as one of statuses,
// legacy spellings included. Queries filtering on status use it.
func StoredValues(statuses ...Status) []string {
	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
		for legacy, canonical := range legacyStatuses {
			if canonical == s {
				values = append(values, legacy)
			}
		}
	}
	return values
}
