package campaign

import (
	"fmt"
	"strings"
	"time"

	"github.com/cnec/backend/internal/domain/company"
	"github.com/cnec/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeCampaign is the aggregate type for Campaign
const AggregateTypeCampaign = "Campaign"

// ErrAlreadyInState is returned when a transition targets the current status.
// Nothing is written and no event is raised.
var ErrAlreadyInState = shared.NewDomainError("ALREADY_IN_STATE", "Campaign is already in the requested status")

// Campaign is a marketing campaign owned by a company and stored in one region
type Campaign struct {
	shared.RegionAggregateRoot
	CompanyID           *uuid.UUID
	CompanyEmail        string
	Title               string
	Brand               string
	Status              Status
	ApprovalStatus      ApprovalStatus
	PaymentStatus       PaymentStatus
	ProgressStatus      string
	TotalSlots          int
	RewardPoints        int64
	RecruitmentDeadline *time.Time
	Step1Deadline       *time.Time
	Step2Deadline       *time.Time
	Step3Deadline       *time.Time
	IsCancelled         bool
	AdminNote           string
	SubmittedAt         *time.Time
	PaymentConfirmedAt  *time.Time
	ApprovedAt          *time.Time
	CompletedAt         *time.Time
	CancelledAt         *time.Time
}

// NewCampaign creates a draft campaign
func NewCampaign(region string, companyID *uuid.UUID, companyEmail, title string, totalSlots int, rewardPoints int64) (*Campaign, error) {
	if strings.TrimSpace(title) == "" {
		return nil, shared.NewValidationError("campaign title is required")
	}
	if totalSlots < 0 {
		return nil, shared.NewValidationError("total slots cannot be negative")
	}
	if rewardPoints < 0 {
		return nil, shared.NewValidationError("reward points cannot be negative")
	}
	return &Campaign{
		RegionAggregateRoot: shared.NewRegionAggregateRoot(region),
		CompanyID:           companyID,
		CompanyEmail:        company.FoldEmail(companyEmail),
		Title:               strings.TrimSpace(title),
		Status:              StatusDraft,
		ApprovalStatus:      ApprovalPending,
		PaymentStatus:       PaymentUnpaid,
		TotalSlots:          totalSlots,
		RewardPoints:        rewardPoints,
	}, nil
}

// IsOwnedBy reports whether companyID is the recorded owner
func (c *Campaign) IsOwnedBy(companyID uuid.UUID) bool {
	return c.CompanyID != nil && *c.CompanyID == companyID
}

// IsLocked reports whether regular transitions are closed for the campaign
func (c *Campaign) IsLocked() bool {
	return c.IsCancelled || c.Status.IsTerminal()
}

// guard checks a regular transition to target.
func (c *Campaign) guard(target Status) error {
	if c.Status == target {
		return ErrAlreadyInState
	}
	if c.IsLocked() || !c.Status.CanTransitionTo(target) {
		return shared.NewConflictError(fmt.Sprintf("cannot move campaign from %s to %s", c.Status, target))
	}
	return nil
}

// apply records the new status and bumps the version. The event factory
// runs after the bump so the event carries the new version.
func (c *Campaign) apply(target Status, event func(from Status) shared.DomainEvent) {
	from := c.Status
	c.Status = target
	c.IncrementVersion()
	c.Touch()
	c.AddDomainEvent(event(from))
}

// Submit sends a draft for payment
func (c *Campaign) Submit() error {
	if err := c.guard(StatusPendingPayment); err != nil {
		return err
	}
	now := time.Now()
	c.SubmittedAt = &now
	c.PaymentStatus = PaymentPending
	c.apply(StatusPendingPayment, func(from Status) shared.DomainEvent {
		return NewCampaignSubmittedEvent(c, from)
	})
	return nil
}

// ConfirmPayment moves a campaign awaiting payment into review
func (c *Campaign) ConfirmPayment(adminNote string) error {
	if err := c.guard(StatusPendingApproval); err != nil {
		return err
	}
	if c.PaymentStatus == PaymentConfirmed {
		return shared.NewConflictError("payment is already confirmed")
	}
	now := time.Now()
	c.PaymentStatus = PaymentConfirmed
	c.PaymentConfirmedAt = &now
	c.setNote(adminNote)
	c.apply(StatusPendingApproval, func(from Status) shared.DomainEvent {
		return NewCampaignPaymentConfirmedEvent(c, from)
	})
	return nil
}

// Approve activates a campaign and opens recruitment
func (c *Campaign) Approve(adminNote string) error {
	if err := c.guard(StatusActive); err != nil {
		return err
	}
	now := time.Now()
	c.ApprovalStatus = ApprovalApproved
	c.ProgressStatus = ProgressRecruiting
	c.ApprovedAt = &now
	c.setNote(adminNote)
	c.apply(StatusActive, func(from Status) shared.DomainEvent {
		return NewCampaignActivatedEvent(c, from)
	})
	return nil
}

// Complete closes an active campaign after final content approval
func (c *Campaign) Complete(adminNote string) error {
	if err := c.guard(StatusCompleted); err != nil {
		return err
	}
	now := time.Now()
	c.CompletedAt = &now
	c.setNote(adminNote)
	c.apply(StatusCompleted, func(from Status) shared.DomainEvent {
		return NewCampaignCompletedEvent(c, from)
	})
	return nil
}

// Cancel cancels a campaign from any non-terminal status. Irreversible
// except through Override.
func (c *Campaign) Cancel(reason string) error {
	if c.IsCancelled {
		return ErrAlreadyInState
	}
	if err := c.guard(StatusCancelled); err != nil {
		return err
	}
	now := time.Now()
	c.IsCancelled = true
	c.CancelledAt = &now
	c.setNote(reason)
	c.apply(StatusCancelled, func(from Status) shared.DomainEvent {
		return NewCampaignCancelledEvent(c, from)
	})
	return nil
}

// Override sets any status, bypassing the transition table. A note is
// required so the change can be audited.
func (c *Campaign) Override(target Status, note string) error {
	if !target.IsValid() {
		return shared.NewValidationError("invalid campaign status: " + string(target))
	}
	if strings.TrimSpace(note) == "" {
		return shared.NewValidationError("a note is required for a status override")
	}
	if c.Status == target {
		return ErrAlreadyInState
	}
	c.IsCancelled = target == StatusCancelled
	if c.IsCancelled && c.CancelledAt == nil {
		now := time.Now()
		c.CancelledAt = &now
	}
	c.setNote(note)
	c.apply(target, func(from Status) shared.DomainEvent {
		return NewCampaignStatusOverriddenEvent(c, from)
	})
	return nil
}

// TransferTo rewrites the owner pointer. Participants, ledger entries and
// notifications already sent are left as they are.
func (c *Campaign) TransferTo(email string, companyID *uuid.UUID) error {
	email = company.FoldEmail(email)
	if email == "" {
		return shared.NewValidationError("new company email is required")
	}
	if email == c.CompanyEmail && sameID(c.CompanyID, companyID) {
		return ErrAlreadyInState
	}
	previousEmail := c.CompanyEmail
	previousID := c.CompanyID
	c.CompanyEmail = email
	c.CompanyID = companyID
	c.IncrementVersion()
	c.Touch()
	c.AddDomainEvent(NewCampaignTransferredEvent(c, previousEmail, previousID))
	return nil
}

// ActivationEvent builds the activation event for the current version
// without changing state, for manual resends.
func (c *Campaign) ActivationEvent() (*CampaignActivatedEvent, error) {
	if c.Status != StatusActive {
		return nil, shared.NewConflictError(fmt.Sprintf("campaign is %s, not active", c.Status))
	}
	return NewCampaignActivatedEvent(c, StatusPendingApproval), nil
}

func (c *Campaign) setNote(note string) {
	if n := strings.TrimSpace(note); n != "" {
		c.AdminNote = n
	}
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
