package campaign

import (
	"time"

	"github.com/cnec/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Event type constants
const (
	EventTypeCampaignSubmitted        = "CampaignSubmitted"
	EventTypeCampaignPaymentConfirmed = "CampaignPaymentConfirmed"
	EventTypeCampaignActivated        = "CampaignActivated"
	EventTypeCampaignCompleted        = "CampaignCompleted"
	EventTypeCampaignCancelled        = "CampaignCancelled"
	EventTypeCampaignStatusOverridden = "CampaignStatusOverridden"
	EventTypeCampaignTransferred      = "CampaignTransferred"
)

// Snapshot is the campaign state carried by every campaign event, so
// handlers can notify without reading the campaign store again.
type Snapshot struct {
	CampaignID   uuid.UUID  `json:"campaign_id"`
	Title        string     `json:"title"`
	Brand        string     `json:"brand,omitempty"`
	CompanyID    *uuid.UUID `json:"company_id,omitempty"`
	CompanyEmail string     `json:"company_email"`
	FromStatus   Status     `json:"from_status"`
	ToStatus     Status     `json:"to_status"`
	AdminNote    string     `json:"admin_note,omitempty"`
}

func snapshot(c *Campaign, from Status) Snapshot {
	return Snapshot{
		CampaignID:   c.ID,
		Title:        c.Title,
		Brand:        c.Brand,
		CompanyID:    c.CompanyID,
		CompanyEmail: c.CompanyEmail,
		FromStatus:   from,
		ToStatus:     c.Status,
		AdminNote:    c.AdminNote,
	}
}

func base(eventType string, c *Campaign) shared.BaseDomainEvent {
	return shared.NewBaseDomainEvent(eventType, AggregateTypeCampaign, c.ID, c.Version, c.Region)
}

// CampaignSubmittedEvent is raised when a company submits a draft for review
type CampaignSubmittedEvent struct {
	shared.BaseDomainEvent
	Snapshot
}

func NewCampaignSubmittedEvent(c *Campaign, from Status) *CampaignSubmittedEvent {
	return &CampaignSubmittedEvent{
		BaseDomainEvent: base(EventTypeCampaignSubmitted, c),
		Snapshot:        snapshot(c, from),
	}
}

// CampaignPaymentConfirmedEvent is raised when an admin confirms the campaign fee
type CampaignPaymentConfirmedEvent struct {
	shared.BaseDomainEvent
	Snapshot
}

func NewCampaignPaymentConfirmedEvent(c *Campaign, from Status) *CampaignPaymentConfirmedEvent {
	return &CampaignPaymentConfirmedEvent{
		BaseDomainEvent: base(EventTypeCampaignPaymentConfirmed, c),
		Snapshot:        snapshot(c, from),
	}
}

// CampaignActivatedEvent is raised when a campaign is approved and starts recruiting.
// It triggers the activation notification to the owning company.
type CampaignActivatedEvent struct {
	shared.BaseDomainEvent
	Snapshot
	TotalSlots          int        `json:"total_slots"`
	RewardPoints        int64      `json:"reward_points"`
	RecruitmentDeadline *time.Time `json:"recruitment_deadline,omitempty"`
	ApprovedAt          *time.Time `json:"approved_at,omitempty"`
}

func NewCampaignActivatedEvent(c *Campaign, from Status) *CampaignActivatedEvent {
	return &CampaignActivatedEvent{
		BaseDomainEvent:     base(EventTypeCampaignActivated, c),
		Snapshot:            snapshot(c, from),
		TotalSlots:          c.TotalSlots,
		RewardPoints:        c.RewardPoints,
		RecruitmentDeadline: c.RecruitmentDeadline,
		ApprovedAt:          c.ApprovedAt,
	}
}

// CampaignCompletedEvent is raised when an active campaign is closed
type CampaignCompletedEvent struct {
	shared.BaseDomainEvent
	Snapshot
}

func NewCampaignCompletedEvent(c *Campaign, from Status) *CampaignCompletedEvent {
	return &CampaignCompletedEvent{
		BaseDomainEvent: base(EventTypeCampaignCompleted, c),
		Snapshot:        snapshot(c, from),
	}
}

// CampaignCancelledEvent is raised when a campaign is cancelled
type CampaignCancelledEvent struct {
	shared.BaseDomainEvent
	Snapshot
}

func NewCampaignCancelledEvent(c *Campaign, from Status) *CampaignCancelledEvent {
	return &CampaignCancelledEvent{
		BaseDomainEvent: base(EventTypeCampaignCancelled, c),
		Snapshot:        snapshot(c, from),
	}
}

// CampaignStatusOverriddenEvent is raised by an admin override
type CampaignStatusOverriddenEvent struct {
	shared.BaseDomainEvent
	Snapshot
}

func NewCampaignStatusOverriddenEvent(c *Campaign, from Status) *CampaignStatusOverriddenEvent {
	return &CampaignStatusOverriddenEvent{
		BaseDomainEvent: base(EventTypeCampaignStatusOverridden, c),
		Snapshot:        snapshot(c, from),
	}
}

// CampaignTransferredEvent is raised when ownership moves to another company
type CampaignTransferredEvent struct {
	shared.BaseDomainEvent
	Snapshot
	PreviousEmail     string     `json:"previous_email"`
	PreviousCompanyID *uuid.UUID `json:"previous_company_id,omitempty"`
}

func NewCampaignTransferredEvent(c *Campaign, previousEmail string, previousID *uuid.UUID) *CampaignTransferredEvent {
	return &CampaignTransferredEvent{
		BaseDomainEvent:   base(EventTypeCampaignTransferred, c),
		Snapshot:          snapshot(c, c.Status),
		PreviousEmail:     previousEmail,
		PreviousCompanyID: previousID,
	}
}
