package models

import (
	"time"

	"github.com/cnec/backend/internal/domain/campaign"
	"github.com/cnec/backend/internal/domain/company"
	"github.com/google/uuid"
)

// CampaignModel is the persistence model for the Campaign aggregate.
type CampaignModel struct {
	AggregateModel
	CompanyID           *uuid.UUID              `gorm:"type:uuid;index"`
	CompanyEmail        string                  `gorm:"type:varchar(320);index"`
	Title               string                  `gorm:"type:varchar(300);not null"`
	Brand               string                  `gorm:"type:varchar(200)"`
	Status              campaign.Status         `gorm:"type:varchar(30);not null;default:'draft';index:idx_campaign_status_deadline,priority:1"`
	ApprovalStatus      campaign.ApprovalStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	PaymentStatus       campaign.PaymentStatus  `gorm:"type:varchar(20);not null;default:'unpaid'"`
	ProgressStatus      string                  `gorm:"type:varchar(30)"`
	TotalSlots          int                     `gorm:"not null;default:0"`
	RewardPoints        int64                   `gorm:"not null;default:0"`
	RecruitmentDeadline *time.Time              `gorm:"index:idx_campaign_status_deadline,priority:2"`
	Step1Deadline       *time.Time
	Step2Deadline       *time.Time
	Step3Deadline       *time.Time
	IsCancelled         bool   `gorm:"not null;default:false"`
	AdminNote           string `gorm:"type:text"`
	SubmittedAt         *time.Time
	PaymentConfirmedAt  *time.Time
	ApprovedAt          *time.Time
	CompletedAt         *time.Time
	CancelledAt         *time.Time
}

// TableName returns the table name for GORM
func (CampaignModel) TableName() string {
	return "campaigns"
}

// ToDomain converts the persistence model to a domain Campaign. Legacy status
// values are normalized on read.
func (m *CampaignModel) ToDomain(region string) *campaign.Campaign {
	status := m.Status
	if parsed, err := campaign.ParseStatus(string(m.Status)); err == nil {
		status = parsed
	}
	return &campaign.Campaign{
		RegionAggregateRoot: m.ToRegionAggregateRoot(region),
		CompanyID:           m.CompanyID,
		CompanyEmail:        m.CompanyEmail,
		Title:               m.Title,
		Brand:               m.Brand,
		Status:              status,
		ApprovalStatus:      m.ApprovalStatus,
		PaymentStatus:       m.PaymentStatus,
		ProgressStatus:      m.ProgressStatus,
		TotalSlots:          m.TotalSlots,
		RewardPoints:        m.RewardPoints,
		RecruitmentDeadline: m.RecruitmentDeadline,
		Step1Deadline:       m.Step1Deadline,
		Step2Deadline:       m.Step2Deadline,
		Step3Deadline:       m.Step3Deadline,
		IsCancelled:         m.IsCancelled,
		AdminNote:           m.AdminNote,
		SubmittedAt:         m.SubmittedAt,
		PaymentConfirmedAt:  m.PaymentConfirmedAt,
		ApprovedAt:          m.ApprovedAt,
		CompletedAt:         m.CompletedAt,
		CancelledAt:         m.CancelledAt,
	}
}

// FromDomain populates the persistence model from a domain Campaign
func (m *CampaignModel) FromDomain(c *campaign.Campaign) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.CompanyID = c.CompanyID
	m.CompanyEmail = company.FoldEmail(c.CompanyEmail)
	m.Title = c.Title
	m.Brand = c.Brand
	m.Status = c.Status
	m.ApprovalStatus = c.ApprovalStatus
	m.PaymentStatus = c.PaymentStatus
	m.ProgressStatus = c.ProgressStatus
	m.TotalSlots = c.TotalSlots
	m.RewardPoints = c.RewardPoints
	m.RecruitmentDeadline = c.RecruitmentDeadline
	m.Step1Deadline = c.Step1Deadline
	m.Step2Deadline = c.Step2Deadline
	m.Step3Deadline = c.Step3Deadline
	m.IsCancelled = c.IsCancelled
	m.AdminNote = c.AdminNote
	m.SubmittedAt = c.SubmittedAt
	m.PaymentConfirmedAt = c.PaymentConfirmedAt
	m.ApprovedAt = c.ApprovedAt
	m.CompletedAt = c.CompletedAt
	m.CancelledAt = c.CancelledAt
}

// CampaignModelFromDomain creates a new persistence model from a domain Campaign
func CampaignModelFromDomain(c *campaign.Campaign) *CampaignModel {
	m := &CampaignModel{}
	m.FromDomain(c)
	return m
}

// ParticipantModel is a creator's application to a campaign.
type ParticipantModel struct {
	BaseModel
	CampaignID     uuid.UUID                  `gorm:"type:uuid;not null;index"`
	CreatorID      uuid.UUID                  `gorm:"type:uuid;not null"`
	Status         campaign.ParticipantStatus `gorm:"type:varchar(20);not null;default:'applied'"`
	GuideConfirmed bool                       `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (ParticipantModel) TableName() string {
	return "campaign_participants"
}

// ToDomain converts the persistence model to a domain Participant
func (m *ParticipantModel) ToDomain() *campaign.Participant {
	return &campaign.Participant{
		BaseEntity:     m.BaseModel.ToDomain(),
		CampaignID:     m.CampaignID,
		CreatorID:      m.CreatorID,
		Status:         m.Status,
		GuideConfirmed: m.GuideConfirmed,
	}
}

// FromDomain populates the persistence model from a domain Participant
func (m *ParticipantModel) FromDomain(p *campaign.Participant) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.CampaignID = p.CampaignID
	m.CreatorID = p.CreatorID
	m.Status = p.Status
	m.GuideConfirmed = p.GuideConfirmed
}
