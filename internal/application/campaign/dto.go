package campaign

import (
	"time"

	"github.com/cnec/backend/internal/domain/campaign"
	"github.com/cnec/backend/internal/domain/notification"
	"github.com/google/uuid"
)

// CampaignResponse is the API view of a campaign
type CampaignResponse struct {
	ID                  uuid.UUID               `json:"id"`
	Region              string                  `json:"region"`
	Title               string                  `json:"title"`
	CompanyID           *uuid.UUID              `json:"companyId,omitempty"`
	CompanyEmail        string                  `json:"companyEmail"`
	Status              campaign.Status         `json:"status"`
	ApprovalStatus      campaign.ApprovalStatus `json:"approvalStatus"`
	PaymentStatus       campaign.PaymentStatus  `json:"paymentStatus"`
	ProgressStatus      string                  `json:"progressStatus,omitempty"`
	IsCancelled         bool                    `json:"isCancelled"`
	AdminNote           string                  `json:"adminNote,omitempty"`
	RecruitmentDeadline *time.Time              `json:"recruitmentDeadline,omitempty"`
	ApprovedAt          *time.Time              `json:"approvedAt,omitempty"`
	Version             int                     `json:"version"`
	UpdatedAt           time.Time               `json:"updatedAt"`
}

// ToCampaignResponse converts a domain campaign
func ToCampaignResponse(c *campaign.Campaign) CampaignResponse {
	return CampaignResponse{
		ID:                  c.ID,
		Region:              c.Region,
		Title:               c.Title,
		CompanyID:           c.CompanyID,
		CompanyEmail:        c.CompanyEmail,
		Status:              c.Status,
		ApprovalStatus:      c.ApprovalStatus,
		PaymentStatus:       c.PaymentStatus,
		ProgressStatus:      c.ProgressStatus,
		IsCancelled:         c.IsCancelled,
		AdminNote:           c.AdminNote,
		RecruitmentDeadline: c.RecruitmentDeadline,
		ApprovedAt:          c.ApprovedAt,
		Version:             c.Version,
		UpdatedAt:           c.UpdatedAt,
	}
}

// TransitionResult is the outcome of a single status change. Changed is
// false when the campaign was already in the target status; nothing was
// written in that case.
type TransitionResult struct {
	Campaign CampaignResponse `json:"campaign"`
	Changed  bool             `json:"changed"`
}

// TransferResult is the outcome of an ownership transfer
type TransferResult struct {
	Campaign        CampaignResponse `json:"campaign"`
	CompanyResolved bool             `json:"companyResolved"`
	Strategy        string           `json:"strategy,omitempty"`
}

// NotificationResult reports a manual notification send
type NotificationResult struct {
	CampaignID uuid.UUID           `json:"campaignId"`
	Result     notification.Result `json:"result"`
}
