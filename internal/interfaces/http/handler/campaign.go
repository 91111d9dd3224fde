package handler

import (
	"context"
	"errors"

	"github.com/cnec/backend/internal/application/batch"
	appcampaign "github.com/cnec/backend/internal/application/campaign"
	"github.com/cnec/backend/internal/domain/campaign"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CampaignService is the campaign use case surface the handler needs
type CampaignService interface {
	Submit(ctx context.Context, campaignID, companyID uuid.UUID, regionName string) (*appcampaign.TransitionResult, error)
	ConfirmPayment(ctx context.Context, campaignID uuid.UUID, regionName, adminNote string) (*appcampaign.TransitionResult, error)
	Approve(ctx context.Context, campaignID uuid.UUID, regionName, adminNote string) (*appcampaign.TransitionResult, error)
	Complete(ctx context.Context, campaignID uuid.UUID, regionName, adminNote string) (*appcampaign.TransitionResult, error)
	Cancel(ctx context.Context, campaignID uuid.UUID, regionName, reason string) (*appcampaign.TransitionResult, error)
	Override(ctx context.Context, campaignID uuid.UUID, regionName, status, note string) (*appcampaign.TransitionResult, error)
	Transfer(ctx context.Context, campaignID uuid.UUID, regionName, newEmail string) (*appcampaign.TransferResult, error)
	SendActivationNotification(ctx context.Context, campaignID uuid.UUID, regionName string, force bool) (*appcampaign.NotificationResult, error)
	BulkApprove(ctx context.Context, regionName string, ids []string, adminNote string) (batch.Result, error)
	ListByOwner(ctx context.Context, regionName, email string) ([]appcampaign.CampaignResponse, error)
}

// CampaignHandler serves the campaign lifecycle endpoints
type CampaignHandler struct {
	BaseHandler
	service CampaignService
}

// NewCampaignHandler creates a new CampaignHandler
func NewCampaignHandler(service CampaignService) *CampaignHandler {
	return &CampaignHandler{service: service}
}

// CampaignActionRequest addresses one campaign in one region
type CampaignActionRequest struct {
	CampaignID string `json:"campaignId" binding:"required"`
	Region     string `json:"region" binding:"required"`
	AdminNote  string `json:"adminNote" binding:"max=2000"`
}

// SubmitCampaignRequest is a company's submission for review
type SubmitCampaignRequest struct {
	CampaignID string `json:"campaignId" binding:"required"`
	CompanyID  string `json:"companyId" binding:"required"`
	Region     string `json:"region" binding:"required"`
}

// CancelCampaignRequest cancels a campaign
type CancelCampaignRequest struct {
	CampaignID string `json:"campaignId" binding:"required"`
	Region     string `json:"region" binding:"required"`
	Reason     string `json:"reason" binding:"max=2000"`
}

// OverrideStatusRequest forces a campaign into any status
type OverrideStatusRequest struct {
	CampaignID string `json:"campaignId" binding:"required"`
	Region     string `json:"region" binding:"required"`
	Status     string `json:"status" binding:"required"`
	Note       string `json:"note" binding:"required,max=2000"`
}

// BulkApproveRequest approves many campaigns of one region
type BulkApproveRequest struct {
	CampaignIDs []string `json:"campaignIds" binding:"required,min=1,max=500"`
	Region      string   `json:"region" binding:"required"`
	AdminNote   string   `json:"adminNote" binding:"max=2000"`
}

// ActivationNotificationRequest resends the activation notice
type ActivationNotificationRequest struct {
	CampaignID string `json:"campaignId" binding:"required"`
	Region     string `json:"region" binding:"required"`
	// Force sends even if the notice was already delivered
	Force bool `json:"force"`
}

// TransferCampaignRequest moves a campaign to another company
type TransferCampaignRequest struct {
	CampaignID      string `json:"campaignId" binding:"required"`
	Region          string `json:"region" binding:"required"`
	NewCompanyEmail string `json:"newCompanyEmail" binding:"required,email"`
}

// Submit handles POST /campaigns/submit
func (h *CampaignHandler) Submit(c *gin.Context) {
	var req SubmitCampaignRequest
	if !h.bindJSON(c, &req) {
		return
	}
	campaignID, ok := h.parseID(c, "campaignId", req.CampaignID)
	if !ok {
		return
	}
	companyID, ok := h.parseID(c, "companyId", req.CompanyID)
	if !ok {
		return
	}
	if !h.ownsCompany(c, companyID) {
		h.Forbidden(c, "Campaigns can only be submitted by their own company")
		return
	}
	withRegion(c, req.Region)

	result, err := h.service.Submit(c.Request.Context(), campaignID, companyID, req.Region)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.transition(c, result, "Campaign submitted for review", "Campaign is already pending review")
}

// ConfirmPayment handles POST /admin/campaigns/confirm-payment
func (h *CampaignHandler) ConfirmPayment(c *gin.Context) {
	h.action(c, h.service.ConfirmPayment, "Campaign payment confirmed", "Campaign payment is already confirmed")
}

// Approve handles POST /admin/campaigns/approve
func (h *CampaignHandler) Approve(c *gin.Context) {
	h.action(c, h.service.Approve, "Campaign approved", "Campaign is already active")
}

// Complete handles POST /admin/campaigns/complete
func (h *CampaignHandler) Complete(c *gin.Context) {
	h.action(c, h.service.Complete, "Campaign completed", "Campaign is already completed")
}

// Cancel handles POST /admin/campaigns/cancel
func (h *CampaignHandler) Cancel(c *gin.Context) {
	var req CancelCampaignRequest
	if !h.bindJSON(c, &req) {
		return
	}
	id, ok := h.parseID(c, "campaignId", req.CampaignID)
	if !ok {
		return
	}
	withRegion(c, req.Region)

	result, err := h.service.Cancel(c.Request.Context(), id, req.Region, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.transition(c, result, "Campaign cancelled", "Campaign is already cancelled")
}

// OverrideStatus handles POST /admin/campaigns/override-status
func (h *CampaignHandler) OverrideStatus(c *gin.Context) {
	var req OverrideStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	id, ok := h.parseID(c, "campaignId", req.CampaignID)
	if !ok {
		return
	}
	withRegion(c, req.Region)

	result, err := h.service.Override(c.Request.Context(), id, req.Region, req.Status, req.Note)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.transition(c, result, "Campaign status overridden", "Campaign is already in that status")
}

// BulkApprove handles POST /admin/campaigns/bulk-approve. Per-item failures
// are part of the result, so the response is 200 unless the request itself
// is invalid.
func (h *CampaignHandler) BulkApprove(c *gin.Context) {
	var req BulkApproveRequest
	if !h.bindJSON(c, &req) {
		return
	}
	withRegion(c, req.Region)

	result, err := h.service.BulkApprove(c.Request.Context(), req.Region, req.CampaignIDs, req.AdminNote)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// SendActivationNotification handles POST /admin/campaigns/activation-notification
func (h *CampaignHandler) SendActivationNotification(c *gin.Context) {
	var req ActivationNotificationRequest
	if !h.bindJSON(c, &req) {
		return
	}
	id, ok := h.parseID(c, "campaignId", req.CampaignID)
	if !ok {
		return
	}
	withRegion(c, req.Region)

	result, err := h.service.SendActivationNotification(c.Request.Context(), id, req.Region, req.Force)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	// Channel failures are reported in the result, never as an error
	message := "Activation notification sent"
	switch {
	case result.Result.Duplicate:
		message = "Activation notification was already sent"
	case !result.Result.Attempted():
		message = "Company has no contact to notify"
	case !result.Result.Delivered():
		message = "Activation notification could not be delivered"
	}
	h.Message(c, message, result)
}

// Transfer handles POST /admin/campaigns/transfer
func (h *CampaignHandler) Transfer(c *gin.Context) {
	var req TransferCampaignRequest
	if !h.bindJSON(c, &req) {
		return
	}
	id, ok := h.parseID(c, "campaignId", req.CampaignID)
	if !ok {
		return
	}
	withRegion(c, req.Region)

	result, err := h.service.Transfer(c.Request.Context(), id, req.Region, req.NewCompanyEmail)
	if errors.Is(err, campaign.ErrAlreadyInState) {
		h.Message(c, "Campaign already belongs to this company", gin.H{"changed": false})
		return
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Message(c, "Campaign transferred", result)
}

// ListByOwner handles GET /admin/campaigns?region=&companyEmail=
func (h *CampaignHandler) ListByOwner(c *gin.Context) {
	regionName := c.Query("region")
	if regionName == "" {
		h.BadRequest(c, "region is required")
		return
	}
	withRegion(c, regionName)

	result, err := h.service.ListByOwner(c.Request.Context(), regionName, c.Query("companyEmail"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

type actionFunc func(ctx context.Context, id uuid.UUID, regionName, adminNote string) (*appcampaign.TransitionResult, error)

func (h *CampaignHandler) action(c *gin.Context, fn actionFunc, changed, unchanged string) {
	var req CampaignActionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	id, ok := h.parseID(c, "campaignId", req.CampaignID)
	if !ok {
		return
	}
	withRegion(c, req.Region)

	result, err := fn(c.Request.Context(), id, req.Region, req.AdminNote)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.transition(c, result, changed, unchanged)
}

func (h *CampaignHandler) transition(c *gin.Context, result *appcampaign.TransitionResult, changed, unchanged string) {
	message := changed
	if !result.Changed {
		message = unchanged
	}
	h.Message(c, message, result)
}
