package handler

import (
	"context"

	appcompany "github.com/cnec/backend/internal/application/company"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CompanyApprover is the company account surface the handler needs
type CompanyApprover interface {
	SetApproval(ctx context.Context, companyID uuid.UUID, approve bool) (*appcompany.ApprovalResult, error)
}

// CompanyHandler serves the admin company account endpoints
type CompanyHandler struct {
	BaseHandler
	approver CompanyApprover
}

// NewCompanyHandler creates a new CompanyHandler
func NewCompanyHandler(approver CompanyApprover) *CompanyHandler {
	return &CompanyHandler{approver: approver}
}

// ApproveCompanyRequest grants or withdraws approval of a company account
type ApproveCompanyRequest struct {
	CompanyID string `json:"companyId" binding:"required"`
	Approve   *bool  `json:"approve" binding:"required"`
}

// Approve handles POST /admin/companies/approve
func (h *CompanyHandler) Approve(c *gin.Context) {
	var req ApproveCompanyRequest
	if !h.bindJSON(c, &req) {
		return
	}
	id, ok := h.parseID(c, "companyId", req.CompanyID)
	if !ok {
		return
	}

	result, err := h.approver.SetApproval(c.Request.Context(), id, *req.Approve)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	message := "Company approved"
	if !result.IsApproved {
		message = "Company approval withdrawn"
	}
	h.Message(c, message, result)
}
