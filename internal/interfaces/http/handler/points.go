package handler

import (
	"context"
	"strconv"

	apppoints "github.com/cnec/backend/internal/application/points"
	"github.com/cnec/backend/internal/domain/points"
	"github.com/cnec/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LedgerService is the points use case surface the handler needs
type LedgerService interface {
	Charge(ctx context.Context, in apppoints.ChargeInput) (*apppoints.ChargeRequestResponse, error)
	Confirm(ctx context.Context, chargeRequestID uuid.UUID, adminNote string) (*apppoints.ConfirmResult, error)
	Cancel(ctx context.Context, chargeRequestID, companyID uuid.UUID) (*apppoints.ChargeRequestResponse, error)
	AdminAdjust(ctx context.Context, companyID uuid.UUID, delta int64, reason string) (*apppoints.AdjustResult, error)
	Balance(ctx context.Context, companyID uuid.UUID, filter shared.Filter) (*apppoints.BalanceView, error)
	ChargeRequests(ctx context.Context, companyID uuid.UUID, filter shared.Filter) (shared.Paginated[apppoints.ChargeRequestResponse], error)
}

// PointsHandler serves the points ledger endpoints
type PointsHandler struct {
	BaseHandler
	ledger LedgerService
}

// NewPointsHandler creates a new PointsHandler
func NewPointsHandler(ledger LedgerService) *PointsHandler {
	return &PointsHandler{ledger: ledger}
}

// CreateChargeRequest asks to buy points
type CreateChargeRequest struct {
	CompanyID     string         `json:"companyId" binding:"required"`
	Amount        int64          `json:"amount" binding:"required,gt=0"`
	PaymentMethod string         `json:"paymentMethod" binding:"required,oneof=bank_transfer card virtual_account"`
	DepositorName string         `json:"depositorName" binding:"max=100"`
	InvoiceData   map[string]any `json:"invoiceData"`
}

// CancelChargeRequest withdraws a pending charge request
type CancelChargeRequest struct {
	ChargeRequestID string `json:"chargeRequestId" binding:"required"`
	CompanyID       string `json:"companyId" binding:"required"`
}

// ConfirmChargeRequest confirms a paid charge request
type ConfirmChargeRequest struct {
	ChargeRequestID string `json:"chargeRequestId" binding:"required"`
	AdminNote       string `json:"adminNote" binding:"max=2000"`
}

// AdjustPointsRequest grants (positive) or deducts (negative) points
type AdjustPointsRequest struct {
	CompanyID string `json:"companyId" binding:"required"`
	Amount    int64  `json:"amount" binding:"required"`
	Reason    string `json:"reason" binding:"required,max=500"`
}

// CreateChargeRequest handles POST /points/charge-requests
func (h *PointsHandler) CreateChargeRequest(c *gin.Context) {
	var req CreateChargeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	companyID, ok := h.parseID(c, "companyId", req.CompanyID)
	if !ok {
		return
	}
	if !h.ownsCompany(c, companyID) {
		h.Forbidden(c, "Points can only be charged for your own company")
		return
	}

	result, err := h.ledger.Charge(c.Request.Context(), apppoints.ChargeInput{
		CompanyID:     companyID,
		Amount:        req.Amount,
		PaymentMethod: points.PaymentMethod(req.PaymentMethod),
		DepositorName: req.DepositorName,
		InvoiceData:   points.InvoiceData(req.InvoiceData),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// CancelChargeRequest handles POST /points/charge-requests/cancel
func (h *PointsHandler) CancelChargeRequest(c *gin.Context) {
	var req CancelChargeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	id, ok := h.parseID(c, "chargeRequestId", req.ChargeRequestID)
	if !ok {
		return
	}
	companyID, ok := h.parseID(c, "companyId", req.CompanyID)
	if !ok {
		return
	}
	if !h.ownsCompany(c, companyID) {
		h.Forbidden(c, "Charge requests can only be cancelled by their own company")
		return
	}

	result, err := h.ledger.Cancel(c.Request.Context(), id, companyID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Message(c, "Charge request cancelled", result)
}

// ConfirmChargeRequest handles POST /admin/points/charge-requests/confirm
func (h *PointsHandler) ConfirmChargeRequest(c *gin.Context) {
	var req ConfirmChargeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	id, ok := h.parseID(c, "chargeRequestId", req.ChargeRequestID)
	if !ok {
		return
	}

	result, err := h.ledger.Confirm(c.Request.Context(), id, req.AdminNote)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Message(c, "Points charged", result)
}

// AdjustPoints handles POST /admin/points/adjust
func (h *PointsHandler) AdjustPoints(c *gin.Context) {
	var req AdjustPointsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	companyID, ok := h.parseID(c, "companyId", req.CompanyID)
	if !ok {
		return
	}

	result, err := h.ledger.AdminAdjust(c.Request.Context(), companyID, req.Amount, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Message(c, "Points adjusted", result)
}

// GetCompanyPoints handles GET /points/companies/:id
func (h *PointsHandler) GetCompanyPoints(c *gin.Context) {
	companyID, ok := h.companyParam(c)
	if !ok {
		return
	}
	view, err := h.ledger.Balance(c.Request.Context(), companyID, pageFilter(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// ListChargeRequests handles GET /points/companies/:id/charge-requests
func (h *PointsHandler) ListChargeRequests(c *gin.Context) {
	companyID, ok := h.companyParam(c)
	if !ok {
		return
	}
	page, err := h.ledger.ChargeRequests(c.Request.Context(), companyID, pageFilter(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

func (h *PointsHandler) companyParam(c *gin.Context) (uuid.UUID, bool) {
	companyID, ok := h.parseID(c, "company id", c.Param("id"))
	if !ok {
		return uuid.Nil, false
	}
	if !h.ownsCompany(c, companyID) {
		h.Forbidden(c, "Points of other companies are not visible")
		return uuid.Nil, false
	}
	return companyID, true
}

// pageFilter reads page and page_size query parameters. Invalid values fall
// back to the defaults.
func pageFilter(c *gin.Context) shared.Filter {
	filter := shared.DefaultFilter()
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		filter.Page = v
	}
	if v, err := strconv.Atoi(c.Query("page_size")); err == nil && v > 0 {
		filter.PageSize = v
	}
	return filter
}
