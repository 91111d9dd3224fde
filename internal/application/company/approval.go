package company

import (
	"context"

	"github.com/cnec/backend/internal/domain/region"
	"github.com/cnec/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ApprovalResult is the company account state after an approval decision
type ApprovalResult struct {
	CompanyID  uuid.UUID `json:"companyId"`
	Email      string    `json:"email"`
	IsApproved bool      `json:"isApproved"`
	Changed    bool      `json:"changed"`
}

// ApprovalService lets admins approve or reject company accounts. The
// flag lives on the central company record.
type ApprovalService struct {
	stores Stores
	logger *zap.Logger
}

// NewApprovalService creates a new ApprovalService
func NewApprovalService(stores Stores, logger *zap.Logger) *ApprovalService {
	return &ApprovalService{stores: stores, logger: logger}
}

// SetApproval grants (approve=true) or withdraws approval of a company.
// Repeating the current decision writes nothing.
func (s *ApprovalService) SetApproval(ctx context.Context, companyID uuid.UUID, approve bool) (_ *ApprovalResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "company", "set_approval",
		telemetry.AttrRegion.String(region.Central.String()),
		attribute.String("company_id", companyID.String()),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	repo, err := s.stores.Companies(region.Central)
	if err != nil {
		return nil, err
	}
	c, err := repo.FindByID(ctx, companyID)
	if err != nil {
		return nil, err
	}

	changed := c.SetApproval(approve)
	if changed {
		if err = repo.Save(ctx, c); err != nil {
			return nil, err
		}
		s.logger.Info("company approval changed",
			zap.String("company_id", c.ID.String()),
			zap.Bool("approved", approve),
		)
	}
	return &ApprovalResult{
		CompanyID:  c.ID,
		Email:      c.Email,
		IsApproved: c.IsApproved,
		Changed:    changed,
	}, nil
}
