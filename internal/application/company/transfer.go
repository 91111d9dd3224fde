package company

import (
	"context"

	"github.com/cnec/backend/internal/domain/campaign"
	"github.com/cnec/backend/internal/domain/company"
	"github.com/cnec/backend/internal/domain/region"
	"github.com/cnec/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransferResult describes a completed ownership transfer
type TransferResult struct {
	Campaign *campaign.Campaign
	// Company is nil when no store knows the new email yet; the campaign
	// then points at the email only.
	Company  *company.Company
	Strategy Strategy
}

// Transfer moves a campaign to the company registered under newEmail. The
// owner pointer is rewritten with a version check and CampaignTransferred is
// written to the outbox in the same transaction.
//
// Only the pointer moves. Participants, ledger entries and notifications
// already sent stay attributed to the previous owner.
func (r *EntityResolver) Transfer(ctx context.Context, campaignID uuid.UUID, key region.Key, newEmail string) (*TransferResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "company", "transfer", telemetry.AttrRegion.String(key.String()))
	var err error
	defer func() { telemetry.EndSpan(span, err) }()

	email, err := company.NormalizeEmail(newEmail)
	if err != nil {
		return nil, err
	}

	campaigns, err := r.stores.Campaigns(key)
	if err != nil {
		return nil, err
	}
	c, err := campaigns.FindByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	res := &TransferResult{}
	var companyID *uuid.UUID
	resolution, resolveErr := r.resolveByEmail(ctx, key, email)
	switch {
	case resolveErr == nil:
		res.Company = resolution.Company
		res.Strategy = resolution.Strategy
		id := resolution.Company.ID
		companyID = &id
	case isNotFound(resolveErr):
		r.logger.Info("no company registered for the new owner email, transferring by email only",
			zap.String("campaign_id", campaignID.String()),
			zap.String("email", email),
		)
	default:
		err = resolveErr
		return nil, err
	}

	previous := c.CompanyEmail
	if err = c.TransferTo(email, companyID); err != nil {
		return nil, err
	}
	if err = campaigns.Save(ctx, c); err != nil {
		return nil, err
	}

	r.logger.Info("campaign transferred",
		zap.String("campaign_id", c.ID.String()),
		zap.String("region", key.String()),
		zap.String("from", previous),
		zap.String("to", email),
		zap.Bool("company_resolved", companyID != nil),
	)
	res.Campaign = c
	return res, nil
}

// resolveByEmail looks the email up in the campaign's region, then centrally
func (r *EntityResolver) resolveByEmail(ctx context.Context, key region.Key, email string) (*Resolution, error) {
	return r.Resolve(ctx, Hints{CompanyEmail: email, Region: key})
}
