package company

import (
	"context"
	"errors"
	"fmt"

	"github.com/cnec/backend/internal/domain/campaign"
	"github.com/cnec/backend/internal/domain/company"
	"github.com/cnec/backend/internal/domain/region"
	"github.com/cnec/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Strategy tags one way of locating a company
type Strategy string

const (
	ByIDRegional    Strategy = "by_id_regional"
	ByIDCentral     Strategy = "by_id_central"
	ByEmailRegional Strategy = "by_email_regional"
	ByEmailCentral  Strategy = "by_email_central"
)

// DefaultStrategies is the lookup order: id before email, the campaign's own
// region before the central store.
var DefaultStrategies = []Strategy{ByIDRegional, ByIDCentral, ByEmailRegional, ByEmailCentral}

// Stores gives access to the repositories of every store
type Stores interface {
	Companies(key region.Key) (company.Repository, error)
	Campaigns(key region.Key) (campaign.Repository, error)
}

// Hints are what a caller knows about a company. Either CompanyID or
// CompanyEmail must be set.
type Hints struct {
	CompanyID    *uuid.UUID
	CompanyEmail string
	Region       region.Key
}

// Resolution is the company found and the strategy that found it
type Resolution struct {
	Company  *company.Company
	Strategy Strategy
}

// EntityResolver finds a company across the regional and central stores
type EntityResolver struct {
	stores     Stores
	strategies []Strategy
	logger     *zap.Logger
}

// NewEntityResolver creates a resolver with the default strategy order
func NewEntityResolver(stores Stores, logger *zap.Logger) *EntityResolver {
	return &EntityResolver{
		stores:     stores,
		strategies: DefaultStrategies,
		logger:     logger,
	}
}

// Resolve evaluates the strategies in order and returns the first hit. A
// strategy whose hint is absent is skipped. A store error other than
// not-found stops resolution.
func (r *EntityResolver) Resolve(ctx context.Context, h Hints) (*Resolution, error) {
	email := ""
	if h.CompanyEmail != "" {
		normalized, err := company.NormalizeEmail(h.CompanyEmail)
		if err != nil {
			return nil, err
		}
		email = normalized
	}
	hasID := h.CompanyID != nil && *h.CompanyID != uuid.Nil
	if !hasID && email == "" {
		return nil, shared.NewNotFoundError("company not found: no id or email given")
	}

	for _, s := range r.strategies {
		c, err := r.try(ctx, s, h, hasID, email)
		if errors.Is(err, errSkipped) || errors.Is(err, shared.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolve company (%s): %w", s, err)
		}
		r.logger.Debug("company resolved",
			zap.String("strategy", string(s)),
			zap.String("company_id", c.ID.String()),
			zap.String("store", c.Region),
		)
		return &Resolution{Company: c, Strategy: s}, nil
	}
	return nil, shared.NewNotFoundError("company not found")
}

var errSkipped = errors.New("strategy skipped")

func (r *EntityResolver) try(ctx context.Context, s Strategy, h Hints, hasID bool, email string) (*company.Company, error) {
	var store region.Key
	switch s {
	case ByIDRegional, ByEmailRegional:
		if h.Region == "" || h.Region.IsCentral() {
			return nil, errSkipped
		}
		store = h.Region
	default:
		store = region.Central
	}

	byID := s == ByIDRegional || s == ByIDCentral
	if (byID && !hasID) || (!byID && email == "") {
		return nil, errSkipped
	}

	repo, err := r.stores.Companies(store)
	if err != nil {
		return nil, err
	}
	if byID {
		return repo.FindByID(ctx, *h.CompanyID)
	}
	return repo.FindByEmail(ctx, email)
}

func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}
