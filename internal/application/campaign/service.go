package campaign

import (
	"context"
	"errors"
	"strings"

	"github.com/cnec/backend/internal/application/batch"
	appcompany "github.com/cnec/backend/internal/application/company"
	"github.com/cnec/backend/internal/domain/campaign"
	"github.com/cnec/backend/internal/domain/region"
	"github.com/cnec/backend/internal/domain/shared"
	"github.com/cnec/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Stores gives access to the campaign data of every region
type Stores interface {
	Campaigns(key region.Key) (campaign.Repository, error)
	Participants(key region.Key) (campaign.ParticipantRepository, error)
	Regions() []region.Key
}

// Transferrer moves a campaign to another owner
type Transferrer interface {
	Transfer(ctx context.Context, campaignID uuid.UUID, key region.Key, newEmail string) (*appcompany.TransferResult, error)
}

// Service runs campaign status changes. Every change is saved with its
// outbox entry in one transaction; notifications follow from the outbox.
type Service struct {
	stores      Stores
	transferrer Transferrer
	notifier    *Notifier
	executor    *batch.Executor[*campaign.Campaign]
	metrics     *telemetry.DomainMetrics
	logger      *zap.Logger
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithServiceMetrics records transitions in m
func WithServiceMetrics(m *telemetry.DomainMetrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates the campaign service
func NewService(
	stores Stores,
	transferrer Transferrer,
	notifier *Notifier,
	executor *batch.Executor[*campaign.Campaign],
	logger *zap.Logger,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		stores:      stores,
		transferrer: transferrer,
		notifier:    notifier,
		executor:    executor,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// transition loads a campaign, applies change and saves it. It returns
// campaign.ErrAlreadyInState untouched so callers can tell a skip apart.
func (s *Service) transition(ctx context.Context, op string, key region.Key, id uuid.UUID, change func(*campaign.Campaign) error) (c *campaign.Campaign, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "campaign", op,
		telemetry.AttrRegion.String(key.String()),
		attribute.String("campaign_id", id.String()),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	repo, err := s.stores.Campaigns(key)
	if err != nil {
		return nil, err
	}
	c, err = repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := c.Status
	if err = change(c); err != nil {
		return c, err
	}
	if err = repo.Save(ctx, c); err != nil {
		return nil, err
	}
	s.metrics.RecordCampaignTransition(ctx, key.String(), c.Status.String())
	s.logger.Info("campaign status changed",
		zap.String("operation", op),
		zap.String("campaign_id", id.String()),
		zap.String("region", key.String()),
		zap.String("from", from.String()),
		zap.String("to", c.Status.String()),
		zap.Int("version", c.Version),
	)
	return c, nil
}

// single wraps transition for one-off API calls, where reaching the target
// status again is reported as unchanged rather than as an error.
func (s *Service) single(ctx context.Context, op, regionName string, id uuid.UUID, change func(*campaign.Campaign) error) (*TransitionResult, error) {
	key, err := parseRegion(regionName)
	if err != nil {
		return nil, err
	}
	c, err := s.transition(ctx, op, key, id, change)
	if errors.Is(err, campaign.ErrAlreadyInState) {
		s.logger.Info("campaign already in requested status",
			zap.String("operation", op),
			zap.String("campaign_id", id.String()),
			zap.String("status", c.Status.String()),
		)
		return &TransitionResult{Campaign: ToCampaignResponse(c), Changed: false}, nil
	}
	if err != nil {
		return nil, err
	}
	return &TransitionResult{Campaign: ToCampaignResponse(c), Changed: true}, nil
}

// Submit sends a draft for payment. Only the owning company may submit.
func (s *Service) Submit(ctx context.Context, campaignID, companyID uuid.UUID, regionName string) (*TransitionResult, error) {
	return s.single(ctx, "submit", regionName, campaignID, func(c *campaign.Campaign) error {
		if !c.IsOwnedBy(companyID) {
			return shared.NewDomainError(shared.CodeForbidden, "campaign belongs to another company")
		}
		return c.Submit()
	})
}

// ConfirmPayment records the campaign fee and moves the campaign into review
func (s *Service) ConfirmPayment(ctx context.Context, campaignID uuid.UUID, regionName, adminNote string) (*TransitionResult, error) {
	return s.single(ctx, "confirm_payment", regionName, campaignID, func(c *campaign.Campaign) error {
		return c.ConfirmPayment(adminNote)
	})
}

// Approve activates a campaign. The activation notice is sent by the outbox
// handler, once per activation.
func (s *Service) Approve(ctx context.Context, campaignID uuid.UUID, regionName, adminNote string) (*TransitionResult, error) {
	return s.single(ctx, "approve", regionName, campaignID, func(c *campaign.Campaign) error {
		return c.Approve(adminNote)
	})
}

// Complete closes an active campaign
func (s *Service) Complete(ctx context.Context, campaignID uuid.UUID, regionName, adminNote string) (*TransitionResult, error) {
	return s.single(ctx, "complete", regionName, campaignID, func(c *campaign.Campaign) error {
		return c.Complete(adminNote)
	})
}

// Cancel cancels a campaign that has not finished
func (s *Service) Cancel(ctx context.Context, campaignID uuid.UUID, regionName, reason string) (*TransitionResult, error) {
	return s.single(ctx, "cancel", regionName, campaignID, func(c *campaign.Campaign) error {
		return c.Cancel(reason)
	})
}

// Override sets any status. note is required.
func (s *Service) Override(ctx context.Context, campaignID uuid.UUID, regionName, status, note string) (*TransitionResult, error) {
	target, err := campaign.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	return s.single(ctx, "override_status", regionName, campaignID, func(c *campaign.Campaign) error {
		return c.Override(target, note)
	})
}

// Transfer moves a campaign to the company registered under newEmail.
// Only the owner pointer changes; participants and the points ledger keep
// their history.
func (s *Service) Transfer(ctx context.Context, campaignID uuid.UUID, regionName, newEmail string) (*TransferResult, error) {
	key, err := parseRegion(regionName)
	if err != nil {
		return nil, err
	}
	res, err := s.transferrer.Transfer(ctx, campaignID, key, newEmail)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordCampaignTransition(ctx, key.String(), "transferred")
	return &TransferResult{
		Campaign:        ToCampaignResponse(res.Campaign),
		CompanyResolved: res.Company != nil,
		Strategy:        string(res.Strategy),
	}, nil
}

// SendActivationNotification sends the activation notice of an active
// campaign again. Without force it shares the key of the original notice
// and is dropped if that was already delivered.
func (s *Service) SendActivationNotification(ctx context.Context, campaignID uuid.UUID, regionName string, force bool) (*NotificationResult, error) {
	key, err := parseRegion(regionName)
	if err != nil {
		return nil, err
	}
	repo, err := s.stores.Campaigns(key)
	if err != nil {
		return nil, err
	}
	c, err := repo.FindByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	ev, err := c.ActivationEvent()
	if err != nil {
		return nil, err
	}
	idempotencyKey := ev.IdempotencyKey()
	if force {
		idempotencyKey = ""
	}
	res, err := s.notifier.NotifyActivated(ctx, ev, idempotencyKey)
	if err != nil {
		return nil, err
	}
	return &NotificationResult{CampaignID: c.ID, Result: res}, nil
}

// BulkApprove approves each campaign in order and then notifies the ones
// that were activated by this run. Campaigns already active are skipped.
func (s *Service) BulkApprove(ctx context.Context, regionName string, ids []string, adminNote string) (batch.Result, error) {
	key, err := parseRegion(regionName)
	if err != nil {
		return batch.Result{}, err
	}
	if len(ids) == 0 {
		return batch.Result{}, shared.NewValidationError("campaignIds must not be empty")
	}

	runner := batch.NewRunner("bulk_approve", s.executor, s.logger,
		batch.WithSkip[*campaign.Campaign](batch.IsSkip(campaign.ErrAlreadyInState)),
		batch.WithMetrics[*campaign.Campaign](s.metrics),
	)
	approve := func(ctx context.Context, id string) (*campaign.Campaign, error) {
		campaignID, err := uuid.Parse(strings.TrimSpace(id))
		if err != nil {
			return nil, shared.NewValidationError("invalid campaign id: " + id)
		}
		return s.transition(ctx, "approve", key, campaignID, func(c *campaign.Campaign) error {
			return c.Approve(adminNote)
		})
	}
	notify := func(ctx context.Context, c *campaign.Campaign) error {
		ev, err := c.ActivationEvent()
		if err != nil {
			return err
		}
		_, err = s.notifier.NotifyActivated(ctx, ev, ev.IdempotencyKey())
		return err
	}
	return runner.Run(ctx, ids, approve, notify), nil
}

// ListByOwner lists the campaigns of one region owned by email, newest
// first. Owner pointers are stored folded, so the lookup ignores case and
// full-width input.
func (s *Service) ListByOwner(ctx context.Context, regionName, email string) ([]CampaignResponse, error) {
	key, err := parseRegion(regionName)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(email) == "" {
		return nil, shared.NewValidationError("companyEmail is required")
	}
	repo, err := s.stores.Campaigns(key)
	if err != nil {
		return nil, err
	}
	found, err := repo.FindByCompanyEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	out := make([]CampaignResponse, len(found))
	for i, c := range found {
		out[i] = ToCampaignResponse(c)
	}
	return out, nil
}

// Regions lists the regions with a configured store
func (s *Service) Regions() []region.Key {
	return s.stores.Regions()
}

func parseRegion(name string) (region.Key, error) {
	key, err := region.Parse(name)
	if err != nil {
		return "", err
	}
	if key.IsCentral() {
		return "", shared.NewValidationError("campaigns are stored in a region, not centrally")
	}
	return key, nil
}
