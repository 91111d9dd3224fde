package campaign

import (
	"context"
	"strconv"
	"time"

	appcompany "github.com/cnec/backend/internal/application/company"
	"github.com/cnec/backend/internal/domain/campaign"
	"github.com/cnec/backend/internal/domain/company"
	"github.com/cnec/backend/internal/domain/notification"
	"github.com/cnec/backend/internal/domain/region"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CompanyResolver locates the company that owns a campaign
type CompanyResolver interface {
	Resolve(ctx context.Context, h appcompany.Hints) (*appcompany.Resolution, error)
}

// Notifier turns campaign events into company notifications
type Notifier struct {
	resolver   CompanyResolver
	dispatcher notification.Dispatcher
	location   *time.Location
	logger     *zap.Logger
}

// NewNotifier creates a notifier. Dates in messages are rendered in loc.
func NewNotifier(resolver CompanyResolver, dispatcher notification.Dispatcher, loc *time.Location, logger *zap.Logger) *Notifier {
	if loc == nil {
		loc = time.UTC
	}
	return &Notifier{resolver: resolver, dispatcher: dispatcher, location: loc, logger: logger}
}

// Owner resolves the company a campaign points to, looking in the
// campaign's region first
func (n *Notifier) Owner(ctx context.Context, companyID *uuid.UUID, email string, key region.Key) (*company.Company, error) {
	res, err := n.resolver.Resolve(ctx, appcompany.Hints{
		CompanyID:    companyID,
		CompanyEmail: email,
		Region:       key,
	})
	if err != nil {
		return nil, err
	}
	n.logger.Debug("campaign owner resolved",
		zap.String("company_id", res.Company.ID.String()),
		zap.String("strategy", string(res.Strategy)),
	)
	return res.Company, nil
}

func (n *Notifier) owner(ctx context.Context, s campaign.Snapshot, regionName string) (*company.Company, error) {
	key, err := region.Parse(regionName)
	if err != nil {
		return nil, err
	}
	return n.Owner(ctx, s.CompanyID, s.CompanyEmail, key)
}

// NotifyActivated sends the activation template. key overrides the event's
// idempotency key; pass the event key for deduplicated delivery or an empty
// key to force a resend.
func (n *Notifier) NotifyActivated(ctx context.Context, e *campaign.CampaignActivatedEvent, key string) (notification.Result, error) {
	c, err := n.owner(ctx, e.Snapshot, e.Region())
	if err != nil {
		return notification.Result{}, err
	}
	started := e.OccurredAt()
	if e.ApprovedAt != nil {
		started = *e.ApprovedAt
	}
	vars := map[string]string{
		notification.VarCompanyName:  c.DisplayName,
		notification.VarCampaignName: e.Title,
		notification.VarStartDate:    notification.FormatDate(&started, n.location),
		notification.VarDeadline:     notification.FormatDate(e.RecruitmentDeadline, n.location),
		notification.VarSlots:        strconv.Itoa(e.TotalSlots),
	}
	return n.dispatch(ctx, notification.TemplateCampaignActivated, c, vars, key), nil
}

// NotifySubmitted tells the company its campaign entered review. It is sent
// on submission and again when the payment is confirmed.
func (n *Notifier) NotifySubmitted(ctx context.Context, s campaign.Snapshot, regionName, key string) (notification.Result, error) {
	c, err := n.owner(ctx, s, regionName)
	if err != nil {
		return notification.Result{}, err
	}
	vars := map[string]string{
		notification.VarCompanyName:  c.DisplayName,
		notification.VarCampaignName: s.Title,
	}
	return n.dispatch(ctx, notification.TemplateCampaignSubmitted, c, vars, key), nil
}

// NotifyRecruitmentClosed sends the deadline reminder with the applicant count
func (n *Notifier) NotifyRecruitmentClosed(ctx context.Context, c *company.Company, title string, applicants int64, key string) notification.Result {
	vars := map[string]string{
		notification.VarCompanyName:    c.DisplayName,
		notification.VarCampaignName:   title,
		notification.VarApplicantCount: strconv.FormatInt(applicants, 10),
	}
	return n.dispatch(ctx, notification.TemplateRecruitmentClosed, c, vars, key)
}

func (n *Notifier) dispatch(ctx context.Context, code string, c *company.Company, vars map[string]string, key string) notification.Result {
	res := n.dispatcher.Dispatch(ctx, notification.NewTemplateEvent(code, c.Phone, c.Email, c.DisplayName, vars, key))
	n.logger.Info("campaign notification dispatched",
		zap.String("template_code", code),
		zap.String("company_id", c.ID.String()),
		zap.String("key", key),
		zap.Bool("delivered", res.Delivered()),
		zap.Bool("duplicate", res.Duplicate),
	)
	return res
}
