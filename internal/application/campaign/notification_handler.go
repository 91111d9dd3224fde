package campaign

import (
	"context"
	"fmt"

	"github.com/cnec/backend/internal/domain/campaign"
	"github.com/cnec/backend/internal/domain/notification"
	"github.com/cnec/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// NotificationHandler notifies the owning company about campaign status
// changes read from a region store's outbox
type NotificationHandler struct {
	notifier *Notifier
	logger   *zap.Logger
}

// NewNotificationHandler creates the campaign notification handler
func NewNotificationHandler(notifier *Notifier, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notifier: notifier, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *NotificationHandler) EventTypes() []string {
	return []string{
		campaign.EventTypeCampaignSubmitted,
		campaign.EventTypeCampaignPaymentConfirmed,
		campaign.EventTypeCampaignActivated,
	}
}

// Handle sends the template for the event. An owner that cannot be found
// is logged and dropped. Store errors and undelivered notifications are
// returned so the entry is retried.
func (h *NotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	var (
		res notification.Result
		err error
	)
	switch e := event.(type) {
	case *campaign.CampaignActivatedEvent:
		res, err = h.notifier.NotifyActivated(ctx, e, e.IdempotencyKey())
	case *campaign.CampaignSubmittedEvent:
		res, err = h.notifier.NotifySubmitted(ctx, e.Snapshot, e.Region(), e.IdempotencyKey())
	case *campaign.CampaignPaymentConfirmedEvent:
		res, err = h.notifier.NotifySubmitted(ctx, e.Snapshot, e.Region(), e.IdempotencyKey())
	default:
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}

	if err != nil {
		switch shared.CodeOf(err) {
		case shared.CodeNotFound, shared.CodeValidation:
			h.logger.Warn("campaign owner not resolvable, notification dropped",
				zap.String("campaign_id", event.AggregateID().String()),
				zap.String("event_type", event.EventType()),
				zap.Error(err),
			)
			return nil
		}
		return err
	}
	return res.Err()
}

var _ shared.EventHandler = (*NotificationHandler)(nil)
