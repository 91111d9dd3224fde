package points

import (
	"context"
	"fmt"

	"github.com/cnec/backend/internal/domain/company"
	"github.com/cnec/backend/internal/domain/notification"
	"github.com/cnec/backend/internal/domain/points"
	"github.com/cnec/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CompanyFinder looks up the central company row that owns a balance
type CompanyFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*company.Company, error)
}

// NotificationHandler tells a company about its charge requests. It is fed
// by the central store's outbox processor.
type NotificationHandler struct {
	companies  CompanyFinder
	dispatcher notification.Dispatcher
	logger     *zap.Logger
}

// NewNotificationHandler creates the ledger notification handler
func NewNotificationHandler(companies CompanyFinder, dispatcher notification.Dispatcher, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{companies: companies, dispatcher: dispatcher, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *NotificationHandler) EventTypes() []string {
	return []string{points.EventTypeChargeRequested, points.EventTypePointsCharged}
}

// Handle dispatches the template for the event. A missing company is
// logged and dropped; store errors are returned so the entry is retried.
func (h *NotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	var (
		companyID uuid.UUID
		code      string
		vars      map[string]string
	)
	switch e := event.(type) {
	case *points.ChargeRequestedEvent:
		companyID, code = e.CompanyID, notification.TemplateChargeRequested
		vars = map[string]string{notification.VarAmount: notification.FormatAmount(e.Amount)}
	case *points.PointsChargedEvent:
		companyID, code = e.CompanyID, notification.TemplatePointsCharged
		vars = map[string]string{notification.VarPoints: notification.FormatAmount(e.Amount)}
	default:
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}

	c, err := h.companies.FindByID(ctx, companyID)
	if err != nil {
		if shared.CodeOf(err) == shared.CodeNotFound {
			h.logger.Warn("company of charge event not found, notification dropped",
				zap.String("company_id", companyID.String()),
				zap.String("event_type", event.EventType()),
			)
			return nil
		}
		return err
	}
	vars[notification.VarCompanyName] = c.DisplayName

	key := ""
	if keyed, ok := event.(shared.KeyedEvent); ok {
		key = keyed.IdempotencyKey()
	}
	res := h.dispatcher.Dispatch(ctx, notification.NewTemplateEvent(code, c.Phone, c.Email, c.DisplayName, vars, key))
	h.logger.Info("charge notification handled",
		zap.String("company_id", companyID.String()),
		zap.String("template_code", code),
		zap.Bool("delivered", res.Delivered()),
		zap.Bool("duplicate", res.Duplicate),
	)
	return res.Err()
}

var _ shared.EventHandler = (*NotificationHandler)(nil)
