package notification

import (
	"context"
	"time"

	"github.com/cnec/backend/internal/domain/notification"
	"github.com/cnec/backend/internal/domain/shared"
	"github.com/cnec/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultKeyTTL is how long a dispatched key is remembered
const DefaultKeyTTL = 7 * 24 * time.Hour

// Dispatcher delivers notification events over IM with one SMS fallback and,
// independently, over email. Events with a key are delivered at most once
// per key while the key is remembered by the idempotency store.
type Dispatcher struct {
	im      notification.IMSender
	sms     notification.SMSSender
	email   notification.EmailSender
	store   shared.IdempotencyStore
	ttl     time.Duration
	metrics *telemetry.DomainMetrics
	logger  *zap.Logger
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithKeyTTL sets how long dispatched keys are remembered
func WithKeyTTL(ttl time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

// WithDispatchMetrics counts channel outcomes
func WithDispatchMetrics(m *telemetry.DomainMetrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// NewDispatcher creates a dispatcher. A nil store disables deduplication.
func NewDispatcher(
	im notification.IMSender,
	sms notification.SMSSender,
	email notification.EmailSender,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...DispatcherOption,
) *Dispatcher {
	d := &Dispatcher{
		im:     im,
		sms:    sms,
		email:  email,
		store:  store,
		ttl:    DefaultKeyTTL,
		logger: logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch delivers e and reports every channel attempt. It never fails:
// provider errors end up in the outcome reasons.
func (d *Dispatcher) Dispatch(ctx context.Context, e notification.Event) notification.Result {
	ctx, span := telemetry.StartServiceSpan(ctx, "notification", "dispatch",
		attribute.String("notification.template", e.TemplateCode))
	defer span.End()

	res := notification.Result{Key: e.IdempotencyKey}
	log := d.logger.With(
		zap.String("idempotency_key", e.IdempotencyKey),
		zap.String("template_code", e.TemplateCode),
	)

	if e.IdempotencyKey != "" && d.store != nil {
		isNew, err := d.store.MarkProcessed(ctx, e.IdempotencyKey, d.ttl)
		switch {
		case err != nil:
			// Sending twice is preferred over not sending.
			log.Warn("idempotency store unavailable, dispatching anyway", zap.Error(err))
		case !isNew:
			res.Duplicate = true
			d.metrics.RecordNotification(ctx, "all", "duplicate")
			log.Debug("duplicate notification skipped")
			return res
		}
	}

	var g errgroup.Group
	if e.WantsIM() {
		g.Go(func() error {
			res.IM, res.SMSFallback = d.sendIM(ctx, e)
			return nil
		})
	}
	if e.WantsEmail() {
		g.Go(func() error {
			res.Email = d.sendEmail(ctx, e)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range []notification.ChannelOutcome{res.IM, res.SMSFallback, res.Email} {
		if !o.Attempted {
			continue
		}
		outcome := "success"
		if !o.Success {
			outcome = "failure"
		}
		d.metrics.RecordNotification(ctx, string(o.Channel), outcome)
	}

	if res.Attempted() && !res.Delivered() && e.IdempotencyKey != "" && d.store != nil {
		if err := d.store.Release(ctx, e.IdempotencyKey); err != nil {
			log.Warn("failed to release idempotency key", zap.Error(err))
		}
	}

	log.Info("notification dispatched",
		zap.Bool("im", res.IM.Success),
		zap.Bool("sms_fallback", res.SMSFallback.Success),
		zap.Bool("email", res.Email.Success),
	)
	return res
}

// sendIM pushes the template message and falls back to SMS exactly once
func (d *Dispatcher) sendIM(ctx context.Context, e notification.Event) (im, sms notification.ChannelOutcome) {
	im = notification.ChannelOutcome{Channel: notification.ChannelIM, Attempted: true}
	err := d.im.SendIM(ctx, notification.IMMessage{
		To:           e.ReceiverContact,
		ReceiverName: e.ReceiverName,
		TemplateCode: e.TemplateCode,
		Variables:    e.Variables,
		Content:      smsText(e),
	})
	if err == nil {
		im.Success = true
		return im, sms
	}
	im.Reason = err.Error()
	d.logger.Warn("im push failed, falling back to sms",
		zap.String("template_code", e.TemplateCode),
		zap.Error(err),
	)

	sms = notification.ChannelOutcome{Channel: notification.ChannelSMS, Attempted: true}
	text := smsText(e)
	if text == "" {
		sms.Reason = "no fallback text"
		return im, sms
	}
	if err := d.sms.SendSMS(ctx, e.ReceiverContact, text); err != nil {
		sms.Reason = err.Error()
		d.logger.Warn("sms fallback failed", zap.String("template_code", e.TemplateCode), zap.Error(err))
		return im, sms
	}
	sms.Success = true
	return im, sms
}

func (d *Dispatcher) sendEmail(ctx context.Context, e notification.Event) notification.ChannelOutcome {
	out := notification.ChannelOutcome{Channel: notification.ChannelEmail, Attempted: true}
	if err := d.email.SendEmail(ctx, e.ReceiverEmail, e.ReceiverName, e.EmailSubject, e.EmailHTML); err != nil {
		out.Reason = err.Error()
		d.logger.Warn("email send failed", zap.Error(err))
		return out
	}
	out.Success = true
	return out
}

// smsText is the explicit fallback text or the rendered template body
func smsText(e notification.Event) string {
	if e.SMSText != "" {
		return e.SMSText
	}
	if t, ok := notification.LookupTemplate(e.TemplateCode); ok {
		return t.Render(e.Variables)
	}
	return ""
}

var _ notification.Dispatcher = (*Dispatcher)(nil)
