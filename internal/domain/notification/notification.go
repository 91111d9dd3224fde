package notification

import (
	"context"
	"errors"
	"strings"

	"github.com/cnec/backend/internal/domain/shared"
)

// Channel identifies a delivery path
type Channel string

const (
	ChannelIM    Channel = "im"
	ChannelSMS   Channel = "sms"
	ChannelLMS   Channel = "lms"
	ChannelEmail Channel = "email"
)

// Event is one logical notification. It is never persisted.
type Event struct {
	ReceiverContact string
	ReceiverEmail   string
	ReceiverName    string
	TemplateCode    string
	Variables       map[string]string
	// SMSText overrides the text sent when the IM push fails. When empty the
	// template body is rendered from Variables.
	SMSText      string
	EmailSubject string
	EmailHTML    string
	// IdempotencyKey is entityId:eventType:version. An empty key disables
	// deduplication.
	IdempotencyKey string
}

// WantsIM reports whether the IM push (and its SMS fallback) applies
func (e Event) WantsIM() bool {
	return e.ReceiverContact != "" && e.TemplateCode != ""
}

// WantsEmail reports whether the email channel applies
func (e Event) WantsEmail() bool {
	return e.ReceiverEmail != "" && e.EmailSubject != "" && e.EmailHTML != ""
}

// ChannelOutcome is the result of one channel attempt
type ChannelOutcome struct {
	Channel   Channel `json:"channel,omitempty"`
	Attempted bool    `json:"attempted"`
	Success   bool    `json:"success"`
	Reason    string  `json:"reason,omitempty"`
}

// Failed reports whether the channel was tried and did not deliver
func (o ChannelOutcome) Failed() bool {
	return o.Attempted && !o.Success
}

// Result collects per-channel outcomes of one dispatch
type Result struct {
	Key         string         `json:"key,omitempty"`
	Duplicate   bool           `json:"duplicate"`
	IM          ChannelOutcome `json:"im"`
	SMSFallback ChannelOutcome `json:"sms_fallback"`
	Email       ChannelOutcome `json:"email"`
}

// Delivered reports whether at least one channel succeeded
func (r Result) Delivered() bool {
	return r.IM.Success || r.SMSFallback.Success || r.Email.Success
}

// Attempted reports whether any channel was tried
func (r Result) Attempted() bool {
	return r.IM.Attempted || r.SMSFallback.Attempted || r.Email.Attempted
}

// Err returns an EXTERNAL_SERVICE_ERROR when channels were tried and none
// delivered. Outbox handlers return it so the entry is redelivered.
func (r Result) Err() error {
	if !r.Attempted() || r.Delivered() {
		return nil
	}
	var reasons []string
	for _, o := range []ChannelOutcome{r.IM, r.SMSFallback, r.Email} {
		if o.Failed() {
			reasons = append(reasons, string(o.Channel)+": "+o.Reason)
		}
	}
	return shared.NewExternalServiceError("notification", errors.New(strings.Join(reasons, "; ")))
}

// IMMessage is a template-based instant message
type IMMessage struct {
	To           string
	ReceiverName string
	TemplateCode string
	Variables    map[string]string
	Content      string
}

// IMSender sends template messages through the IM provider
type IMSender interface {
	SendIM(ctx context.Context, msg IMMessage) error
}

// SMSSender sends plain text messages
type SMSSender interface {
	SendSMS(ctx context.Context, to, text string) error
}

// EmailSender sends HTML email
type EmailSender interface {
	SendEmail(ctx context.Context, to, name, subject, html string) error
}

// Dispatcher delivers a notification event. Dispatch never returns an
// error; failures are reported in the Result.
type Dispatcher interface {
	Dispatch(ctx context.Context, e Event) Result
}
