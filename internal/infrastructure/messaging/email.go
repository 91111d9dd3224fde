package messaging

import (
	"context"

	"github.com/cnec/backend/internal/domain/notification"
	"github.com/cnec/backend/internal/domain/shared"
	"github.com/cnec/backend/internal/infrastructure/config"
)

// EmailClient sends HTML mail through the transactional email provider
type EmailClient struct {
	client   *gatewayClient
	from     string
	fromName string
	enabled  bool
}

// NewEmailClient creates an email client. SenderID is the from address.
func NewEmailClient(cfg config.ProviderConfig) *EmailClient {
	return &EmailClient{
		client:   newGatewayClient("email", cfg),
		from:     cfg.SenderID,
		fromName: cfg.SenderName,
		enabled:  cfg.Enabled && cfg.BaseURL != "",
	}
}

type emailRequest struct {
	From     string `json:"from"`
	FromName string `json:"fromName,omitempty"`
	To       string `json:"to"`
	ToName   string `json:"toName,omitempty"`
	Subject  string `json:"subject"`
	HTML     string `json:"html"`
}

// SendEmail sends one message
func (c *EmailClient) SendEmail(ctx context.Context, to, name, subject, html string) error {
	if !c.enabled {
		return shared.NewExternalServiceError("email", ErrChannelDisabled)
	}
	_, err := c.client.post(ctx, "/email/send", emailRequest{
		From:     c.from,
		FromName: c.fromName,
		To:       to,
		ToName:   name,
		Subject:  subject,
		HTML:     html,
	})
	if err != nil {
		return shared.NewExternalServiceError("email", err)
	}
	return nil
}

var _ notification.EmailSender = (*EmailClient)(nil)
