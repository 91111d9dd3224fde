package messaging

import (
	"context"

	"github.com/cnec/backend/internal/domain/notification"
	"github.com/cnec/backend/internal/domain/shared"
	"github.com/cnec/backend/internal/infrastructure/config"
)

// IMClient sends template messages through the instant messaging provider
type IMClient struct {
	client     *gatewayClient
	senderKey  string
	senderName string
	enabled    bool
}

// NewIMClient creates an IM client. A disabled provider fails every send
// with ErrChannelDisabled so the SMS fallback takes over.
func NewIMClient(cfg config.ProviderConfig) *IMClient {
	return &IMClient{
		client:     newGatewayClient("im", cfg),
		senderKey:  cfg.SenderID,
		senderName: cfg.SenderName,
		enabled:    cfg.Enabled && cfg.BaseURL != "",
	}
}

type imRequest struct {
	SenderKey    string            `json:"senderKey"`
	Receiver     string            `json:"receiver"`
	ReceiverName string            `json:"receiverName,omitempty"`
	TemplateCode string            `json:"templateCode"`
	Content      string            `json:"content,omitempty"`
	Variables    map[string]string `json:"variables,omitempty"`
}

// SendIM sends one template message
func (c *IMClient) SendIM(ctx context.Context, msg notification.IMMessage) error {
	if !c.enabled {
		return shared.NewExternalServiceError("im", ErrChannelDisabled)
	}
	_, err := c.client.post(ctx, "/im/send", imRequest{
		SenderKey:    c.senderKey,
		Receiver:     msg.To,
		ReceiverName: msg.ReceiverName,
		TemplateCode: msg.TemplateCode,
		Content:      msg.Content,
		Variables:    msg.Variables,
	})
	if err != nil {
		return shared.NewExternalServiceError("im", err)
	}
	return nil
}

var _ notification.IMSender = (*IMClient)(nil)
