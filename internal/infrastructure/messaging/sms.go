package messaging

import (
	"context"
	"strings"

	"github.com/cnec/backend/internal/domain/notification"
	"github.com/cnec/backend/internal/domain/shared"
	"github.com/cnec/backend/internal/infrastructure/config"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/korean"
)

// SMSMaxBytes is the longest body, in EUC-KR bytes, sent as a short message.
// Longer bodies go out as LMS.
const SMSMaxBytes = 90

// lmsSubject is the title shown for long messages
const lmsSubject = "[CNEC] 알림"

// SMSClient sends text messages, choosing SMS or LMS by encoded length
type SMSClient struct {
	client  *gatewayClient
	sender  string
	enabled bool
}

// NewSMSClient creates an SMS client. SenderID is the registered caller number.
func NewSMSClient(cfg config.ProviderConfig) *SMSClient {
	return &SMSClient{
		client:  newGatewayClient("sms", cfg),
		sender:  cfg.SenderID,
		enabled: cfg.Enabled && cfg.BaseURL != "",
	}
}

type smsRequest struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Subject  string `json:"subject,omitempty"`
	Message  string `json:"message"`
}

// SendSMS sends text to one receiver
func (c *SMSClient) SendSMS(ctx context.Context, to, text string) error {
	if !c.enabled {
		return shared.NewExternalServiceError("sms", ErrChannelDisabled)
	}
	if strings.TrimSpace(text) == "" {
		return shared.NewValidationError("sms text is empty")
	}

	req := smsRequest{Sender: c.sender, Receiver: to, Message: text}
	path := "/message/sms"
	if MessageType(text) == notification.ChannelLMS {
		path = "/message/lms"
		req.Subject = lmsSubject
	}
	if _, err := c.client.post(ctx, path, req); err != nil {
		return shared.NewExternalServiceError("sms", err)
	}
	return nil
}

// EncodedLength returns the byte length of text in EUC-KR. Characters
// outside the charset count as one replacement byte.
func EncodedLength(text string) int {
	enc := encoding.ReplaceUnsupported(korean.EUCKR.NewEncoder())
	out, err := enc.String(text)
	if err != nil {
		return len(text)
	}
	return len(out)
}

// MessageType returns ChannelSMS for short bodies and ChannelLMS otherwise
func MessageType(text string) notification.Channel {
	if EncodedLength(text) > SMSMaxBytes {
		return notification.ChannelLMS
	}
	return notification.ChannelSMS
}

var _ notification.SMSSender = (*SMSClient)(nil)
