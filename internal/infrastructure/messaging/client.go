package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cnec/backend/internal/infrastructure/config"
	"golang.org/x/time/rate"
)

// maxResponseSize limits how much of a provider response is read
const maxResponseSize = 1 << 20

// ErrChannelDisabled is returned by senders whose provider is not configured
var ErrChannelDisabled = errors.New("channel is not configured")

// gatewayResponse is the body every messaging provider endpoint answers with.
// A non-zero Code is a provider-side rejection.
type gatewayResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	ReceiptID string `json:"receiptId,omitempty"`
}

// gatewayClient posts JSON to one provider
type gatewayClient struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func newGatewayClient(name string, cfg config.ProviderConfig) *gatewayClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &gatewayClient{
		name:       name,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// post sends body to path and decodes the provider envelope
func (c *gatewayClient) post(ctx context.Context, path string, body any) (*gatewayResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limit wait: %w", c.name, err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to marshal request: %w", c.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", c.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", c.name, err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s: HTTP %d: %s", c.name, resp.StatusCode, truncate(string(raw), 200))
	}

	var out gatewayResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("%s: failed to parse response: %w", c.name, err)
		}
	}
	if out.Code != 0 {
		return nil, fmt.Errorf("%s: provider error %d: %s", c.name, out.Code, out.Message)
	}
	return &out, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
