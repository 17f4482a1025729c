package paging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Channel is one paging delivery mechanism. Channels are independent: the
// dispatcher fans out to all of them and reports per-channel outcomes.
type Channel interface {
	// Name identifies the channel in results and audit logs
	Name() string

	// Send delivers the page. The dispatcher bounds ctx with the
	// configured per-channel timeout.
	Send(ctx context.Context, req Request) error
}

// PageCreator creates a paging incident upstream. *victorops.Client
// satisfies it.
type PageCreator interface {
	CreatePage(ctx context.Context, summary, description string) error
}

// VictorOpsChannel pages through the VictorOps REST integration endpoint,
// which fans out to phone/SMS/push per the upstream escalation policy.
type VictorOpsChannel struct {
	creator PageCreator
}

// NewVictorOpsChannel creates the VictorOps paging channel.
func NewVictorOpsChannel(creator PageCreator) *VictorOpsChannel {
	return &VictorOpsChannel{creator: creator}
}

// Name implements Channel.
func (c *VictorOpsChannel) Name() string {
	return "victorops"
}

// Send implements Channel.
func (c *VictorOpsChannel) Send(ctx context.Context, req Request) error {
	return c.creator.CreatePage(ctx, req.Headline(), req.Description)
}

// webhookPayload is the body posted to chat webhooks.
type webhookPayload struct {
	Text        string `json:"text"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Requester   string `json:"requester"`
	RequestID   string `json:"request_id"`
}

// WebhookChannel pages by posting JSON to a chat webhook URL.
type WebhookChannel struct {
	name       string
	url        string
	httpClient *http.Client
}

// NewWebhookChannel creates a webhook paging channel. The name appears in
// per-channel results (e.g. "chat").
func NewWebhookChannel(name, url string, timeout time.Duration) *WebhookChannel {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookChannel{
		name:       name,
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name implements Channel.
func (c *WebhookChannel) Name() string {
	return c.name
}

// Send implements Channel.
func (c *WebhookChannel) Send(ctx context.Context, req Request) error {
	payload := webhookPayload{
		Text:        req.Headline(),
		Summary:     req.Summary,
		Description: req.Description,
		Requester:   req.Requester.String(),
		RequestID:   req.ID,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
