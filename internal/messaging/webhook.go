package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/manaaki-care/manaaki/internal/models"
)

// DefaultWebhookTimeout bounds one gateway POST.
const DefaultWebhookTimeout = 10 * time.Second

// WebhookSender posts payloads to an external gateway that owns the actual
// push or email delivery. The engine never talks to APNs/FCM or SMTP itself.
type WebhookSender struct {
	channel models.Channel
	url     string
	client  *http.Client
}

// NewWebhookSender creates a sender that POSTs payloads for the given
// channel to url.
func NewWebhookSender(channel models.Channel, url string) *WebhookSender {
	return &WebhookSender{
		channel: channel,
		url:     url,
		client:  &http.Client{Timeout: DefaultWebhookTimeout},
	}
}

type webhookBody struct {
	Channel string            `json:"channel"`
	To      string            `json:"to"`
	Title   string            `json:"title,omitempty"`
	Body    string            `json:"body"`
	Data    map[string]string `json:"data,omitempty"`
	Sound   bool              `json:"sound"`
}

// Send posts the payload to the gateway. Any non-2xx response is a failure.
func (s *WebhookSender) Send(ctx context.Context, p Payload) error {
	if p.To == "" {
		return fmt.Errorf("recipient cannot be empty")
	}
	buf, err := json.Marshal(webhookBody{
		Channel: string(s.channel),
		To:      p.To,
		Title:   p.Title,
		Body:    p.Body,
		Data:    p.Data,
		Sound:   p.Sound,
	})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Error("WebhookSender Send failed", "error", err, "channel", s.channel, "to", p.To)
		return fmt.Errorf("webhook send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Error("WebhookSender gateway rejected payload", "status", resp.StatusCode, "channel", s.channel, "to", p.To)
		return fmt.Errorf("webhook gateway returned status %d", resp.StatusCode)
	}
	slog.Debug("WebhookSender Send succeeded", "channel", s.channel, "to", p.To)
	return nil
}
