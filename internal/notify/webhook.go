package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ecohood/points-ledger/internal/config"
	"github.com/ecohood/points-ledger/pkg/logger"
)

// Webhook posts notifications to a Mattermost/Slack compatible incoming webhook, which
// the collection crew uses as its operations feed.
type Webhook struct {
	url      string
	channel  string
	username string
	enabled  bool
	client   *http.Client
	log      *logger.Logger
}

// NewWebhook creates a webhook dispatcher.
func NewWebhook(cfg *config.WebhookConfig, log *logger.Logger) *Webhook {
	return &Webhook{
		url:      cfg.URL,
		channel:  cfg.Channel,
		username: cfg.Username,
		enabled:  cfg.Enabled,
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      log.Component("webhook"),
	}
}

// Message represents a webhook message payload.
type Message struct {
	Channel  string `json:"channel,omitempty"`
	Username string `json:"username,omitempty"`
	Text     string `json:"text"`
}

// Notify implements Dispatcher.
func (w *Webhook) Notify(ctx context.Context, userID uint, title, content string) error {
	return w.SendMessage(ctx, &Message{
		Text: fmt.Sprintf("**%s** (user #%d)\n%s", title, userID, content),
	})
}

// SendMessage posts a message to the webhook.
func (w *Webhook) SendMessage(ctx context.Context, msg *Message) error {
	if !w.enabled {
		w.log.Debug().Msg("Webhook is disabled, skipping message")
		return nil
	}

	if msg.Channel == "" {
		msg.Channel = w.channel
	}
	if msg.Username == "" {
		msg.Username = w.username
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	w.log.Debug().
		Str("channel", msg.Channel).
		Msg("Sent webhook message")

	return nil
}
