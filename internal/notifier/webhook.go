package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// WebhookConfig holds webhook notifier configuration.
type WebhookConfig struct {
	URL string // Webhook endpoint URL
	// AuthHeader is sent as the Authorization header when non-empty,
	// e.g. "Bearer <token>".
	AuthHeader string
}

// Validate validates the webhook configuration.
func (c *WebhookConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("webhook URL is required")
	}
	if !strings.HasPrefix(c.URL, "https://") && !strings.HasPrefix(c.URL, "http://") {
		return fmt.Errorf("webhook URL must be http or https")
	}
	return nil
}

// WebhookNotifier posts alert notifications as JSON to an HTTP endpoint.
type WebhookNotifier struct {
	config     WebhookConfig
	httpClient *http.Client
}

// NewWebhookNotifier creates a new webhook notifier.
func NewWebhookNotifier(config WebhookConfig) (*WebhookNotifier, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid webhook config: %w", err)
	}

	return &WebhookNotifier{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Name returns "webhook".
func (w *WebhookNotifier) Name() string {
	return "webhook"
}

// webhookPayload is the JSON body posted to the endpoint.
type webhookPayload struct {
	Event            string `json:"event"`
	TriggerID        string `json:"trigger_id"`
	AlertID          string `json:"alert_id"`
	Symbol           string `json:"symbol"`
	Kind             string `json:"kind"`
	Direction        string `json:"direction"`
	TargetPrice      string `json:"target_price"`
	ObservedPrice    string `json:"observed_price"`
	SustainedSeconds int64  `json:"sustained_seconds,omitempty"`
	FiredAt          string `json:"fired_at"`
	Summary          string `json:"summary"`
}

// Send posts the notification to the configured endpoint. Any 2xx
// response counts as delivered.
func (w *WebhookNotifier) Send(ctx context.Context, n *Notification) error {
	payload := webhookPayload{
		Event:            "alert.fired",
		TriggerID:        n.TriggerID,
		AlertID:          n.AlertID,
		Symbol:           n.Symbol,
		Kind:             string(n.Kind),
		Direction:        string(n.Direction),
		TargetPrice:      n.TargetPrice.String(),
		ObservedPrice:    n.ObservedPrice.String(),
		SustainedSeconds: n.SustainedSeconds,
		FiredAt:          n.FiredAt.UTC().Format(time.RFC3339),
		Summary:          n.Subject(),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.config.AuthHeader != "" {
		req.Header.Set("Authorization", w.config.AuthHeader)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return nil
}

// Close is a no-op for webhook notifier.
func (w *WebhookNotifier) Close() error {
	return nil
}
