package alerts

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/canchaya/canchaya/pkg/model"
)

// WebhookNotifier posts triggers to an HTTP gateway. PUSH and SMS delivery
// go through one of these each.
type WebhookNotifier struct {
	name   string
	url    string
	secret string
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier identified by name.
// If secret is non-empty, requests are signed with HMAC-SHA256.
func NewWebhookNotifier(name, url, secret string) *WebhookNotifier {
	if name == "" {
		name = "webhook"
	}
	return &WebhookNotifier{
		name:   name,
		url:    url,
		secret: secret,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (w *WebhookNotifier) Name() string { return w.name }

func (w *WebhookNotifier) Send(ctx context.Context, trigger model.AlertTrigger) error {
	def := trigger.Definition
	payload := webhookPayload{
		Event:     "alert_triggered",
		Timestamp: trigger.EvaluatedAt.UTC().Format(time.RFC3339),
		Alert: webhookAlert{
			ID:         def.ID,
			Name:       def.Name,
			MetricID:   def.MetricID,
			Condition:  def.Condition,
			Threshold:  def.Threshold,
			Severity:   def.Severity,
			Value:      trigger.Value,
			Recipients: def.Recipients,
			Title:      trigger.Title(),
			Message:    trigger.Message(),
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "CanchaYA/1.0")

	if w.secret != "" {
		sig := computeHMAC(body, []byte(w.secret))
		req.Header.Set("X-Signature-256", "sha256="+sig)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

type webhookPayload struct {
	Event     string       `json:"event"`
	Timestamp string       `json:"timestamp"`
	Alert     webhookAlert `json:"alert"`
}

type webhookAlert struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	MetricID   string          `json:"metric_id"`
	Condition  model.Condition `json:"condition"`
	Threshold  model.Threshold `json:"threshold"`
	Severity   model.Severity  `json:"severity"`
	Value      float64         `json:"value"`
	Recipients []string        `json:"recipients,omitempty"`
	Title      string          `json:"title"`
	Message    string          `json:"message"`
}

func computeHMAC(message, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}
