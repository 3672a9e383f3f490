package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/canchaya/canchaya/pkg/model"
)

// SlackNotifier posts to a Slack incoming webhook. It carries HIGH/CRITICAL
// escalations and error-notification forwarding.
type SlackNotifier struct {
	webhookURL string
	channel    string
	client     *http.Client
}

// NewSlackNotifier creates a Slack webhook notifier.
func NewSlackNotifier(webhookURL, channel string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		channel:    channel,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *SlackNotifier) Name() string { return "slack" }

func severityColor(sev model.Severity) string {
	switch sev {
	case model.SeverityMedium:
		return "#ff9900" // orange
	case model.SeverityHigh:
		return "#ff0000" // red
	case model.SeverityCritical:
		return "#cc0000" // dark red
	default:
		return "#36a64f" // green
	}
}

func (s *SlackNotifier) Send(ctx context.Context, trigger model.AlertTrigger) error {
	def := trigger.Definition
	return s.post(ctx, slackAttachment{
		Color: severityColor(def.Severity),
		Title: "CanchaYA: " + trigger.Title(),
		Fields: []slackField{
			{Title: "Metric", Value: def.MetricID, Short: true},
			{Title: "Value", Value: fmt.Sprintf("%g", trigger.Value), Short: true},
			{Title: "Condition", Value: fmt.Sprintf("%s %s", def.Condition, def.Threshold), Short: true},
			{Title: "Severity", Value: string(def.Severity), Short: true},
			{Title: "Cooldown", Value: fmt.Sprintf("%d min", def.CooldownMinutes), Short: true},
		},
		Footer: "CanchaYA alerts",
		Ts:     trigger.EvaluatedAt.Unix(),
	})
}

// SendNotification forwards an in-app notification, typically an error.
func (s *SlackNotifier) SendNotification(ctx context.Context, n model.Notification) error {
	fields := []slackField{{Title: "Type", Value: string(n.Type), Short: true}}
	if n.Description != "" {
		fields = append(fields, slackField{Title: "Detail", Value: n.Description})
	}
	return s.post(ctx, slackAttachment{
		Color:  "#cc0000",
		Title:  "CanchaYA: " + n.Title,
		Fields: fields,
		Footer: "CanchaYA notifications",
		Ts:     n.Timestamp.Unix(),
	})
}

func (s *SlackNotifier) post(ctx context.Context, att slackAttachment) error {
	payload := slackPayload{
		Channel:     s.channel,
		Attachments: []slackAttachment{att},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}
	return nil
}

type slackPayload struct {
	Channel     string            `json:"channel,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer"`
	Ts     int64        `json:"ts"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}
