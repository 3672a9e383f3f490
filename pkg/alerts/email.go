package alerts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/canchaya/canchaya/pkg/model"
)

const emailBodyTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #f5f5f5; padding: 10px; border-radius: 5px; }
        .sev-LOW { color: #2196F3; }
        .sev-MEDIUM { color: #FF9800; }
        .sev-HIGH { color: #F44336; }
        .sev-CRITICAL { color: #880E4F; }
        table { width: 100%; border-collapse: collapse; margin: 15px 0; }
        th, td { padding: 8px; text-align: left; border-bottom: 1px solid #ddd; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h2 class="sev-{{.Severity}}">{{.Title}}</h2>
        </div>
        <p>{{.Message}}</p>
        <table>
            <tr><th>Alerta</th><td>{{.Name}}</td></tr>
            <tr><th>Métrica</th><td>{{.MetricID}}</td></tr>
            <tr><th>Valor</th><td>{{.Value}}</td></tr>
            <tr><th>Condición</th><td>{{.Condition}} {{.Threshold}}</td></tr>
            <tr><th>Severidad</th><td>{{.Severity}}</td></tr>
            <tr><th>Fecha</th><td>{{formatTime .EvaluatedAt}}</td></tr>
        </table>
        <p style="font-size: 12px; color: #999;">Mensaje automático de CanchaYA, no responder.</p>
    </div>
</body>
</html>
`

var emailBody = template.Must(template.New("alert-email").Funcs(template.FuncMap{
	"formatTime": func(t time.Time) string { return t.Format("2006-01-02 15:04:05") },
}).Parse(emailBodyTemplate))

// EmailConfig holds SMTP settings. An empty Host turns the notifier into a
// logging stub.
type EmailConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	From              string
	DefaultRecipients []string
}

// SendMailFunc matches smtp.SendMail.
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier mails triggers to the definition's recipients.
type EmailNotifier struct {
	cfg      EmailConfig
	logger   *slog.Logger
	sendMail SendMailFunc
}

// NewEmailNotifier creates an email notifier.
func NewEmailNotifier(cfg EmailConfig, logger *slog.Logger) *EmailNotifier {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = "alertas@canchaya.app"
	}
	return &EmailNotifier{cfg: cfg, logger: logger, sendMail: smtp.SendMail}
}

// WithSendMail replaces the SMTP transport.
func (n *EmailNotifier) WithSendMail(fn SendMailFunc) *EmailNotifier {
	n.sendMail = fn
	return n
}

func (n *EmailNotifier) Name() string { return "email" }

func (n *EmailNotifier) Send(ctx context.Context, trigger model.AlertTrigger) error {
	to := n.recipients(trigger.Definition)
	if len(to) == 0 {
		return errors.New("no email recipients")
	}

	subject, body, err := RenderEmail(trigger)
	if err != nil {
		return err
	}

	if n.cfg.Host == "" {
		n.logger.InfoContext(ctx, "email not sent, smtp not configured",
			"to", strings.Join(to, ","),
			"subject", subject,
		)
		return nil
	}

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	if err := n.sendMail(addr, auth, n.cfg.From, to, n.buildMessage(to, subject, body)); err != nil {
		return fmt.Errorf("send alert email: %w", err)
	}
	return nil
}

func (n *EmailNotifier) recipients(def model.AlertDefinition) []string {
	src := def.Recipients
	if len(src) == 0 {
		src = n.cfg.DefaultRecipients
	}
	out := make([]string, 0, len(src))
	for _, addr := range src {
		if !model.ValidEmail(addr) {
			n.logger.Warn("skip invalid email recipient", "alert", def.ID, "address", addr)
			continue
		}
		out = append(out, addr)
	}
	return out
}

func (n *EmailNotifier) buildMessage(to []string, subject, body string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(body)
	return b.Bytes()
}

// RenderEmail returns the subject and HTML body for trigger.
func RenderEmail(trigger model.AlertTrigger) (subject, body string, err error) {
	def := trigger.Definition
	data := struct {
		Title       string
		Message     string
		Name        string
		MetricID    string
		Value       float64
		Condition   model.Condition
		Threshold   string
		Severity    model.Severity
		EvaluatedAt time.Time
	}{
		Title:       trigger.Title(),
		Message:     trigger.Message(),
		Name:        def.Name,
		MetricID:    def.MetricID,
		Value:       trigger.Value,
		Condition:   def.Condition,
		Threshold:   def.Threshold.String(),
		Severity:    def.Severity,
		EvaluatedAt: trigger.EvaluatedAt,
	}

	var buf bytes.Buffer
	if err := emailBody.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render alert email: %w", err)
	}
	return trigger.Title(), buf.String(), nil
}
