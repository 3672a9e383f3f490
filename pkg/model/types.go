package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Condition is the comparison applied between a metric value and a threshold.
type Condition string

const (
	ConditionGreater      Condition = ">"
	ConditionLess         Condition = "<"
	ConditionGreaterEqual Condition = ">="
	ConditionLessEqual    Condition = "<="
	ConditionEqual        Condition = "="
	ConditionBetween      Condition = "between" // inclusive [min, max]
)

// Valid reports whether c is a known condition.
func (c Condition) Valid() bool {
	switch c {
	case ConditionGreater, ConditionLess, ConditionGreaterEqual,
		ConditionLessEqual, ConditionEqual, ConditionBetween:
		return true
	}
	return false
}

// Severity tags an alert with its urgency. It never gates firing.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Channel is a delivery route for a fired alert.
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelPush  Channel = "PUSH"
	ChannelSMS   Channel = "SMS"
	ChannelInApp Channel = "IN_APP"
)

// AlertDefinition is an administrator-managed rule watching a single metric.
type AlertDefinition struct {
	ID              string     `json:"id" yaml:"id" validate:"required"`
	Name            string     `json:"name" yaml:"name" validate:"required,max=120"`
	MetricID        string     `json:"metric_id" yaml:"metric_id" validate:"required"`
	Condition       Condition  `json:"condition" yaml:"condition"`
	Threshold       Threshold  `json:"threshold" yaml:"threshold"`
	Severity        Severity   `json:"severity" yaml:"severity" validate:"oneof=LOW MEDIUM HIGH CRITICAL"`
	Channels        []Channel  `json:"channels" yaml:"channels" validate:"required,min=1,dive,oneof=EMAIL PUSH SMS IN_APP"`
	Recipients      []string   `json:"recipients,omitempty" yaml:"recipients,omitempty" validate:"omitempty,dive,email"`
	CooldownMinutes int        `json:"cooldown_minutes" yaml:"cooldown_minutes" validate:"gte=0"`
	Active          bool       `json:"active" yaml:"active"`
	LastTriggered   *time.Time `json:"last_triggered,omitempty" yaml:"-"`
	CreatedAt       time.Time  `json:"created_at" yaml:"-"`
	UpdatedAt       time.Time  `json:"updated_at" yaml:"-"`
}

// NewAlertDefinition fills in identity and timestamps and validates the result.
func NewAlertDefinition(def AlertDefinition) (*AlertDefinition, error) {
	if def.ID == "" {
		def.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if def.CreatedAt.IsZero() {
		def.CreatedAt = now
	}
	def.UpdatedAt = now

	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Cooldown returns the configured cooldown as a duration.
func (d *AlertDefinition) Cooldown() time.Duration {
	return time.Duration(d.CooldownMinutes) * time.Minute
}

// HasChannel reports whether the definition routes to ch.
func (d *AlertDefinition) HasChannel(ch Channel) bool {
	for _, c := range d.Channels {
		if c == ch {
			return true
		}
	}
	return false
}

// AlertTrigger is produced when a definition fires. It is not persisted.
type AlertTrigger struct {
	Definition  AlertDefinition `json:"definition"`
	Value       float64         `json:"value"`
	EvaluatedAt time.Time       `json:"evaluated_at"`
}

// Title is a short headline for the trigger.
func (t AlertTrigger) Title() string {
	return fmt.Sprintf("[%s] %s", t.Definition.Severity, t.Definition.Name)
}

// Message describes why the trigger fired.
func (t AlertTrigger) Message() string {
	return fmt.Sprintf("%s is %g (condition %s %s)",
		t.Definition.MetricID, t.Value, t.Definition.Condition, t.Definition.Threshold)
}

// GeocodeResult is a resolved address.
type GeocodeResult struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DisplayName string  `json:"display_name"`
}

// ReportFormat selects an export encoding.
type ReportFormat string

const (
	ReportCSV   ReportFormat = "csv"
	ReportHTML  ReportFormat = "html"
	ReportExcel ReportFormat = "excel"
	ReportPDF   ReportFormat = "pdf"
)

// ReportRecord is an entry in the generated report history.
type ReportRecord struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Format    ReportFormat `json:"format"`
	Filename  string       `json:"filename"`
	Rows      int          `json:"rows"`
	Success   bool         `json:"success"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}
