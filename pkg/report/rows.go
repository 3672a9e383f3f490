// Package report flattens alert definitions and notifications into rows and
// exports them as downloadable documents.
package report

import (
	"strconv"
	"strings"
	"time"

	"github.com/canchaya/canchaya/pkg/model"
)

// Field is one key/value cell of a row.
type Field struct {
	Key   string
	Value string
}

// Row is an ordered list of fields.
type Row []Field

// Get returns the value for key, or "".
func (r Row) Get(key string) string {
	for _, f := range r {
		if f.Key == key {
			return f.Value
		}
	}
	return ""
}

// Columns returns the union of keys across rows in first-seen order.
func Columns(rows []Row) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, r := range rows {
		for _, f := range r {
			if !seen[f.Key] {
				seen[f.Key] = true
				cols = append(cols, f.Key)
			}
		}
	}
	return cols
}

func isoTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// FromDefinitions flattens alert definitions.
func FromDefinitions(defs []model.AlertDefinition) []Row {
	rows := make([]Row, 0, len(defs))
	for _, d := range defs {
		channels := make([]string, len(d.Channels))
		for i, c := range d.Channels {
			channels[i] = string(c)
		}
		last := ""
		if d.LastTriggered != nil {
			last = isoTime(*d.LastTriggered)
		}
		rows = append(rows, Row{
			{"id", d.ID},
			{"name", d.Name},
			{"metric_id", d.MetricID},
			{"condition", string(d.Condition)},
			{"threshold", d.Threshold.String()},
			{"severity", string(d.Severity)},
			{"channels", strings.Join(channels, "|")},
			{"recipients", strings.Join(d.Recipients, "|")},
			{"cooldown_minutes", strconv.Itoa(d.CooldownMinutes)},
			{"active", strconv.FormatBool(d.Active)},
			{"last_triggered", last},
			{"created_at", isoTime(d.CreatedAt)},
		})
	}
	return rows
}

// FromNotifications flattens notification history.
func FromNotifications(ns []model.Notification) []Row {
	rows := make([]Row, 0, len(ns))
	for _, n := range ns {
		row := Row{
			{"id", n.ID},
			{"type", string(n.Type)},
			{"title", n.Title},
			{"description", n.Description},
			{"timestamp", isoTime(n.Timestamp)},
		}
		if n.Action != nil {
			row = append(row, Field{"action", n.Action.Label})
		}
		rows = append(rows, row)
	}
	return rows
}
