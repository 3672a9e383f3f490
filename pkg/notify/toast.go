package notify

import (
	"time"

	"github.com/canchaya/canchaya/pkg/model"
)

type toastStyle struct {
	icon     string
	duration time.Duration
}

var toastStyles = map[model.NotificationType]toastStyle{
	model.NotificationSuccess: {icon: "✓", duration: 4 * time.Second},
	model.NotificationError:   {icon: "✕", duration: 6 * time.Second},
	model.NotificationWarning: {icon: "⚠", duration: 5 * time.Second},
	model.NotificationInfo:    {icon: "ℹ", duration: 4 * time.Second},
	model.NotificationLoading: {icon: "⏳", duration: 0},
}

// Toast is the transient, presentable form of a notification.
type Toast struct {
	ID          string                 `json:"id"`
	Type        model.NotificationType `json:"type"`
	Icon        string                 `json:"icon"`
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	ActionLabel string                 `json:"action_label,omitempty"`
	// DurationMS is how long the toast stays up. Zero means until dismissed.
	DurationMS int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// Sticky reports whether the toast stays until dismissed.
func (t Toast) Sticky() bool { return t.DurationMS == 0 }

// Duration returns the display time.
func (t Toast) Duration() time.Duration {
	return time.Duration(t.DurationMS) * time.Millisecond
}

// ToastFor derives the toast for n. An explicit duration on the notification
// overrides the per-type default.
func ToastFor(n model.Notification) Toast {
	style, ok := toastStyles[n.Type]
	if !ok {
		style = toastStyles[model.NotificationInfo]
	}
	d := style.duration
	if n.Duration > 0 {
		d = n.Duration
	}

	t := Toast{
		ID:          n.ID,
		Type:        n.Type,
		Icon:        style.icon,
		Title:       n.Title,
		Description: n.Description,
		DurationMS:  d.Milliseconds(),
		Timestamp:   n.Timestamp,
	}
	if n.Action != nil {
		t.ActionLabel = n.Action.Label
	}
	return t
}
