package model

import "time"

// NotificationType selects toast styling and behavior.
type NotificationType string

const (
	NotificationSuccess NotificationType = "SUCCESS"
	NotificationError   NotificationType = "ERROR"
	NotificationWarning NotificationType = "WARNING"
	NotificationInfo    NotificationType = "INFO"
	NotificationLoading NotificationType = "LOADING"
)

// Action is an optional button attached to a notification.
type Action struct {
	Label   string `json:"label"`
	Handler func() `json:"-"`
}

// NotificationSpec is what producers hand to the dispatcher.
type NotificationSpec struct {
	Type        NotificationType `json:"type"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Action      *Action          `json:"action,omitempty"`
	Duration    time.Duration    `json:"duration,omitempty"`
}

// Notification is a dispatched notification as kept in history.
type Notification struct {
	ID string `json:"id"`
	NotificationSpec
	Timestamp time.Time `json:"timestamp"`
}
