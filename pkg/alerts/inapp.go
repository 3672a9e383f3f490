package alerts

import (
	"context"
	"time"

	"github.com/canchaya/canchaya/pkg/model"
)

// Publisher accepts notifications; *notify.Dispatcher satisfies it.
type Publisher interface {
	Notify(ctx context.Context, spec model.NotificationSpec) string
}

// InAppNotifier turns triggers into in-app notifications. Severity picks the
// notification type.
type InAppNotifier struct {
	pub Publisher
}

func NewInAppNotifier(pub Publisher) *InAppNotifier {
	return &InAppNotifier{pub: pub}
}

func (n *InAppNotifier) Name() string { return "in_app" }

func (n *InAppNotifier) Send(ctx context.Context, trigger model.AlertTrigger) error {
	n.pub.Notify(ctx, SpecFor(trigger))
	return nil
}

// SpecFor maps a trigger to the notification shown for it.
func SpecFor(trigger model.AlertTrigger) model.NotificationSpec {
	spec := model.NotificationSpec{
		Title:       trigger.Title(),
		Description: trigger.Message(),
	}
	switch trigger.Definition.Severity {
	case model.SeverityLow:
		spec.Type = model.NotificationInfo
	case model.SeverityMedium:
		spec.Type = model.NotificationWarning
	case model.SeverityHigh:
		spec.Type = model.NotificationError
	case model.SeverityCritical:
		spec.Type = model.NotificationError
		spec.Duration = 30 * time.Second
	default:
		spec.Type = model.NotificationInfo
	}
	return spec
}
