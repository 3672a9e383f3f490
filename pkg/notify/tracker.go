package notify

import (
	"context"
	"log/slog"

	"github.com/canchaya/canchaya/pkg/model"
)

// Forwarder ships a notification to an external error tracker.
type Forwarder func(ctx context.Context, n model.Notification) error

// NewErrorTracker returns an observer that logs ERROR notifications and hands
// them to forward, when set.
func NewErrorTracker(logger *slog.Logger, forward Forwarder) Observer {
	return func(ctx context.Context, n model.Notification) error {
		if n.Type != model.NotificationError {
			return nil
		}
		logger.ErrorContext(ctx, "error notification",
			"id", n.ID,
			"title", n.Title,
			"description", n.Description,
		)
		if forward == nil {
			return nil
		}
		return forward(ctx, n)
	}
}
