package alerts

import (
	"context"
	"errors"

	"github.com/canchaya/canchaya/pkg/model"
)

// ErrNotFound is returned when an alert definition id is unknown.
var ErrNotFound = errors.New("alert definition not found")

// Notifier delivers fired alerts to one destination.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers a trigger. Implementations must be safe for concurrent use.
	Send(ctx context.Context, trigger model.AlertTrigger) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc struct {
	ID string
	Fn func(ctx context.Context, trigger model.AlertTrigger) error
}

func (f NotifierFunc) Name() string { return f.ID }

func (f NotifierFunc) Send(ctx context.Context, trigger model.AlertTrigger) error {
	return f.Fn(ctx, trigger)
}
