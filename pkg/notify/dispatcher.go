// Package notify is the in-process notification hub: producers publish
// notifications, observers are called back, every notification is shown as
// a toast and kept in a bounded history.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/canchaya/canchaya/pkg/model"
)

// DefaultHistoryLimit is how many notifications History keeps.
const DefaultHistoryLimit = 100

// Observer is called for every notification. Returned errors and panics are
// logged and never reach the producer or other observers.
type Observer func(ctx context.Context, n model.Notification) error

type subscription struct {
	id string
	fn Observer
}

// Dispatcher publishes notifications to a presenter and to observers.
type Dispatcher struct {
	presenter Presenter
	logger    *slog.Logger
	limit     int
	now       func() time.Time

	mu        sync.Mutex
	history   []model.Notification
	observers []subscription
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHistoryLimit caps the history. Non-positive values are ignored.
func WithHistoryLimit(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.limit = n
		}
	}
}

// WithClock sets the time source for ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher creates a dispatcher rendering toasts through presenter.
// A nil presenter discards toasts.
func NewDispatcher(presenter Presenter, logger *slog.Logger, opts ...Option) *Dispatcher {
	if presenter == nil {
		presenter = Presenters()
	}
	d := &Dispatcher{
		presenter: presenter,
		logger:    logger,
		limit:     DefaultHistoryLimit,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify records spec, shows it as a toast and calls every observer in
// subscription order. It returns the new notification's id.
func (d *Dispatcher) Notify(ctx context.Context, spec model.NotificationSpec) string {
	now := d.now()
	n := model.Notification{
		ID:               fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8]),
		NotificationSpec: spec,
		Timestamp:        now,
	}
	if n.Type == "" {
		n.Type = model.NotificationInfo
	}

	d.mu.Lock()
	d.history = append(d.history, n)
	if over := len(d.history) - d.limit; over > 0 {
		d.history = append([]model.Notification(nil), d.history[over:]...)
	}
	observers := append([]subscription(nil), d.observers...)
	d.mu.Unlock()

	d.show(ctx, n)
	for _, sub := range observers {
		d.invoke(ctx, sub, n)
	}
	return n.ID
}

func (d *Dispatcher) show(ctx context.Context, n model.Notification) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("toast presenter panicked", "notification", n.ID, "panic", r)
		}
	}()
	d.presenter.Show(ctx, ToastFor(n))
}

func (d *Dispatcher) invoke(ctx context.Context, sub subscription, n model.Notification) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notification observer panicked",
				"subscription", sub.id, "notification", n.ID, "panic", r)
		}
	}()
	if err := sub.fn(ctx, n); err != nil {
		d.logger.Warn("notification observer failed",
			"subscription", sub.id, "notification", n.ID, "error", err)
	}
}

// SpecOption fills optional NotificationSpec fields for the typed helpers.
type SpecOption func(*model.NotificationSpec)

func WithDescription(desc string) SpecOption {
	return func(s *model.NotificationSpec) { s.Description = desc }
}

func WithDuration(d time.Duration) SpecOption {
	return func(s *model.NotificationSpec) { s.Duration = d }
}

func WithAction(label string, handler func()) SpecOption {
	return func(s *model.NotificationSpec) {
		s.Action = &model.Action{Label: label, Handler: handler}
	}
}

func (d *Dispatcher) notifyTyped(ctx context.Context, typ model.NotificationType, title string, opts []SpecOption) string {
	spec := model.NotificationSpec{Type: typ, Title: title}
	for _, opt := range opts {
		opt(&spec)
	}
	spec.Type = typ
	return d.Notify(ctx, spec)
}

func (d *Dispatcher) NotifySuccess(ctx context.Context, title string, opts ...SpecOption) string {
	return d.notifyTyped(ctx, model.NotificationSuccess, title, opts)
}

func (d *Dispatcher) NotifyError(ctx context.Context, title string, opts ...SpecOption) string {
	return d.notifyTyped(ctx, model.NotificationError, title, opts)
}

func (d *Dispatcher) NotifyWarning(ctx context.Context, title string, opts ...SpecOption) string {
	return d.notifyTyped(ctx, model.NotificationWarning, title, opts)
}

func (d *Dispatcher) NotifyInfo(ctx context.Context, title string, opts ...SpecOption) string {
	return d.notifyTyped(ctx, model.NotificationInfo, title, opts)
}

func (d *Dispatcher) NotifyLoading(ctx context.Context, title string, opts ...SpecOption) string {
	return d.notifyTyped(ctx, model.NotificationLoading, title, opts)
}

// Subscribe registers fn. The returned function removes exactly this
// registration; calling it again does nothing.
func (d *Dispatcher) Subscribe(fn Observer) (unsubscribe func()) {
	sub := subscription{id: uuid.NewString(), fn: fn}

	d.mu.Lock()
	d.observers = append(d.observers, sub)
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			for i, s := range d.observers {
				if s.id == sub.id {
					d.observers = append(d.observers[:i:i], d.observers[i+1:]...)
					return
				}
			}
		})
	}
}

// Dismiss hides the toast for id. History is not touched.
func (d *Dispatcher) Dismiss(id string) {
	d.presenter.Dismiss(id)
}

// ClearAll hides every toast. History is not touched.
func (d *Dispatcher) ClearAll() {
	d.presenter.DismissAll()
}

// RunAction invokes the action attached to notification id, if any.
func (d *Dispatcher) RunAction(id string) bool {
	var action *model.Action
	d.mu.Lock()
	for i := len(d.history) - 1; i >= 0; i-- {
		if d.history[i].ID == id {
			action = d.history[i].Action
			break
		}
	}
	d.mu.Unlock()

	if action == nil || action.Handler == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notification action panicked", "notification", id, "panic", r)
		}
	}()
	action.Handler()
	return true
}

// History returns the retained notifications, oldest first.
func (d *Dispatcher) History() []model.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.Notification(nil), d.history...)
}

// Len returns the number of retained notifications.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.history)
}

// Observers returns the number of registered observers.
func (d *Dispatcher) Observers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.observers)
}
