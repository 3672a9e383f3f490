package alerts

import (
	"context"
	"log/slog"

	"github.com/canchaya/canchaya/pkg/model"
)

// ChannelEscalation labels deliveries to the ops escalation notifiers.
const ChannelEscalation model.Channel = "ESCALATION"

// Delivery is the outcome of one notifier call.
type Delivery struct {
	Channel  model.Channel
	Notifier string
	Err      error
}

// Router fans a trigger out to the notifiers registered for each of its channels.
type Router struct {
	routes     map[model.Channel][]Notifier
	fallback   Notifier
	escalation []Notifier
	logger     *slog.Logger
}

// NewRouter creates an empty router.
func NewRouter(logger *slog.Logger) *Router {
	return &Router{
		routes: make(map[model.Channel][]Notifier),
		logger: logger,
	}
}

// Route registers notifiers for ch.
func (r *Router) Route(ch model.Channel, notifiers ...Notifier) *Router {
	for _, n := range notifiers {
		if n != nil {
			r.routes[ch] = append(r.routes[ch], n)
		}
	}
	return r
}

// Fallback handles channels with no registered notifier.
func (r *Router) Fallback(n Notifier) *Router {
	r.fallback = n
	return r
}

// Escalate registers notifiers that also receive HIGH and CRITICAL triggers.
func (r *Router) Escalate(notifiers ...Notifier) *Router {
	for _, n := range notifiers {
		if n != nil {
			r.escalation = append(r.escalation, n)
		}
	}
	return r
}

// Dispatch sends trigger to every channel on its definition. Failures are
// logged and do not stop the remaining deliveries.
func (r *Router) Dispatch(ctx context.Context, trigger model.AlertTrigger) []Delivery {
	var out []Delivery

	for _, ch := range trigger.Definition.Channels {
		notifiers := r.routes[ch]
		if len(notifiers) == 0 {
			if r.fallback == nil {
				r.logger.Warn("no notifier for channel", "channel", ch, "alert", trigger.Definition.ID)
				continue
			}
			r.logger.Debug("channel falls back", "channel", ch, "notifier", r.fallback.Name())
			notifiers = []Notifier{r.fallback}
		}
		for _, n := range notifiers {
			out = append(out, r.send(ctx, ch, n, trigger))
		}
	}

	switch trigger.Definition.Severity {
	case model.SeverityHigh, model.SeverityCritical:
		for _, n := range r.escalation {
			out = append(out, r.send(ctx, ChannelEscalation, n, trigger))
		}
	}

	return out
}

func (r *Router) send(ctx context.Context, ch model.Channel, n Notifier, trigger model.AlertTrigger) Delivery {
	err := n.Send(ctx, trigger)
	if err != nil {
		r.logger.Error("send alert failed",
			"notifier", n.Name(),
			"channel", ch,
			"alert", trigger.Definition.ID,
			"error", err,
		)
	}
	return Delivery{Channel: ch, Notifier: n.Name(), Err: err}
}
