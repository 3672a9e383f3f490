package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/canchaya/canchaya/pkg/model"
)

// Evaluator decides which definitions fire for a metric value and dispatches them.
type Evaluator struct {
	store  DefinitionStore
	router *Router
	logger *slog.Logger
	now    func() time.Time

	// serializes the read-check-write of LastTriggered
	mu sync.Mutex
	// firing times seen by this process; they survive a failed store write
	lastFired map[string]time.Time
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithClock sets the evaluation time source.
func WithClock(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) { e.now = now }
}

// NewEvaluator creates an evaluator. A nil router evaluates without dispatching.
func NewEvaluator(store DefinitionStore, router *Router, logger *slog.Logger, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		store:     store,
		router:    router,
		logger:    logger,
		now:       time.Now,
		lastFired: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate checks every active definition watching metricID against value.
// Fired definitions get LastTriggered set, are persisted and are routed to
// their channels. Malformed definitions are skipped and logged.
func (e *Evaluator) Evaluate(ctx context.Context, metricID string, value float64) ([]model.AlertTrigger, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	defs, err := e.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list alert definitions: %w", err)
	}

	now := e.now().UTC()
	var fired []model.AlertTrigger

	for i := range defs {
		def := defs[i]
		if def.MetricID != metricID {
			continue
		}
		if at, ok := e.lastFired[def.ID]; ok && (def.LastTriggered == nil || at.After(*def.LastTriggered)) {
			def.LastTriggered = &at
		}

		switch StateOf(def, now) {
		case StateInactive:
			continue
		case StateCoolingDown:
			e.logger.Debug("alert cooling down",
				"alert", def.ID,
				"ready_at", ReadyAt(def),
			)
			continue
		}

		ok, err := Matches(def, value)
		if err != nil {
			e.logger.Warn("skip alert with bad threshold",
				"alert", def.ID,
				"name", def.Name,
				"error", err,
			)
			continue
		}
		if !ok {
			continue
		}

		def.LastTriggered = &now
		e.lastFired[def.ID] = now
		if err := e.store.MarkTriggered(ctx, def.ID, now); err != nil {
			e.logger.Error("persist alert trigger time", "alert", def.ID, "error", err)
		}

		trigger := model.AlertTrigger{Definition: def, Value: value, EvaluatedAt: now}
		e.logger.Warn("alert fired",
			"alert", def.ID,
			"name", def.Name,
			"metric", metricID,
			"value", value,
			"severity", def.Severity,
		)

		if e.router != nil {
			e.router.Dispatch(ctx, trigger)
		}
		fired = append(fired, trigger)
	}

	return fired, nil
}

// EvaluateAll runs Evaluate for every metric in values, in metric id order.
func (e *Evaluator) EvaluateAll(ctx context.Context, values map[string]float64) ([]model.AlertTrigger, error) {
	ids := make([]string, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var (
		all  []model.AlertTrigger
		errs []error
	)
	for _, id := range ids {
		fired, err := e.Evaluate(ctx, id, values[id])
		if err != nil {
			errs = append(errs, fmt.Errorf("metric %s: %w", id, err))
			continue
		}
		all = append(all, fired...)
	}
	return all, errors.Join(errs...)
}
