package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Presenter renders toasts. Implementations must be safe for concurrent use.
type Presenter interface {
	Show(ctx context.Context, t Toast)
	Dismiss(id string)
	DismissAll()
}

// Presenters fans out to every non-nil presenter in ps.
func Presenters(ps ...Presenter) Presenter {
	out := make(multiPresenter, 0, len(ps))
	for _, p := range ps {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

type multiPresenter []Presenter

func (m multiPresenter) Show(ctx context.Context, t Toast) {
	for _, p := range m {
		p.Show(ctx, t)
	}
}

func (m multiPresenter) Dismiss(id string) {
	for _, p := range m {
		p.Dismiss(id)
	}
}

func (m multiPresenter) DismissAll() {
	for _, p := range m {
		p.DismissAll()
	}
}

// LogPresenter writes toasts to a structured logger.
type LogPresenter struct {
	logger *slog.Logger
}

func NewLogPresenter(logger *slog.Logger) *LogPresenter {
	return &LogPresenter{logger: logger}
}

func (p *LogPresenter) Show(ctx context.Context, t Toast) {
	p.logger.InfoContext(ctx, "toast",
		"id", t.ID,
		"type", t.Type,
		"title", t.Title,
		"description", t.Description,
		"duration_ms", t.DurationMS,
	)
}

func (p *LogPresenter) Dismiss(id string) {
	p.logger.Debug("toast dismissed", "id", id)
}

func (p *LogPresenter) DismissAll() {
	p.logger.Debug("toasts cleared")
}

// ConsolePresenter prints toasts as single lines and tracks which are visible.
type ConsolePresenter struct {
	mu      sync.Mutex
	w       io.Writer
	visible map[string]Toast
	order   []string
}

func NewConsolePresenter(w io.Writer) *ConsolePresenter {
	return &ConsolePresenter{w: w, visible: make(map[string]Toast)}
}

func (p *ConsolePresenter) Show(_ context.Context, t Toast) {
	p.mu.Lock()
	defer p.mu.Unlock()

	line := t.Icon + " " + t.Title
	if t.Description != "" {
		line += ": " + t.Description
	}
	if t.ActionLabel != "" {
		line += " [" + t.ActionLabel + "]"
	}
	fmt.Fprintln(p.w, line)

	p.visible[t.ID] = t
	p.order = append(p.order, t.ID)
}

func (p *ConsolePresenter) Dismiss(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.visible[id]; !ok {
		return
	}
	delete(p.visible, id)
	for i, v := range p.order {
		if v == id {
			p.order = append(p.order[:i:i], p.order[i+1:]...)
			break
		}
	}
}

func (p *ConsolePresenter) DismissAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible = make(map[string]Toast)
	p.order = nil
}

// Visible returns the toasts currently shown, in display order.
func (p *ConsolePresenter) Visible() []Toast {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Toast, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.visible[id])
	}
	return out
}
