package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sink receives each successful fetch.
type Sink func(ctx context.Context, values map[string]float64) error

// Stats describes the poller's activity.
type Stats struct {
	Runs     int64     `json:"runs"`
	Failures int64     `json:"failures"`
	LastRun  time.Time `json:"last_run"`
	LastErr  string    `json:"last_error,omitempty"`
	Interval string    `json:"interval"`
}

// Poller fetches from a source on a fixed interval and hands values to a sink.
type Poller struct {
	source Source
	sink   Sink
	logger *slog.Logger

	mu         sync.Mutex
	interval   time.Duration
	cancel     context.CancelFunc
	done       chan struct{}
	stats      Stats
	intervalCh chan time.Duration // signals the loop to reset the ticker
}

// MinInterval is the shortest accepted polling interval.
const MinInterval = time.Second

// NewPoller creates a poller. It does nothing until Start.
func NewPoller(source Source, sink Sink, interval time.Duration, logger *slog.Logger) *Poller {
	if interval < MinInterval {
		interval = MinInterval
	}
	return &Poller{
		source:     source,
		sink:       sink,
		interval:   interval,
		logger:     logger,
		intervalCh: make(chan time.Duration, 1),
	}
}

// Start begins the poll loop. The first poll runs immediately. Calling Start
// on a running poller does nothing.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx, p.interval, p.done)
}

// Stop halts the loop and waits for an in-flight poll to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// UpdateInterval changes the interval at runtime.
func (p *Poller) UpdateInterval(d time.Duration) {
	if d < MinInterval {
		d = MinInterval
	}
	p.mu.Lock()
	p.interval = d
	p.mu.Unlock()

	// Non-blocking send to notify the loop
	select {
	case p.intervalCh <- d:
	default:
	}
	p.logger.Info("poll interval updated", "interval", d)
}

// Stats returns a snapshot.
func (p *Poller) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	s.Interval = p.interval.String()
	return s
}

// PollOnce fetches and delivers a single round.
func (p *Poller) PollOnce(ctx context.Context) error {
	values, err := p.source.Fetch(ctx)
	if err == nil {
		err = p.sink(ctx, values)
	}

	p.mu.Lock()
	p.stats.Runs++
	p.stats.LastRun = time.Now()
	p.stats.LastErr = ""
	if err != nil {
		p.stats.Failures++
		p.stats.LastErr = err.Error()
	}
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn("metrics poll failed", "error", err)
	}
	return err
}

func (p *Poller) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run once immediately
	_ = p.PollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-p.intervalCh:
			ticker.Reset(d)
		case <-ticker.C:
			_ = p.PollOnce(ctx)
		}
	}
}
