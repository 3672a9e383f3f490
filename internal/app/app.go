// Package app wires the CanchaYA services together from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/canchaya/canchaya/internal/config"
	"github.com/canchaya/canchaya/internal/server"
	"github.com/canchaya/canchaya/pkg/alerts"
	"github.com/canchaya/canchaya/pkg/format"
	"github.com/canchaya/canchaya/pkg/geocode"
	"github.com/canchaya/canchaya/pkg/metrics"
	"github.com/canchaya/canchaya/pkg/model"
	"github.com/canchaya/canchaya/pkg/notify"
	"github.com/canchaya/canchaya/pkg/report"
	"github.com/canchaya/canchaya/pkg/storage"
)

// App holds every wired service.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	KV            storage.KV
	Store         *alerts.KVStore
	Hub           *server.Hub
	Notifications *notify.Dispatcher
	Router        *alerts.Router
	Evaluator     *alerts.Evaluator
	Geocoder      *geocode.Client
	Reports       *report.Service
	Locale        format.Locale
	// Console is set when notifications.console is enabled.
	Console *notify.ConsolePresenter

	unsubscribe []func()
}

// NewLogger creates a structured logger from config.
func NewLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// New opens storage and wires the services. presenters are added to the
// websocket hub and log presenter as toast outputs.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, presenters ...notify.Presenter) (*App, error) {
	kv, err := storage.Open(ctx, cfg.Storage.Options())
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	a := &App{
		Config: cfg,
		Logger: logger,
		KV:     kv,
		Store:  alerts.NewKVStore(kv),
		Hub:    server.NewHub(cfg.Server.AllowedOrigins, logger),
		Locale: format.LookupLocale(cfg.Format.Locale),
	}

	outputs := append([]notify.Presenter{a.Hub, notify.NewLogPresenter(logger)}, presenters...)
	if cfg.Notifications.Console {
		a.Console = notify.NewConsolePresenter(os.Stdout)
		outputs = append(outputs, a.Console)
	}
	a.Notifications = notify.NewDispatcher(notify.Presenters(outputs...), logger,
		notify.WithHistoryLimit(cfg.Notifications.HistoryLimit))

	a.Router = a.newRouter()
	a.Evaluator = alerts.NewEvaluator(a.Store, a.Router, logger)

	cache := geocode.NewCache(kv, logger, geocode.WithTTL(cfg.Geocode.CacheTTL))
	a.Geocoder = geocode.NewClient(cache, geocode.Options{
		BaseURL:   cfg.Geocode.BaseURL,
		UserAgent: cfg.Geocode.UserAgent,
		Timeout:   cfg.Geocode.Timeout,
	}, logger)

	a.Reports = report.NewService(a.Store, report.NewExporter(nil), report.NewHistory(kv), a.Notifications, logger)

	return a, nil
}

// newRouter maps each alert channel to the notifiers enabled in config.
func (a *App) newRouter() *alerts.Router {
	cfg := a.Config.Alerts
	inApp := alerts.NewInAppNotifier(a.Notifications)

	r := alerts.NewRouter(a.Logger).
		Route(model.ChannelInApp, inApp).
		Route(model.ChannelEmail, alerts.NewEmailNotifier(alerts.EmailConfig{
			Host:              cfg.Email.Host,
			Port:              cfg.Email.Port,
			Username:          cfg.Email.Username,
			Password:          cfg.Email.Password,
			From:              cfg.Email.From,
			DefaultRecipients: cfg.Email.Recipients,
		}, a.Logger)).
		Fallback(inApp)

	if cfg.Push.Enabled && cfg.Push.URL != "" {
		r.Route(model.ChannelPush, alerts.NewWebhookNotifier("push", cfg.Push.URL, cfg.Push.Secret))
	}
	if cfg.SMS.Enabled && cfg.SMS.URL != "" {
		r.Route(model.ChannelSMS, alerts.NewWebhookNotifier("sms", cfg.SMS.URL, cfg.SMS.Secret))
	}

	var forward notify.Forwarder
	if cfg.Slack.Enabled && cfg.Slack.WebhookURL != "" {
		slack := alerts.NewSlackNotifier(cfg.Slack.WebhookURL, cfg.Slack.Channel)
		r.Escalate(slack)
		forward = slack.SendNotification
	}
	a.unsubscribe = append(a.unsubscribe,
		a.Notifications.Subscribe(notify.NewErrorTracker(a.Logger, forward)))

	return r
}

// Server builds the HTTP API over the wired services.
func (a *App) Server() *server.Server {
	return server.NewServer(server.Deps{
		Store:          a.Store,
		Evaluator:      a.Evaluator,
		Notifications:  a.Notifications,
		Geocoder:       a.Geocoder,
		Reports:        a.Reports,
		Hub:            a.Hub,
		Locale:         a.Locale,
		BatchDelay:     a.Config.Geocode.BatchDelay,
		JWTSecret:      a.Config.Server.JWTSecret,
		AllowedOrigins: a.Config.Server.AllowedOrigins,
	}, a.Logger)
}

// Poller returns the metric poller, or nil when polling is disabled.
func (a *App) Poller() *metrics.Poller {
	cfg := a.Config.Metrics
	if !cfg.Enabled || cfg.URL == "" {
		return nil
	}
	source := metrics.NewHTTPSource(cfg.URL, cfg.Path, cfg.Token)
	sink := func(ctx context.Context, values map[string]float64) error {
		_, err := a.Evaluator.EvaluateAll(ctx, values)
		return err
	}
	return metrics.NewPoller(source, sink, cfg.Interval, a.Logger)
}

// Scheduler returns the report scheduler, or nil when no schedule is set.
func (a *App) Scheduler() (*report.Scheduler, error) {
	cfg := a.Config.Reports
	if cfg.Schedule == "" {
		return nil, nil
	}
	return report.NewScheduler(a.Reports, cfg.Schedule, model.ReportFormat(cfg.Format), cfg.Dir, a.Logger)
}

// Run serves the API on listen and runs the background jobs until ctx is done.
func (a *App) Run(ctx context.Context, listen string) error {
	scheduler, err := a.Scheduler()
	if err != nil {
		return err
	}
	if scheduler != nil {
		scheduler.Start()
		defer scheduler.Stop()
	}

	if poller := a.Poller(); poller != nil {
		poller.Start(ctx)
		defer poller.Stop()
	}

	srv := &http.Server{
		Addr:         listen,
		Handler:      a.Server().Handler(),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("api started", "listen", listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		a.Logger.Info("shutting down")
		a.Hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	a.Logger.Info("api stopped")
	return nil
}

// Close releases storage and observers.
func (a *App) Close() error {
	for _, unsub := range a.unsubscribe {
		unsub()
	}
	return a.KV.Close()
}
