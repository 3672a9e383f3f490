package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/canchaya/canchaya/pkg/model"
)

// Scheduler writes the alerts report to a directory on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	service *Service
	format  model.ReportFormat
	dir     string
	timeout time.Duration
	logger  *slog.Logger
}

// NewScheduler parses spec (standard five fields or a descriptor such as
// "@daily") and registers the export job.
func NewScheduler(service *Service, spec string, f model.ReportFormat, dir string, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(),
		service: service,
		format:  f,
		dir:     dir,
		timeout: time.Minute,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("parse report schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins running the job in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("report scheduler started", "format", s.format, "dir", s.dir)
}

// Stop halts scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Next returns the next planned run, or the zero time when not started.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	path, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Error("scheduled report failed", "error", err)
		return
	}
	s.logger.Info("scheduled report written", "path", path)
}

// RunOnce exports now and writes the file, returning its path.
func (s *Scheduler) RunOnce(ctx context.Context) (string, error) {
	res, err := s.service.ExportAlerts(ctx, s.format)
	if err != nil {
		return "", err
	}
	if !res.Success {
		return "", fmt.Errorf("export %s: %s", s.format, res.Error)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	path := filepath.Join(s.dir, res.Filename)
	if err := os.WriteFile(path, res.Content, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
