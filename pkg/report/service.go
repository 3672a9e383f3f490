package report

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/canchaya/canchaya/pkg/alerts"
	"github.com/canchaya/canchaya/pkg/model"
)

// Service exports the alert definitions, records each attempt in History and
// announces the outcome as a notification.
type Service struct {
	store    alerts.DefinitionStore
	exporter *Exporter
	history  *History
	pub      alerts.Publisher
	logger   *slog.Logger
}

// NewService wires a report service. pub may be nil.
func NewService(store alerts.DefinitionStore, exporter *Exporter, history *History, pub alerts.Publisher, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		exporter: exporter,
		history:  history,
		pub:      pub,
		logger:   logger,
	}
}

// AlertsTitle is the title of the alert definitions report.
const AlertsTitle = "Alertas configuradas"

// ExportAlerts renders every alert definition as f. Unsupported formats are
// reported through Result, not the error; the error is for storage failures.
func (s *Service) ExportAlerts(ctx context.Context, f model.ReportFormat) (Result, error) {
	defs, err := s.store.List(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list alert definitions: %w", err)
	}
	rows := FromDefinitions(defs)
	res := s.exporter.Export(f, AlertsTitle, rows)

	rec := model.ReportRecord{
		ID:        uuid.NewString(),
		Title:     AlertsTitle,
		Format:    f,
		Filename:  res.Filename,
		Rows:      len(rows),
		Success:   res.Success,
		Error:     res.Error,
		CreatedAt: s.exporter.now().UTC(),
	}
	if err := s.history.Add(ctx, rec); err != nil {
		s.logger.Warn("record report history", "error", err)
	}

	s.announce(ctx, f, res)
	return res, nil
}

func (s *Service) announce(ctx context.Context, f model.ReportFormat, res Result) {
	if s.pub == nil {
		return
	}
	spec := model.NotificationSpec{
		Type:        model.NotificationSuccess,
		Title:       "Reporte generado",
		Description: res.Filename,
	}
	switch {
	case res.Success:
	case f == model.ReportPDF:
		spec = model.NotificationSpec{Type: model.NotificationWarning, Title: "Exportación no disponible", Description: res.Error}
	default:
		spec = model.NotificationSpec{Type: model.NotificationError, Title: "Error al exportar", Description: res.Error}
	}
	s.pub.Notify(ctx, spec)
}

// History returns the report history.
func (s *Service) History(ctx context.Context) ([]model.ReportRecord, error) {
	return s.history.List(ctx)
}
