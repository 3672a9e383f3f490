package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/canchaya/canchaya/pkg/alerts"
	"github.com/canchaya/canchaya/pkg/format"
	"github.com/canchaya/canchaya/pkg/model"
)

const (
	requestTimeout = 10 * time.Second
	maxBatchSize   = 50
	maxBodyBytes   = 1 << 20
)

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// alertRequest is the body accepted when creating or replacing an alert.
// Active defaults to true when omitted.
type alertRequest struct {
	model.AlertDefinition
	Active *bool `json:"active"`
}

func (req alertRequest) definition() model.AlertDefinition {
	def := req.AlertDefinition
	def.Active = req.Active == nil || *req.Active
	return def
}

func (s *Server) listAlerts(w http.ResponseWriter, r *http.Request) {
	defs, err := s.deps.Store.List(r.Context())
	if err != nil {
		s.logger.Error("list alerts", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if defs == nil {
		defs = []model.AlertDefinition{}
	}
	respondJSON(w, http.StatusOK, defs)
}

func (s *Server) getAlert(w http.ResponseWriter, r *http.Request) {
	def, err := s.deps.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, "get alert", err)
		return
	}
	respondJSON(w, http.StatusOK, def)
}

func (s *Server) createAlert(w http.ResponseWriter, r *http.Request) {
	var req alertRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.ID = ""
	req.LastTriggered = nil

	def, err := model.NewAlertDefinition(req.definition())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.deps.Store.Save(r.Context(), def); err != nil {
		s.storeError(w, "save alert", err)
		return
	}
	s.logger.Info("alert created", "id", def.ID, "metric", def.MetricID)
	respondJSON(w, http.StatusCreated, def)
}

func (s *Server) updateAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	existing, err := s.deps.Store.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, "get alert", err)
		return
	}

	var req alertRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Active == nil {
		active := existing.Active
		req.Active = &active
	}

	def := req.definition()
	def.ID = existing.ID
	def.CreatedAt = existing.CreatedAt
	def.LastTriggered = existing.LastTriggered
	if err := def.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.deps.Store.Save(ctx, &def); err != nil {
		s.storeError(w, "save alert", err)
		return
	}
	respondJSON(w, http.StatusOK, def)
}

func (s *Server) deleteAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Store.Delete(r.Context(), id); err != nil {
		s.storeError(w, "delete alert", err)
		return
	}
	s.logger.Info("alert deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) toggleAlert(w http.ResponseWriter, r *http.Request) {
	def, err := s.deps.Store.Toggle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, "toggle alert", err)
		return
	}
	respondJSON(w, http.StatusOK, def)
}

func (s *Server) storeError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, alerts.ErrNotFound) {
		respondError(w, http.StatusNotFound, "alert not found")
		return
	}
	s.logger.Error(op, "error", err)
	respondError(w, http.StatusInternalServerError, "internal error")
}

type evaluationResponse struct {
	Triggers []model.AlertTrigger `json:"triggers"`
}

func (s *Server) evaluateMetric(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value *float64 `json:"value"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Value == nil {
		respondError(w, http.StatusBadRequest, "value is required")
		return
	}

	triggers, err := s.deps.Evaluator.Evaluate(r.Context(), chi.URLParam(r, "metricID"), *body.Value)
	s.respondEvaluation(w, triggers, err)
}

func (s *Server) evaluateMetrics(w http.ResponseWriter, r *http.Request) {
	var values map[string]float64
	if err := decodeBody(w, r, &values); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	triggers, err := s.deps.Evaluator.EvaluateAll(r.Context(), values)
	s.respondEvaluation(w, triggers, err)
}

func (s *Server) respondEvaluation(w http.ResponseWriter, triggers []model.AlertTrigger, err error) {
	if err != nil {
		s.logger.Error("evaluate metrics", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if triggers == nil {
		triggers = []model.AlertTrigger{}
	}
	respondJSON(w, http.StatusOK, evaluationResponse{Triggers: triggers})
}

type notificationRequest struct {
	Type        model.NotificationType `json:"type"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	DurationMS  int64                  `json:"duration_ms"`
}

func (s *Server) listNotifications(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.deps.Notifications.History())
}

func (s *Server) createNotification(w http.ResponseWriter, r *http.Request) {
	var req notificationRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}
	switch req.Type {
	case "", model.NotificationSuccess, model.NotificationError, model.NotificationWarning,
		model.NotificationInfo, model.NotificationLoading:
	default:
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown notification type %q", req.Type))
		return
	}

	id := s.deps.Notifications.Notify(r.Context(), model.NotificationSpec{
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		Duration:    time.Duration(req.DurationMS) * time.Millisecond,
	})
	respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) dismissNotification(w http.ResponseWriter, r *http.Request) {
	s.deps.Notifications.Dismiss(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clearNotifications(w http.ResponseWriter, _ *http.Request) {
	s.deps.Notifications.ClearAll()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) runNotificationAction(w http.ResponseWriter, r *http.Request) {
	if !s.deps.Notifications.RunAction(chi.URLParam(r, "id")) {
		respondError(w, http.StatusNotFound, "no action for notification")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) geocode(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if address == "" {
		respondError(w, http.StatusBadRequest, "address is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	res := s.deps.Geocoder.Geocode(ctx, address)
	if res == nil {
		respondError(w, http.StatusNotFound, "address not found")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

type batchResponse struct {
	Results []*model.GeocodeResult `json:"results"`
	Error   string                 `json:"error,omitempty"`
}

func (s *Server) geocodeBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Addresses []string `json:"addresses"`
		DelayMS   *int64   `json:"delay_ms"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Addresses) > maxBatchSize {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("at most %d addresses per batch", maxBatchSize))
		return
	}

	delay := s.deps.BatchDelay
	if req.DelayMS != nil && *req.DelayMS >= 0 {
		delay = time.Duration(*req.DelayMS) * time.Millisecond
	}

	results, err := s.deps.Geocoder.GeocodeBatch(r.Context(), req.Addresses, delay)
	resp := batchResponse{Results: results}
	if resp.Results == nil {
		resp.Results = []*model.GeocodeResult{}
	}
	if err != nil {
		s.logger.Warn("geocode batch interrupted", "resolved", len(results), "error", err)
		resp.Error = err.Error()
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) geocodeStats(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.deps.Geocoder.Stats())
}

func (s *Server) exportAlerts(w http.ResponseWriter, r *http.Request) {
	f := model.ReportFormat(strings.ToLower(r.URL.Query().Get("format")))
	if f == "" {
		f = model.ReportCSV
	}

	res, err := s.deps.Reports.ExportAlerts(r.Context(), f)
	if err != nil {
		s.logger.Error("export alerts", "format", f, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !res.Success {
		status := http.StatusBadRequest
		if f == model.ReportPDF {
			status = http.StatusNotImplemented
		}
		respondJSON(w, status, res)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Content)))
	w.WriteHeader(http.StatusOK)
	w.Write(res.Content)
}

func (s *Server) reportHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.deps.Reports.History(r.Context())
	if err != nil {
		s.logger.Error("report history", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if records == nil {
		records = []model.ReportRecord{}
	}
	respondJSON(w, http.StatusOK, records)
}

func (s *Server) formatValue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	loc := s.deps.Locale
	if code := q.Get("locale"); code != "" {
		loc = format.LookupLocale(code)
	}

	float := func(name string) (float64, bool) {
		v, err := strconv.ParseFloat(q.Get(name), 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
			return 0, false
		}
		return v, true
	}

	var out string
	switch kind := chi.URLParam(r, "kind"); kind {
	case "price":
		v, ok := float("value")
		if !ok {
			return
		}
		out = format.PriceFormatter{Locale: loc}.Format(v)
	case "compact":
		v, ok := float("value")
		if !ok {
			return
		}
		out = format.CompactPriceFormatter{Locale: loc}.Format(v)
	case "number":
		v, ok := float("value")
		if !ok {
			return
		}
		decimals, _ := strconv.Atoi(q.Get("decimals"))
		out = format.NumberFormatter{Locale: loc, Decimals: decimals}.Format(v)
	case "rating":
		v, ok := float("value")
		if !ok {
			return
		}
		f := format.RatingFormatter{Locale: loc}
		if q.Get("stars") == "true" {
			out = f.StarString(v)
		} else {
			out = f.Format(v)
		}
	case "date":
		f := format.DateFormatter{Style: format.ParseDateStyle(q.Get("style")), Locale: loc}
		out = f.FormatString(q.Get("value"))
	case "coords":
		lat, ok := float("lat")
		if !ok {
			return
		}
		lon, ok := float("lon")
		if !ok {
			return
		}
		if q.Get("hemisphere") == "true" {
			out = format.CoordinateFormatter{}.FormatHemisphere(lat, lon)
		} else {
			precision, _ := strconv.Atoi(q.Get("precision"))
			out = format.CoordinateFormatter{Precision: precision}.Format(lat, lon)
		}
	default:
		respondError(w, http.StatusNotFound, fmt.Sprintf("unknown format %q", kind))
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"formatted": out})
}
