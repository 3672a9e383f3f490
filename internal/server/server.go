package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/canchaya/canchaya/pkg/alerts"
	"github.com/canchaya/canchaya/pkg/format"
	"github.com/canchaya/canchaya/pkg/geocode"
	"github.com/canchaya/canchaya/pkg/notify"
	"github.com/canchaya/canchaya/pkg/report"
)

// Deps are the services exposed by the API.
type Deps struct {
	Store         alerts.DefinitionStore
	Evaluator     *alerts.Evaluator
	Notifications *notify.Dispatcher
	Geocoder      *geocode.Client
	Reports       *report.Service
	Hub           *Hub

	Locale         format.Locale
	BatchDelay     time.Duration
	JWTSecret      string
	AllowedOrigins []string
}

// Server provides the CanchaYA HTTP API.
type Server struct {
	router chi.Router
	deps   Deps
	logger *slog.Logger
}

// NewServer creates an API server.
func NewServer(deps Deps, logger *slog.Logger) *Server {
	if deps.BatchDelay < 0 {
		deps.BatchDelay = 0
	}
	s := &Server{
		router: chi.NewRouter(),
		deps:   deps,
		logger: logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)

	origins := s.deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	// Credentials only with an explicit origin list.
	credentials := !slices.Contains(origins, "*")
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: credentials,
		MaxAge:           300,
	}))

	s.router.Get("/healthz", s.handleHealth)
	if s.deps.Hub != nil {
		s.router.Handle("/ws", s.deps.Hub)
	}

	admin := AdminOnly(s.deps.JWTSecret)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", s.listAlerts)
			r.Get("/{id}", s.getAlert)
			r.Group(func(r chi.Router) {
				r.Use(admin)
				r.Post("/", s.createAlert)
				r.Put("/{id}", s.updateAlert)
				r.Delete("/{id}", s.deleteAlert)
				r.Post("/{id}/toggle", s.toggleAlert)
			})
		})

		r.Post("/metrics", s.evaluateMetrics)
		r.Post("/metrics/{metricID}", s.evaluateMetric)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", s.listNotifications)
			r.Post("/", s.createNotification)
			r.Delete("/", s.clearNotifications)
			r.Delete("/{id}", s.dismissNotification)
			r.Post("/{id}/action", s.runNotificationAction)
		})

		r.Route("/geocode", func(r chi.Router) {
			r.Get("/", s.geocode)
			r.Post("/batch", s.geocodeBatch)
			r.Get("/stats", s.geocodeStats)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/alerts", s.exportAlerts)
			r.Get("/history", s.reportHistory)
		})

		r.Get("/format/{kind}", s.formatValue)
	})
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{"status": "ok"}
	if s.deps.Hub != nil {
		resp["ws_clients"] = s.deps.Hub.Clients()
	}
	respondJSON(w, http.StatusOK, resp)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
