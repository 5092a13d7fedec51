package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/domain"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, deps Dependencies) *Server {
	handler := NewHandler(deps)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware(cfg.AllowedOrigins)) // CORS for the dashboard
	router.Use(RecoverMiddleware)                  // Recover from panics
	router.Use(TracingMiddleware)                  // OpenTelemetry tracing
	router.Use(LoggingMiddleware)                  // Request logging
	router.Use(middleware.RealIP)                  // Extract real IP
	router.Use(middleware.Compress(5))             // Gzip compression

	// Health endpoints
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// Knowledge base
	router.Get("/symptoms", handler.ListSymptoms)
	router.Get("/rules", handler.ListRules)
	router.Get("/rules/{id}", handler.GetRule)
	router.Get("/knowledge/export", handler.ExportKnowledge)

	// Diagnosis
	router.Post("/diagnose", handler.Diagnose)

	// Telemetry
	router.Get("/alerts/rules", handler.ListAlertRules)
	router.Route("/motors", func(r chi.Router) {
		r.Get("/", handler.ListMotors)
		r.Post("/{motorID}/readings", handler.IngestReading)
		r.Get("/{motorID}/telemetry", handler.GetTelemetry)
		r.Get("/{motorID}/prediction", handler.GetPrediction)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
