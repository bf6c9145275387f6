// Package server provides the HTTP server and routing for the loss dashboard.
package server

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/lossdash/internal/database"
	"github.com/aristath/lossdash/internal/modules/charts"
	chartshandlers "github.com/aristath/lossdash/internal/modules/charts/handlers"
	"github.com/aristath/lossdash/internal/modules/dashboard"
	dashboardhandlers "github.com/aristath/lossdash/internal/modules/dashboard/handlers"
	"github.com/aristath/lossdash/internal/modules/runs"
	"github.com/aristath/lossdash/pkg/embedded"
)

// RunLister lists stored runs, newest first.
type RunLister interface {
	List(ctx context.Context, limit int) ([]runs.Entry, error)
}

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Port      int
	DevMode   bool
	Dashboard *dashboard.Service
	Charts    *charts.Service
	Runs      RunLister    // optional
	RunsDB    *database.DB // optional, pinged by /health
}

// Server represents the HTTP server
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	port      int
	dashboard *dashboard.Service
	charts    *charts.Service
	runs      RunLister
	runsDB    *database.DB
	page      *template.Template
	started   time.Time
}

// New creates a new HTTP server
func New(cfg Config) (*Server, error) {
	page, err := template.ParseFS(embedded.Files, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse dashboard template: %w", err)
	}

	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		port:      cfg.Port,
		dashboard: cfg.Dashboard,
		charts:    cfg.Charts,
		runs:      cfg.Runs,
		runsDB:    cfg.RunsDB,
		page:      page,
		started:   time.Now(),
	}

	s.setupMiddleware()
	if err := s.setupRoutes(cfg.DevMode); err != nil {
		return nil, err
	}

	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// No write timeout: runs wait on the simulator and the stream is long-lived.
		IdleTimeout: 60 * time.Second,
	}

	return s, nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware shared by every route
func (s *Server) setupMiddleware() {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(devMode bool) error {
	simulationHandler := dashboardhandlers.NewHandler(s.dashboard, s.log)
	chartsHandler := chartshandlers.NewHandler(s.charts, s.log)

	staticFS, err := fs.Sub(embedded.Files, "static")
	if err != nil {
		return fmt.Errorf("failed to open embedded static files: %w", err)
	}

	// Runs block on the simulator for as long as it takes and the stream
	// stays open, so neither sits behind the timeout or compression.
	s.router.Post("/run", s.handleRunForm)
	s.router.Route("/api", func(r chi.Router) {
		simulationHandler.RegisterStreamRoutes(r)
		r.Post("/simulation/run", simulationHandler.HandleRun)

		r.Group(func(r chi.Router) {
			s.useRequestLimits(r, devMode)
			r.Get("/simulation/state", simulationHandler.HandleGetState)
			chartsHandler.RegisterRoutes(r)
			r.Get("/runs", s.handleListRuns)
		})
	})

	s.router.Group(func(r chi.Router) {
		s.useRequestLimits(r, devMode)
		r.Get("/", s.handleDashboard)
		r.Get("/health", s.handleHealth)
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	})

	return nil
}

func (s *Server) useRequestLimits(r chi.Router, devMode bool) {
	r.Use(middleware.Timeout(60 * time.Second))

	// Compress responses
	if !devMode {
		r.Use(middleware.Compress(5))
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
