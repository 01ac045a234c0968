// Package server provides the HTTP server and routing for the dashboard.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/simplainvest/wealthboard/internal/config"
	"github.com/simplainvest/wealthboard/internal/database"
	"github.com/simplainvest/wealthboard/internal/events"
	chartshandlers "github.com/simplainvest/wealthboard/internal/modules/charts/handlers"
	"github.com/simplainvest/wealthboard/internal/modules/dashboard"
	dashboardhandlers "github.com/simplainvest/wealthboard/internal/modules/dashboard/handlers"
	"github.com/simplainvest/wealthboard/internal/scheduler"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Config holds server configuration
type Config struct {
	Log          zerolog.Logger
	CacheDB      *database.DB
	Config       *config.Config
	Dashboard    *dashboard.Service
	EventManager *events.Manager
	Scheduler    *scheduler.Scheduler
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	dashboard      *dashboard.Service
	eventManager   *events.Manager
	systemHandlers *SystemHandlers
	statusMonitor  *StatusMonitor
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	systemHandlers := NewSystemHandlers(cfg.Log, cfg.Config.DataDir, cfg.CacheDB, cfg.Dashboard, cfg.Scheduler)

	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		cfg:            cfg.Config,
		dashboard:      cfg.Dashboard,
		eventManager:   cfg.EventManager,
		systemHandlers: systemHandlers,
	}

	// stale after three missed refreshes
	s.statusMonitor = NewStatusMonitor(cfg.EventManager, cfg.Dashboard, 3*refreshInterval(cfg.Config), cfg.Log)

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func refreshInterval(cfg *config.Config) time.Duration {
	if d, err := scheduler.Interval(cfg.RefreshSchedule); err == nil {
		return d
	}
	return 5 * time.Minute
}

func (s *Server) setupMiddleware(devMode bool) {
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
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Streaming routes stay outside the timeout and compression middleware
		var bus *events.Bus
		if s.eventManager != nil {
			bus = s.eventManager.Bus()
		}
		r.Get("/events/stream", NewEventsStreamHandler(bus, s.log).ServeHTTP)
		r.Get("/events/ws", NewEventsSocketHandler(bus, s.log).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			if !s.cfg.DevMode {
				r.Use(middleware.Compress(5))
			}

			r.Route("/system", func(r chi.Router) {
				r.Get("/status", s.systemHandlers.HandleSystemStatus)
				r.Get("/database/stats", s.systemHandlers.HandleDatabaseStats)
				r.Get("/disk", s.systemHandlers.HandleDiskUsage)
			})

			dashboardhandlers.NewHandler(s.dashboard, s.cfg.RefreshRateLimit, s.cfg.RefreshTimeout(), s.log).RegisterRoutes(r)
			chartshandlers.NewHandler(s.log).RegisterRoutes(r)
		})
	})
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.statusMonitor.Start(time.Minute)

	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	s.statusMonitor.Stop()
	return s.server.Shutdown(ctx)
}

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
