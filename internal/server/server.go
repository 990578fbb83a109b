// Package server provides the Engine Manager's thin HTTP control surface:
// health, kill switch, and registry-listing endpoints only. There is no UI,
// dashboard, or template rendering here — operational tooling is expected to
// call this API directly, following the teacher's router/middleware
// composition (chi.NewRouter, cors.Handler, a route group per concern).
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/manager"
)

// Config holds everything New needs to build the server.
type Config struct {
	Log     zerolog.Logger
	Manager *manager.Manager
	Addr    string
	DevMode bool
}

// Server is the Engine Manager's HTTP control surface.
type Server struct {
	router *chi.Mux
	http   *http.Server
	log    zerolog.Logger
	mgr    *manager.Manager
}

// New builds a Server; call ListenAndServe to start it.
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "control_server").Logger(),
		mgr:    cfg.Manager,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(30 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
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
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/strategies", func(r chi.Router) {
			r.Get("/", s.handleListStrategies)
			r.Get("/{id}/status", s.handleStrategyStatus)
			r.Get("/{id}/stats", s.handleStrategyStats)
		})

		r.Route("/backtests", func(r chi.Router) {
			r.Get("/", s.handleListBacktests)
			r.Get("/{id}/status", s.handleBacktestStatus)
			r.Get("/{id}/progress", s.handleBacktestProgress)
		})

		r.Route("/kill-switch", func(r chi.Router) {
			r.Get("/", s.handleKillSwitchStatus)
			r.Post("/activate", s.handleKillSwitchActivate)
			r.Post("/deactivate", s.handleKillSwitchDeactivate)
		})
	})
}

// ListenAndServe starts serving; it blocks until the server stops or errors.
func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("control server listening")
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
