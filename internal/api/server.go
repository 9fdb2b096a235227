// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api provides the daemon's HTTP surface: monitoring control,
// status, preferences, history and the live event stream.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/uprightd/internal/api/middleware"
	"github.com/ManuGH/uprightd/internal/config"
	"github.com/ManuGH/uprightd/internal/health"
	"github.com/ManuGH/uprightd/internal/history"
	"github.com/ManuGH/uprightd/internal/log"
	"github.com/ManuGH/uprightd/internal/prefs"
)

// Options wires a Server. All fields are required.
type Options struct {
	Config     func() config.AppConfig
	Controller MonitorController
	Prefs      prefs.Store
	History    history.Store
	Health     *health.Manager
	Version    string
}

// Server owns the HTTP handlers. The listener belongs to the daemon.
type Server struct {
	cfg        func() config.AppConfig
	controller MonitorController
	prefs      prefs.Store
	history    history.Store
	health     *health.Manager
	version    string
	started    time.Time
	logger     zerolog.Logger
}

// NewServer creates a Server from opts.
func NewServer(opts Options) *Server {
	return &Server{
		cfg:        opts.Config,
		controller: opts.Controller,
		prefs:      opts.Prefs,
		history:    opts.History,
		health:     opts.Health,
		version:    opts.Version,
		started:    time.Now(),
		logger:     log.WithComponent("api"),
	}
}

// Handler builds the routing tree with the canonical middleware stack. The
// event stream is mounted outside the request timeout group because it
// lives as long as the client stays connected.
func (s *Server) Handler() http.Handler {
	cfg := s.cfg()

	tracingService := ""
	if cfg.Telemetry.Enabled {
		tracingService = "uprightd-api"
	}

	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        tracingService,
		EnableLogging:         true,
		EnableRateLimit:       true,
		RateLimitPerMin:       cfg.API.RateLimit,
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.API.Timeout > 0 {
				r.Use(chimw.Timeout(cfg.API.Timeout))
			}
			r.Get("/status", s.handleStatus)
			r.Post("/monitor/start", s.handleMonitorStart)
			r.Post("/monitor/stop", s.handleMonitorStop)
			r.Put("/monitor/sensitivity", s.handleSensitivity)
			r.Get("/preferences/sound", s.handleSoundGet)
			r.Put("/preferences/sound", s.handleSoundPut)
			r.Get("/history/alerts", s.handleAlerts)
			r.Get("/history/sessions", s.handleSessions)
		})
		r.Get("/events", s.handleEvents)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.health.ServeHealth(w, r)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.health.ServeReady(w, r)
}
