// SPDX-License-Identifier: MIT

// Package api serves cooked feeds over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/recipefeed/internal/api/middleware"
	"github.com/ManuGH/recipefeed/internal/health"
	"github.com/ManuGH/recipefeed/internal/model"
)

// FeedLoader loads feeds described by the navigator.
type FeedLoader interface {
	FeedCount() int
	RecommendationFeedCount() int
	LoadRoot(ctx context.Context, index int) (*model.Container, error)
	LoadRecommendations(ctx context.Context, index int) ([]string, error)
	Loaded() bool
	ReloadRequired() bool
	SetReloadRequired(bool)
}

// CacheClearer drops cached payloads.
type CacheClearer interface {
	Clear()
	Len() int
}

// Prober answers the liveness and readiness probes.
type Prober interface {
	ServeHealth(w http.ResponseWriter, r *http.Request)
	ServeReady(w http.ResponseWriter, r *http.Request)
}

// Deps are the collaborators the server calls into.
type Deps struct {
	Feeds FeedLoader
	Cache CacheClearer
	// Health defaults to a manager without component checks.
	Health Prober
	// MetricsHandler defaults to the Prometheus registry handler.
	MetricsHandler http.Handler
}

// Config tunes the router.
type Config struct {
	Version            string
	RateLimitPerMinute int
	TracingService     string
}

// Server routes API requests to the feed loader.
type Server struct {
	cfg    Config
	deps   Deps
	router chi.Router
}

// New builds a server and its routes.
func New(cfg Config, deps Deps) *Server {
	if deps.Health == nil {
		deps.Health = health.NewManager(cfg.Version)
	}
	if deps.MetricsHandler == nil {
		deps.MetricsHandler = promhttp.Handler()
	}
	s := &Server{cfg: cfg, deps: deps}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableMetrics:  true,
		TracingService: s.cfg.TracingService,
		EnableLogging:  true,
	})

	r.Get("/healthz", s.deps.Health.ServeHealth)
	r.Get("/readyz", s.deps.Health.ServeReady)
	r.Method(http.MethodGet, "/metrics", s.deps.MetricsHandler)

	r.Route("/api", func(r chi.Router) {
		if s.cfg.RateLimitPerMinute > 0 {
			r.Use(middleware.APIRateLimit(s.cfg.RateLimitPerMinute))
		}
		r.Get("/feeds", s.handleFeeds)
		r.Get("/feeds/{index}", s.handleFeed)
		r.Get("/feeds/{index}/contents", s.handleFeedContents)
		r.Get("/recommendations/{index}", s.handleRecommendations)
		r.Post("/cache/clear", s.handleCacheClear)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) { writeNotFound(w) })
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method_not_allowed"})
	})
	return r
}
