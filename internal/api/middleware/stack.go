// SPDX-License-Identifier: MIT

package middleware

import "github.com/go-chi/chi/v5"

// StackConfig configures the HTTP ingress middleware stack.
type StackConfig struct {
	EnableMetrics  bool
	TracingService string // empty disables tracing
	EnableLogging  bool
	// RateLimitPerMinute limits each client IP; zero disables limiting.
	RateLimitPerMinute int
}

// NewRouter constructs a chi router with the middleware stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack applies the middleware stack to r, outermost first.
func ApplyStack(r chi.Router, cfg StackConfig) {
	r.Use(Recoverer)
	r.Use(RequestID)
	if cfg.EnableMetrics {
		r.Use(Metrics())
	}
	if cfg.TracingService != "" {
		r.Use(Tracing(cfg.TracingService))
	}
	if cfg.EnableLogging {
		r.Use(Logging)
	}
	if cfg.RateLimitPerMinute > 0 {
		r.Use(APIRateLimit(cfg.RateLimitPerMinute))
	}
}
