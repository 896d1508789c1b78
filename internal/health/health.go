// SPDX-License-Identifier: MIT

// Package health reports liveness and readiness of the feed service.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	xlog "github.com/ManuGH/recipefeed/internal/log"
)

// DefaultCheckTimeout bounds a single probe run.
const DefaultCheckTimeout = 2 * time.Second

// Status is the health of a component or of the whole service.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult is the outcome of one component check.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Uptime    int64                  `json:"uptimeSeconds"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// ReadinessResponse is the readiness payload.
type ReadinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker checks one component.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager runs registered checkers for the liveness and readiness probes.
type Manager struct {
	version string
	started time.Time
	timeout time.Duration

	mu       sync.RWMutex
	checkers []Checker
}

// NewManager creates a manager reporting version.
func NewManager(version string) *Manager {
	return &Manager{
		version: version,
		started: time.Now(),
		timeout: DefaultCheckTimeout,
	}
}

// RegisterChecker adds a checker. Checkers run in registration order.
func (m *Manager) RegisterChecker(c Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, c)
}

// Health is the liveness probe. The process is alive whenever it can answer;
// component checks only run, and only shape Status, when verbose is set.
func (m *Manager) Health(ctx context.Context, verbose bool) HealthResponse {
	resp := HealthResponse{
		Status:    StatusHealthy,
		Version:   m.version,
		Uptime:    int64(time.Since(m.started).Seconds()),
		Timestamp: time.Now().UTC(),
	}
	if verbose {
		resp.Checks, resp.Status = m.run(ctx)
	}
	return resp
}

// Ready is the readiness probe. Any unhealthy component makes the service
// not ready; degraded components do not.
func (m *Manager) Ready(ctx context.Context) ReadinessResponse {
	checks, status := m.run(ctx)
	return ReadinessResponse{
		Ready:     status != StatusUnhealthy,
		Status:    status,
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	}
}

func (m *Manager) run(ctx context.Context) (map[string]CheckResult, Status) {
	m.mu.RLock()
	checkers := append([]Checker(nil), m.checkers...)
	m.mu.RUnlock()
	if len(checkers) == 0 {
		return nil, StatusHealthy
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	status := StatusHealthy
	results := make(map[string]CheckResult, len(checkers))
	for _, c := range checkers {
		r := c.Check(ctx)
		results[c.Name()] = r
		status = worst(status, r.Status)
	}
	return results, status
}

func worst(a, b Status) Status {
	rank := func(s Status) int {
		switch s {
		case StatusUnhealthy:
			return 2
		case StatusDegraded:
			return 1
		}
		return 0
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}

// ServeHealth answers liveness requests. It always returns 200;
// ?verbose=true adds component results.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	verbose := r.URL.Query().Get("verbose") == "true"
	resp := m.Health(r.Context(), verbose)
	writeJSON(r, w, http.StatusOK, resp, "health")
}

// ServeReady answers readiness requests with 503 while not ready.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	resp := m.Ready(r.Context())
	code := http.StatusOK
	if !resp.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(r, w, code, resp, "readiness")
}

func writeJSON(r *http.Request, w http.ResponseWriter, code int, v any, probe string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := xlog.WithComponentFromContext(r.Context(), "health")
		logger.Error().Err(err).Str(xlog.FieldEvent, probe+".encode_failed").Msg("failed to encode probe response")
	}
}
