// SPDX-License-Identifier: MIT

// Package daemon runs the feed API server and the background work around
// it until shutdown.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/recipefeed/internal/config"
	xlog "github.com/ManuGH/recipefeed/internal/log"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	// Feed loads run inside the request and may chain several downloads.
	writeTimeout   = 2 * time.Minute
	idleTimeout    = 2 * time.Minute
	maxHeaderBytes = 1 << 20
)

// ShutdownHook is a function that performs cleanup during graceful shutdown.
// Hooks are executed in reverse registration order (LIFO).
type ShutdownHook func(ctx context.Context) error

// Manager manages the server lifecycle: starting, serving and draining.
type Manager interface {
	// Start listens, serves and blocks until ctx is cancelled or the server
	// fails. It shuts down before returning.
	Start(ctx context.Context) error

	// Shutdown gracefully shuts down the server and runs the hooks.
	Shutdown(ctx context.Context) error

	// RegisterShutdownHook registers a function to be called during shutdown
	RegisterShutdownHook(name string, hook ShutdownHook)

	// Addr returns the bound listen address once Start is serving.
	Addr() net.Addr
}

type namedHook struct {
	name string
	hook ShutdownHook
}

type manager struct {
	serverCfg config.ServerConfig
	deps      Deps

	server   *http.Server
	listener net.Listener
	ready    chan struct{}

	shutdownHooks []namedHook

	started  bool
	stopping bool
	mu       sync.Mutex

	logger zerolog.Logger
}

// NewManager creates a new daemon manager with the given configuration and dependencies.
func NewManager(serverCfg config.ServerConfig, deps Deps) (Manager, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	return &manager{
		serverCfg: serverCfg,
		deps:      deps,
		ready:     make(chan struct{}),
		logger:    deps.Logger.With().Str(xlog.FieldComponent, "manager").Logger(),
	}, nil
}

func (m *manager) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("start context is nil")
	}

	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrManagerStarted
	}
	m.started = true
	m.mu.Unlock()

	ln, err := net.Listen("tcp", m.serverCfg.ListenAddr)
	if err != nil {
		m.mu.Lock()
		m.stopping = true
		m.mu.Unlock()
		return fmt.Errorf("listen %s: %w", m.serverCfg.ListenAddr, err)
	}

	m.mu.Lock()
	m.listener = ln
	m.server = &http.Server{
		Handler:           m.deps.APIHandler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
	}
	m.mu.Unlock()
	close(m.ready)

	m.logger.Info().
		Str(xlog.FieldEvent, "api.listening").
		Str("addr", ln.Addr().String()).
		Dur("shutdown_timeout", m.serverCfg.ShutdownTimeout).
		Msg("API server listening")

	errChan := make(chan error, 1)
	go func() {
		if err := m.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error().Err(err).Str(xlog.FieldEvent, "api.server_failed").Msg("API server failed")
			errChan <- fmt.Errorf("API server: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if shutdownErr := m.Shutdown(shutdownCtx); shutdownErr != nil {
			return fmt.Errorf("server error and shutdown failure: %w", errors.Join(err, shutdownErr))
		}
		return err
	case <-ctx.Done():
		m.logger.Info().Str(xlog.FieldEvent, "daemon.shutdown_signal").Msg("shutdown signal received")
		return m.Shutdown(context.WithoutCancel(ctx))
	}
}

func (m *manager) Addr() net.Addr {
	select {
	case <-m.ready:
		return m.listener.Addr()
	default:
		return nil
	}
}

func (m *manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("shutdown context is nil")
	}

	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return ErrManagerNotStarted
	}
	if m.stopping {
		m.mu.Unlock()
		return nil
	}
	m.stopping = true
	hooks := make([]namedHook, len(m.shutdownHooks))
	copy(hooks, m.shutdownHooks)
	m.mu.Unlock()

	timeout := m.serverCfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = config.Defaults().Server.ShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	var errs []error
	if m.server != nil {
		if err := m.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("API server shutdown: %w", err))
			// Handlers that ignore cancellation must not outlive the daemon.
			_ = m.server.Close()
		}
	}

	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		start := time.Now()
		if err := hook.hook(shutdownCtx); err != nil {
			m.logger.Error().
				Err(err).
				Str("hook", hook.name).
				Dur("duration", time.Since(start)).
				Msg("shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", hook.name, err))
			continue
		}
		m.logger.Debug().Str("hook", hook.name).Dur("duration", time.Since(start)).Msg("shutdown hook completed")
	}

	if len(errs) > 0 {
		m.logger.Error().Int("error_count", len(errs)).Msg("shutdown completed with errors")
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	m.logger.Info().Str(xlog.FieldEvent, "daemon.stopped").Msg("daemon manager stopped cleanly")
	return nil
}

func (m *manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownHooks = append(m.shutdownHooks, namedHook{name: name, hook: hook})
}
