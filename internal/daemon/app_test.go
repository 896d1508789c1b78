// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/recipefeed/internal/config"
	"github.com/ManuGH/recipefeed/internal/log"
)

// stubManager blocks in Start until ctx ends, or fails immediately.
type stubManager struct {
	startErr error
	started  chan struct{}
}

func (m *stubManager) Start(ctx context.Context) error {
	close(m.started)
	if m.startErr != nil {
		return m.startErr
	}
	<-ctx.Done()
	return nil
}

func (m *stubManager) Shutdown(context.Context) error            { return nil }
func (m *stubManager) RegisterShutdownHook(string, ShutdownHook) {}
func (m *stubManager) Addr() net.Addr                            { return nil }

type starterFunc func(ctx context.Context)

func (f starterFunc) Start(ctx context.Context) { f(ctx) }

type watcherFunc func(ctx context.Context) error

func (f watcherFunc) Watch(ctx context.Context) error { return f(ctx) }

func TestApp_MissingManager(t *testing.T) {
	assert.ErrorIs(t, NewApp(log.WithComponent("test"), nil, AppOptions{}).Run(context.Background()), ErrMissingManager)
}

func TestApp_RunsBackgroundAndPreload(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var started, watched, preloaded atomic.Bool
	mgr := &stubManager{started: make(chan struct{})}
	app := NewApp(log.WithComponent("test"), mgr, AppOptions{
		Background: []Starter{starterFunc(func(context.Context) { started.Store(true) })},
		Watchers: []Watcher{
			watcherFunc(func(context.Context) error { return errors.New("no such dir") }),
			watcherFunc(func(context.Context) error { watched.Store(true); return nil }),
		},
		Preload: func(context.Context) error {
			preloaded.Store(true)
			return errors.New("feed unavailable")
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	<-mgr.started
	require.Eventually(t, preloaded.Load, time.Second, 10*time.Millisecond)
	assert.True(t, started.Load())
	assert.True(t, watched.Load(), "a failing watcher does not stop the others")

	cancel()
	assert.NoError(t, <-done, "preload errors are not fatal")
}

func TestApp_ManagerFailureEndsRun(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	boom := errors.New("listen failed")
	app := NewApp(log.WithComponent("test"), &stubManager{startErr: boom, started: make(chan struct{})}, AppOptions{
		Preload: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})
	assert.ErrorIs(t, app.Run(context.Background()), boom)
}

func TestApp_AppliesReloadedConfig(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	path := filepath.Join(dir, "recipefeed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("assetsDir: "+dir+"\n"), 0o600))

	loader := config.NewLoader(path, "test")
	cfg, err := loader.Load()
	require.NoError(t, err)
	holder := config.NewHolder(cfg, loader)

	applied := make(chan config.AppConfig, 1)
	mgr := &stubManager{started: make(chan struct{})}
	app := NewApp(log.WithComponent("test"), mgr, AppOptions{
		ConfigHolder: holder,
		OnConfig: func(c config.AppConfig) {
			select {
			case applied <- c:
			default:
			}
		},
	})

	// Written before the watcher starts so only the explicit reload sees it.
	require.NoError(t, os.WriteFile(path, []byte("assetsDir: "+dir+"\nlogLevel: debug\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	<-mgr.started

	require.NoError(t, holder.Reload(ctx))

	select {
	case c := <-applied:
		assert.Equal(t, "debug", c.LogLevel)
	case <-time.After(5 * time.Second):
		t.Fatal("reloaded config was not applied")
	}

	cancel()
	require.NoError(t, <-done)
}
