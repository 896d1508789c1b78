// SPDX-License-Identifier: MIT

package dataload

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/recipefeed/internal/cache"
	"github.com/ManuGH/recipefeed/internal/data"
	"github.com/ManuGH/recipefeed/internal/download"
	"github.com/ManuGH/recipefeed/internal/recipe"
	"github.com/ManuGH/recipefeed/internal/worker"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeDownloader struct {
	mu      sync.Mutex
	calls   int
	payload string
	err     error
}

func (f *fakeDownloader) Name() string { return "fake" }

func (f *fakeDownloader) LoadData(_ context.Context, r *recipe.Recipe, params []string, h download.Handler) bool {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		h.OnFailure(r, params, f.err)
		return false
	}
	h.OnSuccess(r, params, data.ForPayload(f.payload))
	return true
}

func (f *fakeDownloader) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type result struct {
	mu     sync.Mutex
	values []*data.Data
	dones  []bool
	errs   []error
	ch     chan struct{}
}

func newResult() *result { return &result{ch: make(chan struct{}, 8)} }

func (res *result) callbacks() recipe.Callbacks {
	return recipe.CallbackFuncs{
		Cooked: func(_ *recipe.Recipe, out any, done bool) {
			res.mu.Lock()
			res.values = append(res.values, out.(*data.Data))
			res.dones = append(res.dones, done)
			res.mu.Unlock()
			res.ch <- struct{}{}
		},
		Error: func(_ *recipe.Recipe, err error) {
			res.mu.Lock()
			res.errs = append(res.errs, err)
			res.mu.Unlock()
			res.ch <- struct{}{}
		},
	}
}

func (res *result) wait(t *testing.T) {
	t.Helper()
	select {
	case <-res.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
}

func config(m map[string]any) *recipe.Recipe {
	base := map[string]any{KeyDownloaderImpl: "fake"}
	for k, v := range m {
		base[k] = v
	}
	return recipe.FromMap("dataloader", base)
}

func newManager(t *testing.T, cfg *recipe.Recipe, d download.Downloader) *Manager {
	t.Helper()
	m, err := NewManager(cfg, Deps{Downloader: d})
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func loadRecipe(extra map[string]any) *recipe.Recipe {
	m := map[string]any{"data_file_path": "feed.json", KeyTask: TaskLoadData}
	for k, v := range extra {
		m[k] = v
	}
	return recipe.FromMap("load", m)
}

func TestManager_CacheMissThenHit(t *testing.T) {
	d := &fakeDownloader{payload: `{"a":1}`}
	m := newManager(t, config(map[string]any{KeyCacheEnabled: true}), d)

	first := newResult()
	require.True(t, m.Cook(context.Background(), loadRecipe(nil), nil, []string{"p"}, first.callbacks()))
	require.Len(t, first.values, 1)
	assert.True(t, first.dones[0])
	assert.Equal(t, 1, d.Calls())
	assert.Equal(t, 1, m.Cache().Len())

	second := newResult()
	m.Cook(context.Background(), loadRecipe(nil), nil, []string{"p"}, second.callbacks())
	require.Len(t, second.values, 1)
	assert.Equal(t, 1, d.Calls(), "second request must be served from cache")
	assert.True(t, first.values[0].Equal(second.values[0]))

	third := newResult()
	m.Cook(context.Background(), loadRecipe(nil), nil, []string{"other"}, third.callbacks())
	assert.Equal(t, 2, d.Calls(), "different params use a different key")
}

func TestManager_CacheDisabledAlwaysDownloads(t *testing.T) {
	d := &fakeDownloader{payload: "x"}
	m := newManager(t, config(nil), d)

	for i := 0; i < 2; i++ {
		res := newResult()
		m.Cook(context.Background(), loadRecipe(nil), nil, nil, res.callbacks())
		require.Len(t, res.values, 1)
	}
	assert.Equal(t, 2, d.Calls())
	assert.Equal(t, 0, m.Cache().Len())
}

func TestManager_DownloadTaskSkipsCache(t *testing.T) {
	d := &fakeDownloader{payload: "x"}
	m := newManager(t, config(map[string]any{KeyCacheEnabled: "true"}), d)

	m.Cook(context.Background(), loadRecipe(nil), nil, nil, newResult().callbacks())
	m.Cook(context.Background(), loadRecipe(map[string]any{KeyTask: TaskDownloadData}), nil, nil, newResult().callbacks())
	assert.Equal(t, 2, d.Calls())
}

func TestManager_SourceFailure(t *testing.T) {
	boom := errors.New("offline")
	m := newManager(t, config(map[string]any{KeyCacheEnabled: true}), &fakeDownloader{err: boom})

	res := newResult()
	m.Cook(context.Background(), loadRecipe(nil), nil, nil, res.callbacks())
	require.Len(t, res.errs, 1)
	assert.ErrorIs(t, res.errs[0], boom)
	assert.Empty(t, res.values)
	assert.Equal(t, 0, m.Cache().Len())
}

func TestManager_ExpiredEntryRefetches(t *testing.T) {
	mem := cache.NewMemoryCache(0, 0)
	d := &fakeDownloader{payload: "x"}
	m, err := NewManager(config(map[string]any{KeyCacheEnabled: true, KeyCacheTTL: 1}), Deps{Downloader: d, Cache: mem})
	require.NoError(t, err)
	defer m.Close()

	m.Cook(context.Background(), loadRecipe(nil), nil, nil, newResult().callbacks())
	m.Cook(context.Background(), loadRecipe(nil), nil, nil, newResult().callbacks())
	require.Equal(t, 1, d.Calls())

	time.Sleep(1100 * time.Millisecond)
	m.Cook(context.Background(), loadRecipe(nil), nil, nil, newResult().callbacks())
	assert.Equal(t, 2, d.Calls())
}

func TestManager_Async(t *testing.T) {
	d := &fakeDownloader{payload: "async"}
	m := newManager(t, config(nil), d)

	res := newResult()
	require.True(t, m.Cook(context.Background(), loadRecipe(map[string]any{KeyTaskType: "ASYNC"}), nil, nil, res.callbacks()))
	res.wait(t)
	res.mu.Lock()
	defer res.mu.Unlock()
	require.Len(t, res.values, 1)
	assert.Equal(t, "async", res.values[0].Payload())
}

// gatedDownloader reports every start and holds each load until release
// is closed.
type gatedDownloader struct {
	started chan struct{}
	release chan struct{}
}

func (g *gatedDownloader) Name() string { return "gated" }

func (g *gatedDownloader) LoadData(_ context.Context, r *recipe.Recipe, params []string, h download.Handler) bool {
	g.started <- struct{}{}
	<-g.release
	h.OnSuccess(r, params, data.ForPayload("late"))
	return true
}

func TestManager_CancelAllSuppressesDelivery(t *testing.T) {
	const tasks = 5
	d := &gatedDownloader{started: make(chan struct{}, tasks), release: make(chan struct{})}
	pool := worker.NewPool(2)
	t.Cleanup(pool.Close)
	m, err := NewManager(config(nil), Deps{Downloader: d, Pool: pool})
	require.NoError(t, err)
	t.Cleanup(m.Close)

	res := newResult()
	for i := 0; i < tasks; i++ {
		require.True(t, m.Cook(context.Background(), loadRecipe(map[string]any{KeyTaskType: TaskTypeAsync}), nil, nil, res.callbacks()))
	}
	// Two tasks run on the pool, the rest wait for a slot.
	<-d.started
	<-d.started
	assert.Equal(t, tasks, m.InFlight())

	require.True(t, m.Cook(context.Background(), recipe.FromMap("cancel", map[string]any{KeyTask: TaskCancelAll}), nil, nil, newResult().callbacks()))
	assert.Equal(t, 0, m.InFlight())
	close(d.release)
	pool.Wait()

	assert.Len(t, d.started, 0, "queued tasks must not start after cancellation")
	select {
	case <-res.ch:
		t.Fatal("cancelled task must not deliver")
	case <-time.After(100 * time.Millisecond):
	}
	res.mu.Lock()
	defer res.mu.Unlock()
	assert.Empty(t, res.values)
	assert.Empty(t, res.errs)
}

func TestManager_Stream(t *testing.T) {
	m := newManager(t, config(nil), &fakeDownloader{payload: "streamed"})

	values, err := recipe.Collect(m.Stream(context.Background(), loadRecipe(nil), nil, nil))
	require.NoError(t, err)
	assert.Equal(t, []any{"streamed"}, values)

	boom := errors.New("down")
	m2 := newManager(t, config(nil), &fakeDownloader{err: boom})
	_, err = recipe.Collect(m2.Stream(context.Background(), loadRecipe(nil), nil, nil))
	assert.ErrorIs(t, err, boom)
}

func TestManager_FromRegistry(t *testing.T) {
	assets := fstest.MapFS{
		"configurations/basic_file_downloader_config.json": {Data: []byte(`{}`)},
		"feed.json": {Data: []byte(`[1,2,3]`)},
	}
	m, err := NewManager(config(map[string]any{KeyDownloaderImpl: download.NameFileDownloader}), Deps{
		Registry: download.NewDefaultRegistry(),
		Env:      download.Env{Assets: assets},
	})
	require.NoError(t, err)
	defer m.Close()

	res := newResult()
	m.Cook(context.Background(), loadRecipe(nil), nil, nil, res.callbacks())
	require.Len(t, res.values, 1)
	assert.Equal(t, "[1,2,3]", res.values[0].Payload())
}

func TestNewManager_InvalidConfig(t *testing.T) {
	_, err := NewManager(recipe.FromMap("empty", nil), Deps{Downloader: &fakeDownloader{}})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewManager(config(map[string]any{KeyCacheSize: "lots"}), Deps{Downloader: &fakeDownloader{}})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewManager(config(nil), Deps{Registry: download.NewDefaultRegistry()})
	assert.ErrorIs(t, err, download.ErrDownloaderInit)
}

type listener struct {
	mu    sync.Mutex
	count int
	last  *data.Data
}

func (l *listener) OnUpdate(d *data.Data) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.count++
	l.last = d
}

func (l *listener) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

func TestManager_UpdateListeners(t *testing.T) {
	m := newManager(t, config(map[string]any{KeyCacheEnabled: true}), &fakeDownloader{payload: "x"})
	a, b := &listener{}, &listener{}

	m.RegisterUpdateListener(a)
	m.RegisterUpdateListener(b)
	assert.True(t, m.IsUpdateListenerRegistered(a))
	m.DeregisterUpdateListener(b)
	assert.False(t, m.IsUpdateListenerRegistered(b))

	m.Cook(context.Background(), loadRecipe(nil), nil, nil, newResult().callbacks())
	require.Equal(t, 1, m.Cache().Len())

	m.updater.tick()
	assert.Equal(t, 0, m.Cache().Len())
	assert.Equal(t, 1, a.Count())
	assert.Equal(t, 0, b.Count())
	assert.Equal(t, "", a.last.Payload())
	assert.True(t, a.last.Complete)
}

func TestUpdater_RunsOnPeriod(t *testing.T) {
	cleared := make(chan struct{}, 4)
	u := newUpdater(10*time.Millisecond, func() {
		select {
		case cleared <- struct{}{}:
		default:
		}
	})
	l := &listener{}
	u.register(l)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		u.run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return l.Count() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestUpdater_DisabledReturnsImmediately(t *testing.T) {
	u := newUpdater(0, func() { t.Fatal("must not clear") })
	u.run(context.Background())
}

func TestManager_StartClose(t *testing.T) {
	m, err := NewManager(config(map[string]any{KeyUpdaterDuration: 3600}), Deps{Downloader: &fakeDownloader{}})
	require.NoError(t, err)
	m.Start(context.Background())
	m.Close()
	m.Close()
}
