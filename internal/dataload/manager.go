// SPDX-License-Identifier: MIT

// Package dataload is the façade that serves data-load recipes from the
// cache or from a downloader, optionally on the worker pool.
package dataload

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/recipefeed/internal/cache"
	"github.com/ManuGH/recipefeed/internal/data"
	"github.com/ManuGH/recipefeed/internal/download"
	xlog "github.com/ManuGH/recipefeed/internal/log"
	"github.com/ManuGH/recipefeed/internal/metrics"
	"github.com/ManuGH/recipefeed/internal/recipe"
	"github.com/ManuGH/recipefeed/internal/telemetry"
	"github.com/ManuGH/recipefeed/internal/worker"
)

// CookerName identifies the data load manager.
const CookerName = "DataLoadManager"

// Configuration keys.
const (
	KeyDownloaderImpl  = "data_downloader.impl"
	KeyCacheEnabled    = "is_cache_manager_enabled"
	KeyCacheSize       = "cache_size"
	KeyCacheTTL        = "cache_ttl"
	KeyUpdaterDuration = "data_updater.duration"
)

// Recipe keys.
const (
	KeyTask          = "task"
	TaskLoadData     = "load_data"
	TaskDownloadData = "download_data"
	TaskCancelAll    = "cancel_all"
	KeyTaskType      = "task_type"
	TaskTypeAsync    = "async"
)

// ErrInvalidConfig is returned for a configuration that fails validation.
var ErrInvalidConfig = errors.New("invalid data load manager config")

//go:embed config.schema.json
var configSchemaDoc string

var configSchema = recipe.MustCompileSchema("dataload-config", configSchemaDoc)

// Deps are the collaborators of a Manager. Cache and Pool are optional; a
// Downloader overrides the registry lookup.
type Deps struct {
	Registry   *download.Registry
	Env        download.Env
	Downloader download.Downloader
	Cache      cache.Cache
	Pool       *worker.Pool
}

// Manager cooks data-load recipes.
type Manager struct {
	downloader   download.Downloader
	adapter      *CacheAdapter
	cacheEnabled bool
	ownCache     *cache.MemoryCache

	pool    *worker.Pool
	ownPool bool
	tracker *worker.Tracker
	updater *updater

	stop   context.CancelFunc
	wg     sync.WaitGroup
	closed sync.Once

	logger zerolog.Logger
	tracer trace.Tracer
}

var _ recipe.Cooker = (*Manager)(nil)

// ValidateConfig checks a manager configuration against its schema.
func ValidateConfig(config *recipe.Recipe) error {
	if config == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if err := configSchema.Validate(config); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// NewManager builds a manager from config.
func NewManager(config *recipe.Recipe, deps Deps) (*Manager, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	m := &Manager{
		cacheEnabled: config.Bool(KeyCacheEnabled),
		pool:         deps.Pool,
		logger:       xlog.WithComponent("dataload"),
		tracer:       telemetry.Tracer("recipefeed.dataload"),
	}

	m.downloader = deps.Downloader
	if m.downloader == nil {
		if deps.Registry == nil {
			return nil, fmt.Errorf("%w: no downloader registry", ErrInvalidConfig)
		}
		d, err := deps.Registry.NewDownloader(config.String(KeyDownloaderImpl), deps.Env)
		if err != nil {
			return nil, err
		}
		m.downloader = d
	}

	if m.pool == nil {
		m.pool = worker.NewPool(0)
		m.ownPool = true
	}

	c := deps.Cache
	if c == nil {
		if m.cacheEnabled {
			m.ownCache = cache.NewMemoryCache(time.Minute, config.Int(KeyCacheSize))
			c = m.ownCache
		} else {
			c = cache.NewNoOpCache()
		}
	}
	ttl := time.Duration(config.Int(KeyCacheTTL)) * time.Second
	m.adapter = NewCacheAdapter(c, ttl, m.pool)

	m.tracker = worker.NewTracker(func(n int) { metrics.SetAsyncInflight(CookerName, n) })
	m.updater = newUpdater(time.Duration(config.Int(KeyUpdaterDuration))*time.Second, m.adapter.Clear)

	m.logger.Info().
		Str("downloader", m.downloader.Name()).
		Bool("cache", m.cacheEnabled).
		Dur("cache_ttl", ttl).
		Dur("update_period", m.updater.period).
		Msg("data load manager ready")
	return m, nil
}

// Name implements recipe.Cooker.
func (*Manager) Name() string { return CookerName }

// Cache returns the cache adapter.
func (m *Manager) Cache() *CacheAdapter { return m.adapter }

// InFlight returns the number of tracked asynchronous requests.
func (m *Manager) InFlight() int { return m.tracker.Len() }

// RegisterUpdateListener adds l to the updater's notification list.
func (m *Manager) RegisterUpdateListener(l UpdateListener) { m.updater.register(l) }

// DeregisterUpdateListener removes l.
func (m *Manager) DeregisterUpdateListener(l UpdateListener) { m.updater.deregister(l) }

// IsUpdateListenerRegistered reports whether l is registered.
func (m *Manager) IsUpdateListenerRegistered(l UpdateListener) bool {
	return m.updater.registered(l)
}

// Start launches the periodic cache updater. It returns immediately; Close
// stops the updater.
func (m *Manager) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.stop = cancel
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.updater.run(ctx)
	}()
}

// CancelAll cancels every tracked asynchronous request and returns how many
// were cancelled.
func (m *Manager) CancelAll() int {
	n := m.tracker.CancelAll()
	if n > 0 {
		m.logger.Info().Int("count", n).Str(xlog.FieldEvent, "dataload.cancel_all").Msg("cancelled data load tasks")
	}
	return n
}

// Close stops the updater, cancels outstanding requests and releases any
// resources the manager created itself.
func (m *Manager) Close() {
	m.closed.Do(func() {
		if m.stop != nil {
			m.stop()
		}
		m.wg.Wait()
		m.CancelAll()
		if m.ownPool {
			m.pool.Close()
		}
		if m.ownCache != nil {
			m.ownCache.Stop()
		}
	})
}

// Cook implements recipe.Cooker. The delivered output is a *data.Data and
// done mirrors its Complete flag. A cancel_all recipe cancels outstanding
// asynchronous requests and delivers nothing.
func (m *Manager) Cook(ctx context.Context, r *recipe.Recipe, _ any, params []string, cb recipe.Callbacks) bool {
	ctx, span := m.tracer.Start(ctx, "dataload.Cook", trace.WithAttributes(
		telemetry.RecipeAttributes(r.Name(), CookerName, "", len(params))...,
	))
	defer span.End()

	if r == nil {
		err := fmt.Errorf("%w: nil recipe", ErrInvalidConfig)
		span.SetStatus(codes.Error, err.Error())
		cb.OnError(r, err)
		return false
	}
	if r.String(KeyTask) == TaskCancelAll {
		m.CancelAll()
		return true
	}

	async := strings.EqualFold(r.String(KeyTaskType), TaskTypeAsync)
	span.SetAttributes(attribute.Bool("async", async))
	ctx = xlog.ContextWithRecipe(ctx, r.Name())

	if !async {
		m.load(ctx, nil, r, params, cb)
		return true
	}

	task := worker.NewTask(context.WithoutCancel(ctx))
	m.tracker.Add(task)
	err := m.pool.Submit(task.Context(), func(ctx context.Context) {
		defer func() {
			m.tracker.Remove(task)
			task.Finish()
		}()
		m.load(ctx, task, r, params, cb)
	})
	if err != nil {
		m.tracker.Remove(task)
		task.Finish()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		cb.OnError(r, err)
		return false
	}
	return true
}

// Stream implements recipe.Cooker. It emits the payload string of each
// delivered envelope and closes the channel once the load has finished.
func (m *Manager) Stream(ctx context.Context, r *recipe.Recipe, _ any, params []string) <-chan recipe.Result {
	out := make(chan recipe.Result)
	go func() {
		defer close(out)
		send := func(res recipe.Result) {
			select {
			case out <- res:
			case <-ctx.Done():
			}
		}
		if r == nil {
			send(recipe.Result{Err: fmt.Errorf("%w: nil recipe", ErrInvalidConfig)})
			return
		}
		if r.String(KeyTask) == TaskCancelAll {
			m.CancelAll()
			return
		}
		m.load(ctx, nil, r, params, recipe.CallbackFuncs{
			Cooked: func(_ *recipe.Recipe, v any, _ bool) {
				send(recipe.Result{Value: v.(*data.Data).Payload()})
			},
			Error: func(_ *recipe.Recipe, err error) {
				send(recipe.Result{Err: err})
			},
		})
	}()
	return out
}

// load runs one request through cache lookup and source fetch. task is nil
// for synchronous requests.
func (m *Manager) load(ctx context.Context, task *worker.Task, r *recipe.Recipe, params []string, cb recipe.Callbacks) {
	logger := xlog.WithContext(ctx, m.logger)

	cancelled := func() bool {
		if task != nil && task.Cancelled() {
			logger.Info().Str(xlog.FieldTaskID, task.ID()).Msg("task cancelled, not continuing with recipe")
			return true
		}
		return false
	}
	deliver := func(fn func()) {
		if task == nil {
			fn()
			return
		}
		task.Deliver(fn)
	}

	source := download.HandlerFuncs{
		Success: func(r *recipe.Recipe, params []string, d *data.Data) {
			if cancelled() {
				metrics.RecordCook(CookerName, metrics.OutcomeCancelled)
				return
			}
			if m.cacheEnabled {
				if err := m.adapter.StoreData(r, params, d); err != nil {
					logger.Warn().Err(err).Msg("could not store the data in cache")
				}
			}
			metrics.RecordCook(CookerName, metrics.OutcomeSuccess)
			deliver(func() { cb.OnCooked(r, d, d.Complete) })
		},
		Failure: func(r *recipe.Recipe, _ []string, err error) {
			if cancelled() {
				metrics.RecordCook(CookerName, metrics.OutcomeCancelled)
				return
			}
			logger.Warn().Err(err).Msg("could not load data from source")
			metrics.RecordCook(CookerName, metrics.OutcomeFailure)
			deliver(func() { cb.OnError(r, err) })
		},
	}

	if m.shouldDownload(r) {
		logger.Debug().Msg("loading data directly from source")
		m.downloader.LoadData(ctx, r, params, source)
		return
	}

	m.adapter.LoadData(ctx, r, params, download.HandlerFuncs{
		Success: func(r *recipe.Recipe, params []string, d *data.Data) {
			if cancelled() {
				return
			}
			if d == nil {
				logger.Debug().Msg("cache does not have data for recipe")
				m.downloader.LoadData(ctx, r, params, source)
				return
			}
			metrics.RecordCook(CookerName, metrics.OutcomeSuccess)
			deliver(func() { cb.OnCooked(r, d, d.Complete) })
		},
		Failure: func(r *recipe.Recipe, params []string, err error) {
			if cancelled() {
				return
			}
			logger.Warn().Err(err).Msg("could not load data from cache")
			m.downloader.LoadData(ctx, r, params, source)
		},
	})
}

func (m *Manager) shouldDownload(r *recipe.Recipe) bool {
	return !m.cacheEnabled || r.String(KeyTask) == TaskDownloadData
}
