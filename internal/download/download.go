// SPDX-License-Identifier: MIT

// Package download fetches raw payloads for data-load recipes from local
// assets or over HTTP.
package download

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ManuGH/recipefeed/internal/data"
	xlog "github.com/ManuGH/recipefeed/internal/log"
	"github.com/ManuGH/recipefeed/internal/metrics"
	"github.com/ManuGH/recipefeed/internal/recipe"
)

var (
	// ErrArgumentMissing reports a key found neither in the call recipe nor
	// in the component configuration.
	ErrArgumentMissing = errors.New("argument missing")
	// ErrURLGenerator reports a URL that could not be produced.
	ErrURLGenerator = errors.New("url generator failed")
	// ErrDownloaderInit wraps any failure while constructing a downloader.
	ErrDownloaderInit = errors.New("downloader initialization failed")
	// ErrURLGeneratorInit wraps any failure while constructing a URL generator.
	ErrURLGeneratorInit = errors.New("url generator initialization failed")
	// ErrStatus reports a non-2xx HTTP response.
	ErrStatus = errors.New("unexpected http status")
	// ErrBodyTooLarge reports a response body above the configured limit.
	ErrBodyTooLarge = errors.New("response body too large")
)

// Handler receives the outcome of a LoadData call.
type Handler interface {
	OnSuccess(r *recipe.Recipe, params []string, d *data.Data)
	OnFailure(r *recipe.Recipe, params []string, err error)
}

// HandlerFuncs adapts plain functions to Handler. Nil fields are ignored.
type HandlerFuncs struct {
	Success func(r *recipe.Recipe, params []string, d *data.Data)
	Failure func(r *recipe.Recipe, params []string, err error)
}

func (h HandlerFuncs) OnSuccess(r *recipe.Recipe, params []string, d *data.Data) {
	if h.Success != nil {
		h.Success(r, params, d)
	}
}

func (h HandlerFuncs) OnFailure(r *recipe.Recipe, params []string, err error) {
	if h.Failure != nil {
		h.Failure(r, params, err)
	}
}

// Downloader loads the payload described by a recipe and reports exactly
// once through the handler. LoadData returns true on success.
type Downloader interface {
	Name() string
	LoadData(ctx context.Context, r *recipe.Recipe, params []string, h Handler) bool
}

// Keys resolves configuration values from a per-call recipe first and the
// component's static configuration second.
type Keys struct {
	Config *recipe.Recipe
}

// Get returns key from r, then from the static configuration.
func (k Keys) Get(r *recipe.Recipe, key string) (string, error) {
	if r.Contains(key) {
		return r.String(key), nil
	}
	if k.Config.Contains(key) {
		return k.Config.String(key), nil
	}
	return "", fmt.Errorf("%w: %s could not be found", ErrArgumentMissing, key)
}

// fetchFunc produces the envelope for one recipe.
type fetchFunc func(ctx context.Context, r *recipe.Recipe) (*data.Data, error)

// load runs fetch and routes the outcome to h.
func load(ctx context.Context, name string, logger zerolog.Logger, r *recipe.Recipe, params []string, h Handler, fetch fetchFunc) bool {
	d, err := fetch(ctx, r)
	if err != nil {
		metrics.RecordDownload(name, metrics.OutcomeFailure)
		logger.Warn().Err(err).
			Str(xlog.FieldRecipe, r.Name()).
			Str(xlog.FieldEvent, "download.failed").
			Msg("payload download failed")
		h.OnFailure(r, params, err)
		return false
	}
	metrics.RecordDownload(name, metrics.OutcomeSuccess)
	logger.Debug().
		Str(xlog.FieldRecipe, r.Name()).
		Int("bytes", d.Content.Size).
		Msg("payload downloaded")
	h.OnSuccess(r, params, d)
	return true
}
