// SPDX-License-Identifier: MIT

package download

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ManuGH/recipefeed/internal/data"
	xlog "github.com/ManuGH/recipefeed/internal/log"
	"github.com/ManuGH/recipefeed/internal/recipe"
)

const (
	// KeyURLGeneratorImpl names the URL generator in the static config.
	KeyURLGeneratorImpl = "url_generator_impl"
	// KeyURLGenerator holds the per-call URL generator parameters.
	KeyURLGenerator = "url_generator"
)

// HTTPDownloader builds a URL with a generator and fetches it.
type HTTPDownloader struct {
	gen     URLGenerator
	fetcher Fetcher
	logger  zerolog.Logger
}

// NewHTTPDownloader returns a downloader using gen and fetcher.
func NewHTTPDownloader(gen URLGenerator, fetcher Fetcher) *HTTPDownloader {
	return &HTTPDownloader{
		gen:     gen,
		fetcher: fetcher,
		logger:  xlog.WithComponent("download.http"),
	}
}

// Name implements Downloader.
func (d *HTTPDownloader) Name() string { return NameHTTPDownloader }

// LoadData implements Downloader.
func (d *HTTPDownloader) LoadData(ctx context.Context, r *recipe.Recipe, params []string, h Handler) bool {
	return load(ctx, d.Name(), d.logger, r, params, h, d.fetch)
}

func (d *HTTPDownloader) fetch(ctx context.Context, r *recipe.Recipe) (*data.Data, error) {
	genParams := recipe.FromMap(r.Name()+"."+KeyURLGenerator, r.Map(KeyURLGenerator))
	url, err := d.gen.URL(ctx, genParams)
	if err != nil {
		return nil, err
	}
	d.logger.Debug().Str(xlog.FieldURL, url).Str(xlog.FieldRecipe, r.Name()).Msg("fetching payload")
	body, err := d.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return data.ForPayload(body), nil
}
