// SPDX-License-Identifier: MIT

package download

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/rs/zerolog"

	"github.com/ManuGH/recipefeed/internal/data"
	xlog "github.com/ManuGH/recipefeed/internal/log"
	"github.com/ManuGH/recipefeed/internal/recipe"
)

// KeyDataFilePath names the asset to read.
const KeyDataFilePath = "data_file_path"

// FileDownloader reads payloads from an asset filesystem.
type FileDownloader struct {
	keys   Keys
	assets fs.FS
	logger zerolog.Logger
}

// NewFileDownloader returns a downloader reading from assets. config may be
// nil.
func NewFileDownloader(config *recipe.Recipe, assets fs.FS) *FileDownloader {
	return &FileDownloader{
		keys:   Keys{Config: config},
		assets: assets,
		logger: xlog.WithComponent("download.file"),
	}
}

// Name implements Downloader.
func (d *FileDownloader) Name() string { return NameFileDownloader }

// LoadData implements Downloader.
func (d *FileDownloader) LoadData(ctx context.Context, r *recipe.Recipe, params []string, h Handler) bool {
	return load(ctx, d.Name(), d.logger, r, params, h, d.fetch)
}

func (d *FileDownloader) fetch(ctx context.Context, r *recipe.Recipe) (*data.Data, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := d.keys.Get(r, KeyDataFilePath)
	if err != nil {
		return nil, err
	}
	b, err := readAsset(d.assets, p)
	if err != nil {
		return nil, err
	}
	return data.ForPayload(string(b)), nil
}

func readAsset(assets fs.FS, p string) ([]byte, error) {
	if assets == nil {
		return nil, fmt.Errorf("read %s: no asset filesystem", p)
	}
	b, err := fs.ReadFile(assets, p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return b, nil
}
