// SPDX-License-Identifier: MIT

package download

import (
	"context"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/ManuGH/recipefeed/internal/pathexpr"
	"github.com/ManuGH/recipefeed/internal/recipe"
)

// URLGenerator produces a fetch URL from per-call parameters.
type URLGenerator interface {
	Name() string
	URL(ctx context.Context, params *recipe.Recipe) (string, error)
}

// Keys used by the built-in URL generators.
const (
	KeyURLFile            = "url_file"
	KeyURLIndex           = "url_index"
	KeyURLs               = "urls"
	KeyTokenGenerationURL = "token_generation_url"
	KeyBaseURL            = "base_url"

	// TokenPlaceholder is replaced by the fetched token in base_url.
	TokenPlaceholder = "$$token$$"
)

// FileURLGenerator selects a URL by index from a {"urls": [...]} document.
type FileURLGenerator struct {
	keys   Keys
	assets fs.FS
}

// NewFileURLGenerator returns a generator reading URL files from assets.
func NewFileURLGenerator(config *recipe.Recipe, assets fs.FS) *FileURLGenerator {
	return &FileURLGenerator{keys: Keys{Config: config}, assets: assets}
}

// Name implements URLGenerator.
func (g *FileURLGenerator) Name() string { return NameFileURLGenerator }

// URL implements URLGenerator.
func (g *FileURLGenerator) URL(_ context.Context, params *recipe.Recipe) (string, error) {
	file, err := g.keys.Get(params, KeyURLFile)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrURLGenerator, err)
	}
	rawIndex, err := g.keys.Get(params, KeyURLIndex)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrURLGenerator, err)
	}
	fail := func(cause error) error {
		return fmt.Errorf("%w: could not read url at index %s in file %s: %w", ErrURLGenerator, rawIndex, file, cause)
	}

	idx, err := strconv.Atoi(strings.TrimSpace(rawIndex))
	if err != nil {
		return "", fail(err)
	}
	b, err := readAsset(g.assets, file)
	if err != nil {
		return "", fail(err)
	}
	doc, err := recipe.Parse(file, b)
	if err != nil {
		return "", fail(err)
	}
	urls := doc.StringList(KeyURLs)
	if idx < 0 || idx >= len(urls) {
		return "", fail(fmt.Errorf("index out of range [0,%d)", len(urls)))
	}
	return urls[idx], nil
}

// TokenURLGenerator fetches a token and substitutes it into a base URL.
type TokenURLGenerator struct {
	keys    Keys
	fetcher Fetcher
}

// NewTokenURLGenerator returns a generator requesting tokens with fetcher.
func NewTokenURLGenerator(config *recipe.Recipe, fetcher Fetcher) *TokenURLGenerator {
	return &TokenURLGenerator{keys: Keys{Config: config}, fetcher: fetcher}
}

// Name implements URLGenerator.
func (g *TokenURLGenerator) Name() string { return NameTokenURLGenerator }

// URL implements URLGenerator.
func (g *TokenURLGenerator) URL(ctx context.Context, params *recipe.Recipe) (string, error) {
	tokenURL, err := g.keys.Get(params, KeyTokenGenerationURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrURLGenerator, err)
	}
	token, err := g.fetcher.Fetch(ctx, tokenURL)
	if err != nil {
		return "", fmt.Errorf("%w: token request: %w", ErrURLGenerator, err)
	}
	base, err := g.keys.Get(params, KeyBaseURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrURLGenerator, err)
	}
	if !strings.Contains(base, TokenPlaceholder) {
		return base, nil
	}
	base = strings.ReplaceAll(base, TokenPlaceholder, pathexpr.Placeholder(0))
	url, err := pathexpr.InjectParameters(base, []string{strings.TrimSpace(token)})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrURLGenerator, err)
	}
	return url, nil
}
