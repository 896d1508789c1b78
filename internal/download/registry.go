// SPDX-License-Identifier: MIT

package download

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"

	"github.com/ManuGH/recipefeed/internal/recipe"
)

// Built-in component names.
const (
	NameFileDownloader    = "BasicFileBasedDataDownloader"
	NameHTTPDownloader    = "BasicHttpBasedDataDownloader"
	NameFileURLGenerator  = "BasicFileBasedUrlGenerator"
	NameTokenURLGenerator = "BasicTokenBasedUrlGenerator"
)

// Lifecycle controls whether a component is shared.
type Lifecycle int

const (
	// Transient builds a new instance per request.
	Transient Lifecycle = iota
	// Singleton builds one instance per registry and reuses it.
	Singleton
)

// Env carries the collaborators available to factories.
type Env struct {
	// Assets resolves configuration files, URL files and local payloads.
	Assets fs.FS
	// Fetcher performs HTTP GETs.
	Fetcher Fetcher
}

// Factory describes how to construct a component. ConfigFile, when set, is
// loaded from Env.Assets and passed to New as the static configuration.
type Factory[T any] struct {
	Lifecycle  Lifecycle
	ConfigFile string
	New        func(reg *Registry, env Env, config *recipe.Recipe) (T, error)
}

// Registry maps component names to factories.
type Registry struct {
	mu          sync.Mutex
	downloaders map[string]Factory[Downloader]
	generators  map[string]Factory[URLGenerator]
	singletons  map[string]any
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		downloaders: map[string]Factory[Downloader]{},
		generators:  map[string]Factory[URLGenerator]{},
		singletons:  map[string]any{},
	}
}

// NewDefaultRegistry returns a registry holding the built-in components.
func NewDefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.RegisterDownloader(NameFileDownloader, Factory[Downloader]{
		ConfigFile: "configurations/basic_file_downloader_config.json",
		New: func(_ *Registry, env Env, config *recipe.Recipe) (Downloader, error) {
			return NewFileDownloader(config, env.Assets), nil
		},
	})
	reg.RegisterDownloader(NameHTTPDownloader, Factory[Downloader]{
		ConfigFile: "configurations/basic_http_downloader_config.json",
		New: func(reg *Registry, env Env, config *recipe.Recipe) (Downloader, error) {
			name := config.String(KeyURLGeneratorImpl)
			if name == "" {
				return nil, fmt.Errorf("%w: %s", ErrArgumentMissing, KeyURLGeneratorImpl)
			}
			gen, err := reg.NewURLGenerator(name, env)
			if err != nil {
				return nil, err
			}
			if env.Fetcher == nil {
				return nil, fmt.Errorf("no http fetcher configured")
			}
			return NewHTTPDownloader(gen, env.Fetcher), nil
		},
	})
	reg.RegisterURLGenerator(NameFileURLGenerator, Factory[URLGenerator]{
		ConfigFile: "configurations/basic_file_based_url_generator_config.json",
		New: func(_ *Registry, env Env, config *recipe.Recipe) (URLGenerator, error) {
			return NewFileURLGenerator(config, env.Assets), nil
		},
	})
	reg.RegisterURLGenerator(NameTokenURLGenerator, Factory[URLGenerator]{
		ConfigFile: "configurations/basic_token_based_url_generator_config.json",
		New: func(_ *Registry, env Env, config *recipe.Recipe) (URLGenerator, error) {
			if env.Fetcher == nil {
				return nil, fmt.Errorf("no http fetcher configured")
			}
			return NewTokenURLGenerator(config, env.Fetcher), nil
		},
	})
	return reg
}

// RegisterDownloader adds or replaces a downloader factory.
func (r *Registry) RegisterDownloader(name string, f Factory[Downloader]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downloaders[name] = f
	delete(r.singletons, "d:"+name)
}

// RegisterURLGenerator adds or replaces a URL generator factory.
func (r *Registry) RegisterURLGenerator(name string, f Factory[URLGenerator]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[name] = f
	delete(r.singletons, "g:"+name)
}

// Downloaders returns the registered downloader names.
func (r *Registry) Downloaders() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.downloaders)
}

// URLGenerators returns the registered URL generator names.
func (r *Registry) URLGenerators() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.generators)
}

// NewDownloader builds (or reuses) the named downloader. Names may be
// qualified with dots; the last segment is matched.
func (r *Registry) NewDownloader(name string, env Env) (Downloader, error) {
	d, err := build(r, "d:", r.downloaders, name, env)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDownloaderInit, name, err)
	}
	return d, nil
}

// NewURLGenerator builds (or reuses) the named URL generator.
func (r *Registry) NewURLGenerator(name string, env Env) (URLGenerator, error) {
	g, err := build(r, "g:", r.generators, name, env)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrURLGeneratorInit, name, err)
	}
	return g, nil
}

func build[T any](r *Registry, kind string, factories map[string]Factory[T], name string, env Env) (T, error) {
	var zero T

	r.mu.Lock()
	key := name
	f, ok := factories[key]
	if !ok {
		key = name[strings.LastIndex(name, ".")+1:]
		f, ok = factories[key]
	}
	if !ok {
		r.mu.Unlock()
		return zero, fmt.Errorf("unknown component %q", name)
	}
	if f.Lifecycle == Singleton {
		if v, ok := r.singletons[kind+key]; ok {
			r.mu.Unlock()
			return v.(T), nil
		}
	}
	r.mu.Unlock()

	config := recipe.FromMap(key, nil)
	if f.ConfigFile != "" {
		if env.Assets == nil {
			return zero, fmt.Errorf("config %s: no asset filesystem", f.ConfigFile)
		}
		c, err := recipe.Load(env.Assets, f.ConfigFile)
		if err != nil {
			return zero, fmt.Errorf("config %s: %w", f.ConfigFile, err)
		}
		config = c
	}
	v, err := f.New(r, env, config)
	if err != nil {
		return zero, err
	}

	if f.Lifecycle == Singleton {
		r.mu.Lock()
		defer r.mu.Unlock()
		// first constructor wins a race
		if existing, ok := r.singletons[kind+key]; ok {
			return existing.(T), nil
		}
		r.singletons[kind+key] = v
	}
	return v, nil
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
