// SPDX-License-Identifier: MIT

package download

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/recipefeed/internal/data"
	"github.com/ManuGH/recipefeed/internal/recipe"
)

type captured struct {
	data   *data.Data
	err    error
	params []string
	calls  int
}

func (c *captured) handler() Handler {
	return HandlerFuncs{
		Success: func(_ *recipe.Recipe, params []string, d *data.Data) {
			c.calls++
			c.data, c.params = d, params
		},
		Failure: func(_ *recipe.Recipe, params []string, err error) {
			c.calls++
			c.err, c.params = err, params
		},
	}
}

func rcp(m map[string]any) *recipe.Recipe { return recipe.FromMap("test", m) }

func TestKeys_TwoTierResolution(t *testing.T) {
	k := Keys{Config: rcp(map[string]any{"a": "config", "b": "config"})}

	v, err := k.Get(rcp(map[string]any{"a": "call"}), "a")
	require.NoError(t, err)
	assert.Equal(t, "call", v)

	v, err = k.Get(rcp(nil), "b")
	require.NoError(t, err)
	assert.Equal(t, "config", v)

	_, err = k.Get(rcp(nil), "c")
	assert.ErrorIs(t, err, ErrArgumentMissing)

	_, err = Keys{}.Get(nil, "c")
	assert.ErrorIs(t, err, ErrArgumentMissing)
}

func TestFileDownloader(t *testing.T) {
	assets := fstest.MapFS{
		"feeds/a.json":   {Data: []byte(`{"items":[]}`)},
		"feeds/def.json": {Data: []byte(`<rss/>`)},
	}
	config := rcp(map[string]any{KeyDataFilePath: "feeds/def.json"})
	d := NewFileDownloader(config, assets)
	assert.Equal(t, NameFileDownloader, d.Name())

	t.Run("recipe wins", func(t *testing.T) {
		var c captured
		ok := d.LoadData(context.Background(), rcp(map[string]any{KeyDataFilePath: "feeds/a.json"}), []string{"p"}, c.handler())
		require.True(t, ok)
		assert.Equal(t, `{"items":[]}`, c.data.Payload())
		assert.Equal(t, data.TypeJSON, c.data.Content.Type)
		assert.Equal(t, []string{"p"}, c.params)
		assert.Equal(t, 1, c.calls)
	})

	t.Run("config fallback", func(t *testing.T) {
		var c captured
		require.True(t, d.LoadData(context.Background(), rcp(nil), nil, c.handler()))
		assert.Equal(t, "<rss/>", c.data.Payload())
	})

	t.Run("missing asset", func(t *testing.T) {
		var c captured
		ok := d.LoadData(context.Background(), rcp(map[string]any{KeyDataFilePath: "nope.json"}), nil, c.handler())
		assert.False(t, ok)
		assert.ErrorIs(t, c.err, fs.ErrNotExist)
		assert.Equal(t, 1, c.calls)
	})

	t.Run("missing key", func(t *testing.T) {
		var c captured
		ok := NewFileDownloader(nil, assets).LoadData(context.Background(), rcp(nil), nil, c.handler())
		assert.False(t, ok)
		assert.ErrorIs(t, c.err, ErrArgumentMissing)
	})
}

func TestFileURLGenerator(t *testing.T) {
	assets := fstest.MapFS{
		"urls.json": {Data: []byte(`// feed endpoints
{"urls": ["http://a.example/feed", "http://b.example/feed"]}`)},
		"broken.json": {Data: []byte(`{"urls": [`)},
	}
	gen := NewFileURLGenerator(rcp(map[string]any{KeyURLFile: "urls.json"}), assets)

	url, err := gen.URL(context.Background(), rcp(map[string]any{KeyURLIndex: "1"}))
	require.NoError(t, err)
	assert.Equal(t, "http://b.example/feed", url)

	url, err = gen.URL(context.Background(), rcp(map[string]any{KeyURLIndex: float64(0)}))
	require.NoError(t, err)
	assert.Equal(t, "http://a.example/feed", url)

	for name, params := range map[string]map[string]any{
		"out of range": {KeyURLIndex: "2"},
		"negative":     {KeyURLIndex: "-1"},
		"not a number": {KeyURLIndex: "x"},
		"missing":      {},
		"bad file":     {KeyURLIndex: "0", KeyURLFile: "broken.json"},
		"absent file":  {KeyURLIndex: "0", KeyURLFile: "absent.json"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := gen.URL(context.Background(), rcp(params))
			assert.ErrorIs(t, err, ErrURLGenerator)
		})
	}
}

func TestTokenURLGenerator(t *testing.T) {
	var requested string
	fetcher := FetcherFunc(func(_ context.Context, url string) (string, error) {
		requested = url
		return "tok123\n", nil
	})
	gen := NewTokenURLGenerator(rcp(map[string]any{KeyTokenGenerationURL: "http://auth.example/token"}), fetcher)

	url, err := gen.URL(context.Background(), rcp(map[string]any{
		KeyBaseURL: "http://cdn.example/feed?token=$$token$$",
	}))
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.example/feed?token=tok123", url)
	assert.Equal(t, "http://auth.example/token", requested)

	_, err = gen.URL(context.Background(), rcp(nil))
	assert.ErrorIs(t, err, ErrURLGenerator)
	assert.ErrorIs(t, err, ErrArgumentMissing)

	// A base URL without a token slot is used as is.
	url, err = gen.URL(context.Background(), rcp(map[string]any{KeyBaseURL: "http://cdn.example/open"}))
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.example/open", url)

	failing := NewTokenURLGenerator(nil, FetcherFunc(func(context.Context, string) (string, error) {
		return "", errors.New("unreachable")
	}))
	_, err = failing.URL(context.Background(), rcp(map[string]any{
		KeyTokenGenerationURL: "http://auth.example/token",
		KeyBaseURL:            "http://cdn.example/$$token$$",
	}))
	assert.ErrorIs(t, err, ErrURLGenerator)
}

type staticGen string

func (g staticGen) Name() string                                        { return "static" }
func (g staticGen) URL(context.Context, *recipe.Recipe) (string, error) { return string(g), nil }

func TestHTTPDownloader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/feed":
			_, _ = w.Write([]byte(`{"ok":true}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	fetcher := NewHTTPFetcher(FetcherOptions{Timeout: time.Second})

	var c captured
	d := NewHTTPDownloader(staticGen(srv.URL+"/feed"), fetcher)
	require.True(t, d.LoadData(context.Background(), rcp(nil), nil, c.handler()))
	assert.Equal(t, `{"ok":true}`, c.data.Payload())

	c = captured{}
	d = NewHTTPDownloader(staticGen(srv.URL+"/missing"), fetcher)
	assert.False(t, d.LoadData(context.Background(), rcp(nil), nil, c.handler()))
	var se *StatusError
	require.ErrorAs(t, c.err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.ErrorIs(t, c.err, ErrStatus)
}

func TestHTTPDownloader_PassesURLGeneratorParams(t *testing.T) {
	var seen *recipe.Recipe
	gen := urlGenFunc(func(_ context.Context, p *recipe.Recipe) (string, error) {
		seen = p
		return "http://x", nil
	})
	d := NewHTTPDownloader(gen, FetcherFunc(func(context.Context, string) (string, error) { return "body", nil }))

	var c captured
	require.True(t, d.LoadData(context.Background(), rcp(map[string]any{
		KeyURLGenerator: map[string]any{KeyURLIndex: "3"},
	}), nil, c.handler()))
	assert.Equal(t, "3", seen.String(KeyURLIndex))
}

type urlGenFunc func(ctx context.Context, p *recipe.Recipe) (string, error)

func (f urlGenFunc) Name() string { return "func" }
func (f urlGenFunc) URL(ctx context.Context, p *recipe.Recipe) (string, error) {
	return f(ctx, p)
}

func TestHTTPFetcher_SharesInFlightRequests(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write([]byte("shared"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(FetcherOptions{Timeout: 5 * time.Second})
	results := make(chan string, 2)
	for i := 0; i < 2; i++ {
		go func() {
			body, _ := f.Fetch(context.Background(), srv.URL)
			results <- body
		}()
	}
	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)

	assert.Equal(t, "shared", <-results)
	assert.Equal(t, "shared", <-results)
	assert.LessOrEqual(t, hits.Load(), int32(2))
}

func TestHTTPFetcher_BreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(FetcherOptions{Timeout: time.Second, BreakerThreshold: 2, BreakerReset: time.Hour})
	for i := 0; i < 2; i++ {
		_, err := f.Fetch(context.Background(), srv.URL)
		assert.ErrorIs(t, err, ErrStatus)
	}
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, "open", string(f.BreakerState()))
}

func TestHTTPFetcher_ClientErrorsDoNotTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(FetcherOptions{BreakerThreshold: 1})
	for i := 0; i < 3; i++ {
		_, err := f.Fetch(context.Background(), srv.URL)
		assert.ErrorIs(t, err, ErrStatus)
	}
	assert.Equal(t, "closed", string(f.BreakerState()))
}

func TestHTTPFetcher_RejectsOversizedBody(t *testing.T) {
	body := strings.Repeat("x", 33)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/exact" {
			_, _ = w.Write([]byte(body[:16]))
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(FetcherOptions{Timeout: time.Second, MaxBodyBytes: 16, BreakerThreshold: 1})
	got, err := f.Fetch(context.Background(), srv.URL+"/big")
	assert.ErrorIs(t, err, ErrBodyTooLarge)
	assert.Empty(t, got)
	assert.Equal(t, "closed", string(f.BreakerState()))

	got, err = f.Fetch(context.Background(), srv.URL+"/exact")
	require.NoError(t, err)
	assert.Equal(t, body[:16], got)
}

func TestHTTPFetcher_CallerCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { <-block }))
	defer srv.Close()
	defer close(block)

	f := NewHTTPFetcher(FetcherOptions{Timeout: 2 * time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := f.Fetch(ctx, srv.URL)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
