// SPDX-License-Identifier: MIT

package dynparser

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/recipefeed/internal/model"
	"github.com/ManuGH/recipefeed/internal/parser"
	"github.com/ManuGH/recipefeed/internal/pathexpr"
	"github.com/ManuGH/recipefeed/internal/recipe"
	"github.com/ManuGH/recipefeed/internal/translate"
	"github.com/ManuGH/recipefeed/internal/worker"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const categoriesFeed = `{"categories": [
  {"name": "News", "id": "n"},
  {"name": "Sports", "id": "s"},
  {"name": "Kids", "id": "k"}
]}`

func containerRecipe(extra map[string]any) *recipe.Recipe {
	m := map[string]any{
		"cooker":    CookerName,
		"format":    "json",
		"model":     model.TypeContainer,
		"modelType": "object",
		"query":     "$.categories[*]",
		"matchList": []any{"name@mName"},
	}
	for k, v := range extra {
		m[k] = v
	}
	return recipe.FromMap("categories", m)
}

type cooked struct {
	out  any
	done bool
}

type recorder struct {
	mu     sync.Mutex
	cooked []cooked
	errs   []error
}

func (r *recorder) OnCooked(_ *recipe.Recipe, out any, done bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cooked = append(r.cooked, cooked{out, done})
}

func (r *recorder) OnError(_ *recipe.Recipe, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) snapshot() ([]cooked, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]cooked(nil), r.cooked...), append([]error(nil), r.errs...)
}

func names(t *testing.T, outs []cooked) []string {
	t.Helper()
	var out []string
	for _, c := range outs {
		if c.out == nil {
			out = append(out, "<nil>")
			continue
		}
		out = append(out, c.out.(*model.Container).Name)
	}
	return out
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e := New()
	t.Cleanup(e.Close)
	return e
}

func TestCookNonBatchDeliversInOrder(t *testing.T) {
	e := newEngine(t)
	rec := &recorder{}

	require.True(t, e.Cook(context.Background(), containerRecipe(nil), categoriesFeed, nil, rec))

	got, errs := rec.snapshot()
	assert.Empty(t, errs)
	assert.Equal(t, []string{"News", "Sports", "Kids"}, names(t, got))
	assert.Equal(t, []bool{false, false, true}, []bool{got[0].done, got[1].done, got[2].done})
}

func TestCookBatchDeliversOnce(t *testing.T) {
	e := newEngine(t)
	e.Configure(true, false)
	rec := &recorder{}

	require.True(t, e.Cook(context.Background(), containerRecipe(nil), categoriesFeed, nil, rec))

	got, _ := rec.snapshot()
	require.Len(t, got, 1)
	assert.True(t, got[0].done)
	assert.Len(t, got[0].out, 3)
}

func TestCookEmptyResultSignalsDone(t *testing.T) {
	e := newEngine(t)
	rec := &recorder{}
	r := containerRecipe(map[string]any{"query": "$.categories[?(@.id=='zz')]"})

	require.True(t, e.Cook(context.Background(), r, categoriesFeed, nil, rec))

	got, errs := rec.snapshot()
	assert.Empty(t, errs)
	assert.Equal(t, []cooked{{nil, true}}, got)
}

func TestCookSkippedLastItemStillCompletes(t *testing.T) {
	e := newEngine(t)
	rec := &recorder{}
	feed := `{"categories": [{"name": "News"}, {"name": ""}]}`
	r := containerRecipe(map[string]any{"translator": "ContentContainerTranslator"})

	require.True(t, e.Cook(context.Background(), r, feed, nil, rec))

	got, errs := rec.snapshot()
	assert.Empty(t, errs)
	assert.Equal(t, []string{"News", "<nil>"}, names(t, got))
	assert.False(t, got[0].done)
	assert.True(t, got[1].done)
}

func TestCookValueNotFoundSkipsItem(t *testing.T) {
	e := newEngine(t)
	rec := &recorder{}
	feed := `{"ids": [{"v": "a"}, {"other": 1}, {"v": "c"}]}`
	r := recipe.FromMap("recs", map[string]any{
		"cooker": CookerName, "format": "json", "model": model.TypeString, "modelType": "string",
		"query": "$.ids[*]", "matchList": []any{"v@ModelValue"},
	})

	require.True(t, e.Cook(context.Background(), r, feed, nil, rec))

	got, errs := rec.snapshot()
	assert.Empty(t, errs)
	assert.Equal(t, []cooked{{"a", false}, {"c", true}}, got)
}

func TestCookTranslationErrorEndsBatch(t *testing.T) {
	e := newEngine(t)
	rec := &recorder{}
	feed := `{"categories": [{"name": "News"}, {"id": 2}, {"name": "Kids"}]}`
	r := containerRecipe(map[string]any{"translator": "ContentContainerTranslator"})

	require.True(t, e.Cook(context.Background(), r, feed, nil, rec))

	got, errs := rec.snapshot()
	assert.Equal(t, []string{"News"}, names(t, got))
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], translate.ErrTranslation)
}

func TestCookRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		recipe *recipe.Recipe
		input  any
		params []string
		want   error
	}{
		{"missing key", recipe.FromMap("r", map[string]any{"cooker": CookerName}), categoriesFeed, nil, ErrInvalidRecipe},
		{"wrong cooker", containerRecipe(map[string]any{"cooker": "DataLoadManager"}), categoriesFeed, nil, ErrInvalidRecipe},
		{"bad result type hint", containerRecipe(map[string]any{"queryResultType": "<>"}), categoriesFeed, nil, ErrInvalidRecipe},
		{"unknown format", containerRecipe(map[string]any{"format": "csv"}), categoriesFeed, nil, ErrParserNotFound},
		{"nil input", containerRecipe(nil), nil, nil, parser.ErrInvalidData},
		{"malformed payload", containerRecipe(nil), "{", nil, parser.ErrInvalidData},
		{"map expected", containerRecipe(map[string]any{"queryResultType": "{}"}), categoriesFeed, nil, parser.ErrInvalidQuery},
		{"missing param", containerRecipe(map[string]any{"query": "$.categories[?(@.id=='$$par0$$')]"}), categoriesFeed, nil, pathexpr.ErrMalformedInjection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t)
			rec := &recorder{}
			assert.False(t, e.Cook(context.Background(), tt.recipe, tt.input, tt.params, rec))
			got, errs := rec.snapshot()
			assert.Empty(t, got)
			require.Len(t, errs, 1)
			assert.ErrorIs(t, errs[0], tt.want)
		})
	}
}

func TestCookUnknownTranslator(t *testing.T) {
	e := newEngine(t)
	rec := &recorder{}
	require.True(t, e.Cook(context.Background(), containerRecipe(map[string]any{"translator": "Nope"}), categoriesFeed, nil, rec))
	_, errs := rec.snapshot()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrTranslatorNotFound)
}

func TestCookInjectsParameters(t *testing.T) {
	e := newEngine(t)
	rec := &recorder{}
	r := containerRecipe(map[string]any{"query": "$.categories[?(@.id=='$$par0$$')]"})

	require.True(t, e.Cook(context.Background(), r, categoriesFeed, []string{"s"}, rec))

	got, _ := rec.snapshot()
	assert.Equal(t, []string{"Sports"}, names(t, got))
}

func TestCookXMLWithReservedKeys(t *testing.T) {
	e := newEngine(t)
	rec := &recorder{}
	feed := `<feed><cat id="7"><title>Movies</title></cat></feed>`
	r := containerRecipe(map[string]any{
		"format":           "xml",
		"query":            "//cat",
		"matchList":        []any{"title/#text@mName"},
		recipe.KeyDataType: "#attributes/id@keyDataType",
		recipe.KeyLive:     true,
	})

	require.True(t, e.Cook(context.Background(), r, feed, nil, rec))

	got, errs := rec.snapshot()
	require.Empty(t, errs)
	require.Len(t, got, 1)
	c := got[0].out.(*model.Container)
	assert.Equal(t, "Movies", c.Name)
	assert.Equal(t, "7", c.ExtraString(recipe.KeyDataType))
	assert.Equal(t, true, c.Extras[recipe.KeyLive])
}

func TestCookAsyncDelivers(t *testing.T) {
	pool := worker.NewPool(2)
	defer pool.Close()
	e := New(WithPool(pool))
	defer e.Close()
	e.Configure(false, true)

	done := make(chan struct{})
	var mu sync.Mutex
	var got []string
	cb := recipe.CallbackFuncs{Cooked: func(_ *recipe.Recipe, out any, last bool) {
		mu.Lock()
		got = append(got, out.(*model.Container).Name)
		mu.Unlock()
		if last {
			close(done)
		}
	}}

	require.True(t, e.Cook(context.Background(), containerRecipe(nil), categoriesFeed, nil, cb))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("async cook did not complete")
	}
	mu.Lock()
	assert.Equal(t, []string{"News", "Sports", "Kids"}, got)
	mu.Unlock()
	assert.Eventually(t, func() bool { return !e.TasksInProgress() }, time.Second, 5*time.Millisecond)
}

func TestCancelTranslationsSuppressesDelivery(t *testing.T) {
	pool := worker.NewPool(1)
	defer pool.Close()
	e := New(WithPool(pool))
	defer e.Close()
	e.Configure(true, true)

	block := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func(context.Context) { <-block }))

	rec := &recorder{}
	for i := 0; i < 3; i++ {
		require.True(t, e.Cook(context.Background(), containerRecipe(nil), categoriesFeed, nil, rec))
	}
	assert.True(t, e.TasksInProgress())

	e.CancelTranslations()
	assert.False(t, e.TasksInProgress())
	close(block)
	pool.Wait()

	got, errs := rec.snapshot()
	assert.Empty(t, got)
	assert.Empty(t, errs)
}

func TestStream(t *testing.T) {
	e := newEngine(t)
	out, err := recipe.Collect(e.Stream(context.Background(), containerRecipe(nil), categoriesFeed, nil))
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "Kids", out[2].(*model.Container).Name)

	_, err = recipe.Collect(e.Stream(context.Background(), containerRecipe(map[string]any{"format": "csv"}), categoriesFeed, nil))
	assert.ErrorIs(t, err, ErrParserNotFound)

	feed := `{"categories": [{"name": "News"}, {"id": 2}]}`
	out, err = recipe.Collect(e.Stream(context.Background(), containerRecipe(map[string]any{"translator": "ContentContainerTranslator"}), feed, nil))
	assert.ErrorIs(t, err, translate.ErrTranslation)
	assert.Len(t, out, 1)
}

func TestStreamStopsWhenContextEnds(t *testing.T) {
	e := newEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	ch := e.Stream(ctx, containerRecipe(nil), categoriesFeed, nil)
	<-ch
	cancel()
	for range ch {
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, []map[string]any{{"StringKey": "a"}, {"StringKey": "b"}}, Normalize([]any{"a", "b"}))
	assert.Equal(t, []map[string]any{{"IntegerKey": 1}}, Normalize([]any{1}))
	assert.Equal(t, []map[string]any{{"DoubleKey": 1.5}}, Normalize(1.5))
	assert.Equal(t, []map[string]any{{"a": 1}}, Normalize(map[string]any{"a": 1}))
	assert.Equal(t, []map[string]any{{"a": 1}, {"a": 2}}, Normalize([]any{
		map[string]any{"a": 1}, map[string]any{"a": 2}, map[string]any{"a": 1},
	}))
	assert.Empty(t, Normalize(nil))
	assert.Empty(t, Normalize([]any{}))
}

func TestRegistries(t *testing.T) {
	e := newEngine(t)
	assert.False(t, e.AddParser(parser.NewJSON()))
	assert.False(t, e.AddParser(nil))
	assert.False(t, e.AddTranslator("ContentTranslator", translate.NewReflective(e.Types())))
	_, err := e.Parser("xml")
	assert.NoError(t, err)
	_, err = e.Parser("yaml")
	assert.ErrorIs(t, err, ErrParserNotFound)
}
