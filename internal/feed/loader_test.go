// SPDX-License-Identifier: MIT

package feed

import (
	"context"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/recipefeed/internal/data"
	"github.com/ManuGH/recipefeed/internal/dataload"
	"github.com/ManuGH/recipefeed/internal/download"
	"github.com/ManuGH/recipefeed/internal/dynparser"
	"github.com/ManuGH/recipefeed/internal/model"
	"github.com/ManuGH/recipefeed/internal/recipe"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var _ dataload.UpdateListener = (*Loader)(nil)

const feedDoc = `{
  "categories": [
    {"name": "News", "id": "n", "type": "free"},
    {"name": "Sports", "id": "s"},
    {"name": "news", "id": "n"}
  ],
  "items": [
    {"id": "1", "title": "Headlines", "category": "n"},
    {"id": "2", "title": "Match", "category": "s"},
    {"id": "1", "title": "Headlines", "category": "s"}
  ],
  "recommended": ["2", "1", "2", "3"]
}`

const navigatorDoc = `{
  // feeds
  "config": {"searchAlgo": "basic"},
  "branding": {"globalTheme": "dark"},
  "globalRecipes": [
    {
      "categories": {"dataLoader": "recipes/loader.json", "dynamicParser": "recipes/categories.json"},
      "contents": {"dataLoader": "recipes/loader.json", "dynamicParser": "recipes/contents.json"},
      "recipeConfig": {"liveContent": true}
    },
    {
      "categories": {"name": "Sports"},
      "contents": {"dataLoader": "recipes/loader.json", "dynamicParser": "recipes/contents.json"}
    }
  ],
  "recommendationRecipes": [
    {"contents": {"dataLoader": "recipes/loader.json", "dynamicParser": "recipes/recommendations.json"}}
  ]
}`

func testAssets() fstest.MapFS {
	return fstest.MapFS{
		"configurations/basic_file_downloader_config.json": {Data: []byte(`{}`)},
		"feeds/feed.json":     {Data: []byte(feedDoc)},
		"navigator.json":      {Data: []byte(navigatorDoc)},
		"recipes/loader.json": {Data: []byte(`{"cooker": "DataLoadManager", "task": "load_data", "data_file_path": "feeds/feed.json"}`)},
		"recipes/categories.json": {Data: []byte(`{
  "cooker": "DynamicParser", "format": "json", "model": "ContentContainer", "modelType": "object",
  "query": "$.categories[*]", "matchList": ["name@mName"],
  "keyDataType": "id@keyDataType", "contentType": "type@contentType"
}`)},
		"recipes/contents.json": {Data: []byte(`{
  "cooker": "DynamicParser", "format": "json", "model": "Content", "modelType": "object",
  "query": "$.items[?(@.category=='$$par0$$')]", "matchList": ["id@mId", "title@mTitle"]
}`)},
		"recipes/recommendations.json": {Data: []byte(`{
  "cooker": "DynamicParser", "format": "json", "model": "String", "modelType": "string",
  "query": "$.recommended", "matchList": ["StringKey@ModelValue"]
}`)},
	}
}

// countingCooker counts Stream calls on the wrapped cooker.
type countingCooker struct {
	recipe.Cooker
	streams atomic.Int32
}

func (c *countingCooker) Stream(ctx context.Context, r *recipe.Recipe, input any, params []string) <-chan recipe.Result {
	c.streams.Add(1)
	return c.Cooker.Stream(ctx, r, input, params)
}

func newLoader(t *testing.T, assets fstest.MapFS) (*Loader, *countingCooker) {
	t.Helper()
	nav, err := LoadNavigator(assets, "navigator.json")
	require.NoError(t, err)

	m, err := dataload.NewManager(recipe.FromMap("dataloader", map[string]any{
		dataload.KeyDownloaderImpl: download.NameFileDownloader,
	}), dataload.Deps{
		Registry: download.NewDefaultRegistry(),
		Env:      download.Env{Assets: assets},
	})
	require.NoError(t, err)
	t.Cleanup(m.Close)

	e := dynparser.New()
	t.Cleanup(e.Close)

	dl := &countingCooker{Cooker: m}
	return NewLoader(nav, dl, e), dl
}

func containerNames(c *model.Container) []string {
	var out []string
	for _, sub := range c.Containers {
		out = append(out, sub.Name)
	}
	return out
}

func contentTitles(c *model.Container) []string {
	var out []string
	for _, content := range c.Contents {
		out = append(out, content.Title)
	}
	return out
}

func TestLoadNavigator(t *testing.T) {
	nav, err := LoadNavigator(testAssets(), "navigator.json")
	require.NoError(t, err)

	assert.Equal(t, "basic", nav.Config.SearchAlgo)
	assert.Equal(t, -1, nav.Config.NumberOfGlobalRecommendations)
	assert.Equal(t, -1, nav.Config.NumberOfRelatedRecommendations)
	require.Len(t, nav.GlobalRecipes, 2)
	require.Len(t, nav.RecommendationRecipes, 1)

	g := nav.GlobalRecipes[0]
	assert.Equal(t, "categories", g.Categories.DynamicParserRecipe.Name())
	assert.Equal(t, "loader", g.Contents.DataLoaderRecipe.Name())
	require.NotNil(t, g.RecipeConfig)
	assert.True(t, g.RecipeConfig.LiveContent)

	hardCoded := nav.GlobalRecipes[1]
	assert.Equal(t, "Sports", hardCoded.Categories.Name)
	assert.Nil(t, hardCoded.Categories.DataLoaderRecipe)
	assert.Nil(t, hardCoded.RecipeConfig)
}

func TestParseNavigatorAcceptsCommentsAndTrailingCommas(t *testing.T) {
	doc := `{
  // tuning
  "config": {"searchAlgo": "basic", /* fixed */ "numberOfGlobalRecommendations": 3,},
  "globalRecipes": [],
}`
	nav, err := ParseNavigator([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "basic", nav.Config.SearchAlgo)
	assert.Equal(t, 3, nav.Config.NumberOfGlobalRecommendations)
	assert.Equal(t, -1, nav.Config.NumberOfRelatedRecommendations)
	assert.Empty(t, nav.GlobalRecipes)
}

func TestLoadNavigatorErrors(t *testing.T) {
	_, err := LoadNavigator(testAssets(), "missing.json")
	assert.ErrorIs(t, err, ErrInvalidNavigator)

	assets := testAssets()
	assets["navigator.json"] = &fstest.MapFile{Data: []byte(`{"globalRecipes": [`)}
	_, err = LoadNavigator(assets, "navigator.json")
	assert.ErrorIs(t, err, ErrInvalidNavigator)

	assets = testAssets()
	delete(assets, "recipes/contents.json")
	_, err = LoadNavigator(assets, "navigator.json")
	assert.ErrorIs(t, err, ErrInvalidNavigator)

	assets = testAssets()
	assets["recipes/contents.json"] = &fstest.MapFile{Data: []byte(`{"cooker": "DynamicParser"}`)}
	_, err = LoadNavigator(assets, "navigator.json")
	assert.ErrorIs(t, err, ErrInvalidNavigator)
	assert.ErrorIs(t, err, dynparser.ErrInvalidRecipe)

	assets = testAssets()
	assets["navigator.json"] = &fstest.MapFile{Data: []byte(`{"globalRecipes": [{"categories": {"name": "x"}, "contents": {}}]}`)}
	_, err = LoadNavigator(assets, "navigator.json")
	assert.ErrorIs(t, err, ErrInvalidNavigator)
}

func TestLoadRoot(t *testing.T) {
	l, dl := newLoader(t, testAssets())
	assert.False(t, l.Loaded())

	root, err := l.LoadRoot(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, l.Loaded())

	assert.Equal(t, RootName, root.Name)
	assert.Equal(t, []string{"News", "Sports"}, containerNames(root))

	news, sports := root.Containers[0], root.Containers[1]
	assert.Equal(t, []string{"Headlines"}, contentTitles(news))
	assert.Equal(t, []string{"Match", "Headlines"}, contentTitles(sports))

	// The same content id parsed for two containers is one shared object.
	assert.Same(t, news.Contents[0], sports.Contents[1])
	assert.Equal(t, "free", news.Contents[0].ExtraString(recipe.KeyContentType))
	assert.Empty(t, sports.Contents[0].ExtraString(recipe.KeyContentType))
	assert.Equal(t, true, sports.Contents[0].Extras[recipe.KeyLive])

	// One categories load plus one contents load per distinct container.
	assert.Equal(t, int32(3), dl.streams.Load())
}

func TestLoadRootHardCodedCategory(t *testing.T) {
	l, _ := newLoader(t, testAssets())

	root, err := l.LoadRoot(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"Sports"}, containerNames(root))
	// The hard-coded container carries no data type, so the query matches nothing.
	assert.Empty(t, root.Containers[0].Contents)
	_, live := root.Containers[0].Extra(recipe.KeyLive)
	assert.False(t, live)
}

func TestLoadAllMergesByName(t *testing.T) {
	l, _ := newLoader(t, testAssets())

	root, err := l.LoadAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"News", "Sports"}, containerNames(root))
	assert.Equal(t, []string{"Match", "Headlines"}, contentTitles(root.Containers[1]))
}

func TestLoadRootIndexOutOfRange(t *testing.T) {
	l, _ := newLoader(t, testAssets())

	_, err := l.LoadRoot(context.Background(), 2)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = l.LoadRoot(context.Background(), -1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = l.LoadRecommendations(context.Background(), 1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestLoadRootPropagatesDownloadFailure(t *testing.T) {
	assets := testAssets()
	l, _ := newLoader(t, assets)
	delete(assets, "feeds/feed.json")

	_, err := l.LoadRoot(context.Background(), 0)
	require.Error(t, err)
	assert.False(t, l.Loaded())

	at, lastErr := l.LastLoad()
	assert.True(t, at.IsZero())
	assert.ErrorContains(t, lastErr, "feed 0")
}

func TestLastLoad(t *testing.T) {
	l, _ := newLoader(t, testAssets())
	at, err := l.LastLoad()
	assert.True(t, at.IsZero())
	assert.NoError(t, err)

	_, err = l.LoadRoot(context.Background(), 0)
	require.NoError(t, err)
	at, err = l.LastLoad()
	assert.False(t, at.IsZero())
	assert.NoError(t, err)
}

func TestLoadRootCancelledContext(t *testing.T) {
	l, _ := newLoader(t, testAssets())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.LoadRoot(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadRecommendations(t *testing.T) {
	l, _ := newLoader(t, testAssets())

	ids, err := l.LoadRecommendations(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "1", "3"}, ids)

	l.Navigator().Config.NumberOfGlobalRecommendations = 2
	ids, err = l.LoadRecommendations(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "1"}, ids)
}

func TestReloadRequired(t *testing.T) {
	l, _ := newLoader(t, testAssets())
	assert.Equal(t, 2, l.FeedCount())
	assert.Equal(t, 1, l.RecommendationFeedCount())
	assert.False(t, l.ReloadRequired())

	l.OnUpdate(data.ForPayload(""))
	assert.True(t, l.ReloadRequired())

	_, err := l.LoadRoot(context.Background(), 0)
	require.NoError(t, err)
	assert.False(t, l.ReloadRequired())

	l.SetReloadRequired(true)
	assert.True(t, l.ReloadRequired())
}

func TestSetNavigator(t *testing.T) {
	l, _ := newLoader(t, testAssets())
	require.Equal(t, 2, l.FeedCount())

	nav, err := LoadNavigator(testAssets(), "navigator.json")
	require.NoError(t, err)
	nav.GlobalRecipes = nav.GlobalRecipes[:1]
	l.SetNavigator(nav)

	assert.Equal(t, 1, l.FeedCount())
	assert.True(t, l.ReloadRequired())
	_, err = l.LoadRoot(context.Background(), 1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	l.SetNavigator(nil)
	assert.Same(t, nav, l.Navigator())
}
