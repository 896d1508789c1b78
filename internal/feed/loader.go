// SPDX-License-Identifier: MIT

package feed

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/recipefeed/internal/data"
	xlog "github.com/ManuGH/recipefeed/internal/log"
	"github.com/ManuGH/recipefeed/internal/model"
	"github.com/ManuGH/recipefeed/internal/recipe"
	"github.com/ManuGH/recipefeed/internal/telemetry"
)

// RootName is the name of the container returned by LoadRoot and LoadAll.
const RootName = "Root"

// Loader runs the navigator's recipe chains. Payloads come from the data
// cooker; models come from the parser cooker.
type Loader struct {
	nav        atomic.Pointer[Navigator]
	dataLoader recipe.Cooker
	parser     recipe.Cooker

	reloadRequired atomic.Bool
	loaded         atomic.Bool

	mu         sync.Mutex
	lastLoadAt time.Time
	lastErr    error

	logger zerolog.Logger
	tracer trace.Tracer
}

// NewLoader returns a loader for nav. dataLoader must emit payload strings
// and parser must accept them as input.
func NewLoader(nav *Navigator, dataLoader, parser recipe.Cooker) *Loader {
	l := &Loader{
		dataLoader: dataLoader,
		parser:     parser,
		logger:     xlog.WithComponent("feed"),
		tracer:     otel.Tracer("github.com/ManuGH/recipefeed/internal/feed"),
	}
	l.nav.Store(nav)
	return l
}

// Navigator returns the navigator the loader runs.
func (l *Loader) Navigator() *Navigator { return l.nav.Load() }

// SetNavigator swaps the navigator for subsequent loads and marks the
// content as stale. Loads already running keep the previous navigator.
func (l *Loader) SetNavigator(nav *Navigator) {
	if nav == nil {
		return
	}
	l.nav.Store(nav)
	l.reloadRequired.Store(true)
	l.logger.Info().
		Str(xlog.FieldEvent, "feed.navigator_swapped").
		Int("feeds", len(nav.GlobalRecipes)).
		Msg("navigator replaced")
}

// FeedCount returns the number of global recipes.
func (l *Loader) FeedCount() int { return len(l.Navigator().GlobalRecipes) }

// RecommendationFeedCount returns the number of recommendation recipes.
func (l *Loader) RecommendationFeedCount() int { return len(l.Navigator().RecommendationRecipes) }

// OnUpdate marks the content as stale. It makes Loader a cache update
// listener.
func (l *Loader) OnUpdate(*data.Data) {
	l.reloadRequired.Store(true)
	l.logger.Info().Str(xlog.FieldEvent, "feed.reload_required").Msg("cached feed data invalidated")
}

// ReloadRequired reports whether cached data was invalidated since the last
// successful load.
func (l *Loader) ReloadRequired() bool { return l.reloadRequired.Load() }

// SetReloadRequired overrides the reload flag.
func (l *Loader) SetReloadRequired(v bool) { l.reloadRequired.Store(v) }

// Loaded reports whether any feed has been loaded successfully.
func (l *Loader) Loaded() bool { return l.loaded.Load() }

// LastLoad returns the time of the last successful load and the error of
// the last load when it failed.
func (l *Loader) LastLoad() (time.Time, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastLoadAt, l.lastErr
}

func (l *Loader) recordLoad(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastErr = err
	if err == nil {
		l.lastLoadAt = time.Now()
	}
}

// LoadRoot runs the global recipe at index into a fresh root container.
func (l *Loader) LoadRoot(ctx context.Context, index int) (*model.Container, error) {
	root := model.NewContainer(RootName)
	if err := l.Load(ctx, index, root); err != nil {
		return nil, err
	}
	return root, nil
}

// LoadAll runs every global recipe into one root container. Categories with
// the same name across feeds share a container.
func (l *Loader) LoadAll(ctx context.Context) (*model.Container, error) {
	root := model.NewContainer(RootName)
	for i := range l.Navigator().GlobalRecipes {
		if err := l.Load(ctx, i, root); err != nil {
			return nil, err
		}
	}
	return root, nil
}

// Load runs the global recipe at index and merges its categories into root.
// Categories whose name matches an existing sub-container of root reuse it.
// Contents parsed more than once are shared between their containers, and a
// container never holds the same content twice.
func (l *Loader) Load(ctx context.Context, index int, root *model.Container) (err error) {
	nav := l.Navigator()
	if index < 0 || index >= len(nav.GlobalRecipes) {
		return fmt.Errorf("%w: global recipe %d of %d", ErrIndexOutOfRange, index, len(nav.GlobalRecipes))
	}
	g := nav.GlobalRecipes[index]

	ctx, span := l.tracer.Start(ctx, "feed.Load")
	defer span.End()
	logger := xlog.WithContext(ctx, l.logger).With().Int(xlog.FieldFeed, index).Logger()

	var containers []*model.Container
	if g.Categories.Name != "" {
		containers = []*model.Container{merge(root, model.NewContainer(g.Categories.Name))}
	} else {
		containers, err = l.categories(ctx, root, g.Categories)
	}
	if err == nil {
		err = l.contents(ctx, g, root, containers)
	}

	contents := 0
	for _, c := range containers {
		contents += c.ContentCount()
	}
	span.SetAttributes(telemetry.FeedAttributes(index, len(containers), contents)...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error().Err(err).Str(xlog.FieldEvent, "feed.load_failed").Msg("feed load failed")
		err = fmt.Errorf("feed %d: %w", index, err)
		l.recordLoad(err)
		return err
	}

	l.recordLoad(nil)
	l.loaded.Store(true)
	l.reloadRequired.Store(false)
	logger.Debug().
		Int("containers", len(containers)).
		Int("contents", contents).
		Str(xlog.FieldEvent, "feed.loaded").
		Msg("feed loaded")
	return nil
}

// categories cooks the categories chain and returns the distinct containers
// it produced, in order, after merging them into root.
func (l *Loader) categories(ctx context.Context, root *model.Container, p RecipePair) ([]*model.Container, error) {
	var out []*model.Container
	seen := make(map[*model.Container]bool)
	err := l.chain(ctx, p.DataLoaderRecipe, p.DynamicParserRecipe, nil, func(v any) error {
		c, ok := v.(*model.Container)
		if !ok {
			return fmt.Errorf("categories recipe %s produced %T, want a container", p.DynamicParserRecipe.Name(), v)
		}
		c = merge(root, c)
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
		return nil
	})
	return out, err
}

// contents cooks the contents chain once per container, passing the
// container's data type as the parser parameter. Contents already in root
// are reused by id.
func (l *Loader) contents(ctx context.Context, g GlobalRecipes, root *model.Container, containers []*model.Container) error {
	parserRecipe := g.Contents.DynamicParserRecipe
	if g.RecipeConfig != nil {
		parserRecipe = parserRecipe.With(recipe.KeyLive, g.RecipeConfig.LiveContent)
	}
	parsed := make(map[string]*model.Content)
	for c := range root.All() {
		if c.ID != "" {
			parsed[c.ID] = c
		}
	}

	for _, container := range containers {
		params := []string{container.ExtraString(recipe.KeyDataType)}
		contentType, hasContentType := container.Extra(recipe.KeyContentType)

		err := l.chain(ctx, g.Contents.DataLoaderRecipe, parserRecipe, params, func(v any) error {
			content, ok := v.(*model.Content)
			if !ok {
				return fmt.Errorf("contents recipe %s produced %T, want a content", parserRecipe.Name(), v)
			}
			if content.ID != "" {
				if prev, dup := parsed[content.ID]; dup {
					content = prev
				} else {
					parsed[content.ID] = content
				}
			}
			if hasContentType && contentType != nil {
				content.SetExtra(recipe.KeyContentType, contentType)
			}
			if !slices.Contains(container.Contents, content) {
				container.AddContent(content)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("container %q: %w", container.Name, err)
		}
	}
	return nil
}

// LoadRecommendations runs the recommendation recipe at index and returns
// the distinct content ids in the order they were parsed, capped by the
// navigator's global recommendation limit when it is not negative.
func (l *Loader) LoadRecommendations(ctx context.Context, index int) ([]string, error) {
	nav := l.Navigator()
	if index < 0 || index >= len(nav.RecommendationRecipes) {
		return nil, fmt.Errorf("%w: recommendation recipe %d of %d", ErrIndexOutOfRange, index, len(nav.RecommendationRecipes))
	}
	p := nav.RecommendationRecipes[index].Contents

	ctx, span := l.tracer.Start(ctx, "feed.LoadRecommendations")
	defer span.End()

	limit := nav.Config.NumberOfGlobalRecommendations
	ids := []string{}
	seen := make(map[string]bool)
	err := l.chain(ctx, p.DataLoaderRecipe, p.DynamicParserRecipe, nil, func(v any) error {
		id, ok := v.(string)
		if !ok {
			return fmt.Errorf("recommendation recipe %s produced %T, want a string", p.DynamicParserRecipe.Name(), v)
		}
		if !seen[id] && (limit < 0 || len(ids) < limit) {
			seen[id] = true
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("recommendations %d: %w", index, err)
	}
	return ids, nil
}

// chain cooks dataRecipe and feeds every payload it emits through
// parserRecipe, calling fn for each model. The first error ends the chain.
func (l *Loader) chain(ctx context.Context, dataRecipe, parserRecipe *recipe.Recipe, params []string, fn func(any) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for res := range l.dataLoader.Stream(ctx, dataRecipe, nil, nil) {
		if res.Err != nil {
			return res.Err
		}
		if err := l.parse(ctx, parserRecipe, res.Value, params, fn); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (l *Loader) parse(ctx context.Context, r *recipe.Recipe, payload any, params []string, fn func(any) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for res := range l.parser.Stream(ctx, r, payload, params) {
		if res.Err != nil {
			return res.Err
		}
		if err := fn(res.Value); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// merge adds c to root unless a sub-container with the same name exists,
// and returns the container now holding that name.
func merge(root, c *model.Container) *model.Container {
	for _, sub := range root.Containers {
		if found := sub.FindContainerByName(c.Name); found != nil {
			return found
		}
	}
	root.AddContainer(c)
	return c
}
