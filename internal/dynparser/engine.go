// SPDX-License-Identifier: MIT

// Package dynparser cooks parser recipes: it parses a payload with the
// recipe's format and query, normalises the result into a list of mappings
// and translates each mapping into a model object.
package dynparser

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	xlog "github.com/ManuGH/recipefeed/internal/log"
	"github.com/ManuGH/recipefeed/internal/metrics"
	"github.com/ManuGH/recipefeed/internal/model"
	"github.com/ManuGH/recipefeed/internal/parser"
	"github.com/ManuGH/recipefeed/internal/recipe"
	"github.com/ManuGH/recipefeed/internal/translate"
	"github.com/ManuGH/recipefeed/internal/worker"
)

// CookerName is the value a recipe's cooker key must carry.
const CookerName = "DynamicParser"

// Recipe keys read by the engine.
const (
	KeyCooker          = "cooker"
	KeyFormat          = "format"
	KeyQuery           = "query"
	KeyModelType       = "modelType"
	KeyQueryResultType = "queryResultType"

	ResultTypeList = "[]"
	ResultTypeMap  = "{}"
)

var (
	// ErrInvalidRecipe is returned for recipes missing mandatory keys or
	// addressed to another cooker.
	ErrInvalidRecipe = errors.New("invalid parser recipe")
	// ErrParserNotFound is returned for unregistered formats.
	ErrParserNotFound = errors.New("parser not found")
	// ErrTranslatorNotFound is returned for unregistered translator names.
	ErrTranslatorNotFound = errors.New("translator not found")
)

var mandatoryKeys = []string{KeyFormat, translate.KeyMatchList, translate.KeyModel, KeyModelType, KeyCooker, KeyQuery}

//go:embed recipe.schema.json
var recipeSchemaDoc string

var recipeSchema = recipe.MustCompileSchema("dynparser-recipe", recipeSchemaDoc)

// Engine is the DynamicParser cooker.
type Engine struct {
	parsers     *parser.Registry
	translators *translate.Registry
	types       *model.Types
	reflective  *translate.Reflective

	batch atomic.Bool
	async atomic.Bool

	pool    *worker.Pool
	ownPool bool
	tracker *worker.Tracker

	logger zerolog.Logger
	tracer trace.Tracer
}

// Option customises an Engine.
type Option func(*Engine)

// WithPool runs asynchronous translation on p instead of a private pool.
func WithPool(p *worker.Pool) Option {
	return func(e *Engine) { e.pool = p }
}

// WithTypes replaces the model type registry.
func WithTypes(t *model.Types) Option {
	return func(e *Engine) { e.types = t }
}

// WithTranslators replaces the translator registry.
func WithTranslators(r *translate.Registry) Option {
	return func(e *Engine) { e.translators = r }
}

// New returns an engine with the JSON and XML parsers and the built-in
// translators registered, in non-batch synchronous mode.
func New(opts ...Option) *Engine {
	e := &Engine{
		parsers:     parser.NewDefaultRegistry(),
		translators: translate.Builtin(),
		types:       model.NewTypes(),
		logger:      xlog.WithComponent("dynparser"),
		tracer:      otel.Tracer("github.com/ManuGH/recipefeed/internal/dynparser"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.pool == nil {
		e.pool = worker.NewPool(0)
		e.ownPool = true
	}
	e.reflective = translate.NewReflective(e.types)
	e.tracker = worker.NewTracker(func(n int) { metrics.SetAsyncInflight(CookerName, n) })
	return e
}

// Name implements recipe.Cooker.
func (*Engine) Name() string { return CookerName }

// Configure sets the delivery mode used by Cook.
func (e *Engine) Configure(batch, async bool) {
	e.batch.Store(batch)
	e.async.Store(async)
}

// BatchMode reports whether Cook delivers one collection.
func (e *Engine) BatchMode() bool { return e.batch.Load() }

// AsyncMode reports whether Cook translates on the worker pool.
func (e *Engine) AsyncMode() bool { return e.async.Load() }

// AddTranslator registers t under name without overwriting.
func (e *Engine) AddTranslator(name string, t translate.Translator) bool {
	return e.translators.Add(name, t)
}

// AddParser registers p under its format without overwriting.
func (e *Engine) AddParser(p parser.Parser) bool {
	if p == nil {
		return false
	}
	return e.parsers.Add(p)
}

// Parser returns the parser registered for format.
func (e *Engine) Parser(format string) (parser.Parser, error) {
	p, ok := e.parsers.Get(format)
	if !ok {
		return nil, fmt.Errorf("%w: no parser for format %q", ErrParserNotFound, format)
	}
	return p, nil
}

// Types returns the model type registry.
func (e *Engine) Types() *model.Types { return e.types }

// ValidateRecipe checks that r carries every mandatory key and matches the
// parser recipe schema.
func ValidateRecipe(r *recipe.Recipe) error {
	if r == nil {
		return fmt.Errorf("%w: nil recipe", ErrInvalidRecipe)
	}
	for _, k := range mandatoryKeys {
		if !r.Contains(k) {
			return fmt.Errorf("%w: %s is missing %q", ErrInvalidRecipe, r.Name(), k)
		}
	}
	if err := recipeSchema.Validate(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecipe, err)
	}
	return nil
}

// CancelTranslations cancels every outstanding asynchronous translation.
// Cancelled batches deliver nothing further.
func (e *Engine) CancelTranslations() {
	if n := e.tracker.CancelAll(); n > 0 {
		e.logger.Info().Int("count", n).Str(xlog.FieldEvent, "dynparser.cancelled").Msg("cancelled translation tasks")
	}
}

// TasksInProgress reports whether asynchronous translations are outstanding.
func (e *Engine) TasksInProgress() bool { return e.tracker.Len() > 0 }

// Close stops the engine's private pool, if it owns one.
func (e *Engine) Close() {
	e.CancelTranslations()
	if e.ownPool {
		e.pool.Close()
	}
}

// Cook implements recipe.Cooker. It returns false when the recipe or input
// is rejected before translation starts; the reason is reported through
// cb.OnError.
func (e *Engine) Cook(ctx context.Context, r *recipe.Recipe, input any, params []string, cb recipe.Callbacks) bool {
	ctx, span := e.tracer.Start(ctx, "dynparser.Cook", trace.WithAttributes(
		attribute.String("recipe", r.Name()),
		attribute.Bool("batch", e.BatchMode()),
		attribute.Bool("async", e.AsyncMode()),
	))
	defer span.End()

	items, err := e.prepare(r, input, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordCook(CookerName, metrics.OutcomeFailure)
		cb.OnError(r, err)
		return false
	}
	span.SetAttributes(attribute.Int("items", len(items)))
	batch := e.BatchMode()

	if !e.AsyncMode() {
		e.translateAll(ctx, r, items, batch, cb.OnCooked, func(err error) { cb.OnError(r, err) })
		return true
	}

	task := worker.NewTask(context.WithoutCancel(ctx))
	e.tracker.Add(task)
	submitErr := e.pool.Submit(task.Context(), func(ctx context.Context) {
		defer func() {
			e.tracker.Remove(task)
			task.Finish()
		}()
		e.translateAll(ctx, r, items, batch,
			func(r *recipe.Recipe, out any, done bool) {
				task.Deliver(func() { cb.OnCooked(r, out, done) })
			},
			func(err error) {
				task.Deliver(func() { cb.OnError(r, err) })
			})
	})
	if submitErr != nil {
		e.tracker.Remove(task)
		task.Finish()
		cb.OnError(r, submitErr)
		return false
	}
	return true
}

// Stream implements recipe.Cooker. It emits each translated model in input
// order and closes the channel when done; a terminal error is emitted as the
// last Result. Items skipped during translation produce no Result.
func (e *Engine) Stream(ctx context.Context, r *recipe.Recipe, input any, params []string) <-chan recipe.Result {
	out := make(chan recipe.Result)
	go func() {
		defer close(out)
		send := func(res recipe.Result) bool {
			select {
			case out <- res:
				return true
			case <-ctx.Done():
				return false
			}
		}
		items, err := e.prepare(r, input, params)
		if err != nil {
			metrics.RecordCook(CookerName, metrics.OutcomeFailure)
			send(recipe.Result{Err: err})
			return
		}
		e.translateAll(ctx, r, items, false,
			func(_ *recipe.Recipe, v any, _ bool) {
				if v != nil {
					send(recipe.Result{Value: v})
				}
			},
			func(err error) { send(recipe.Result{Err: err}) })
	}()
	return out
}
