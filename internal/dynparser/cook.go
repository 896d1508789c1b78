// SPDX-License-Identifier: MIT

package dynparser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	xlog "github.com/ManuGH/recipefeed/internal/log"
	"github.com/ManuGH/recipefeed/internal/metrics"
	"github.com/ManuGH/recipefeed/internal/parser"
	"github.com/ManuGH/recipefeed/internal/pathexpr"
	"github.com/ManuGH/recipefeed/internal/recipe"
	"github.com/ManuGH/recipefeed/internal/translate"
)

// prepare validates the recipe and input, runs the query and normalises the
// result into the list of mappings to translate.
func (e *Engine) prepare(r *recipe.Recipe, input any, params []string) ([]map[string]any, error) {
	if err := ValidateRecipe(r); err != nil {
		return nil, err
	}
	if cooker := r.String(KeyCooker); cooker != CookerName {
		return nil, fmt.Errorf("%w: cooker is %q, want %q", ErrInvalidRecipe, cooker, CookerName)
	}
	payload, err := payloadString(input)
	if err != nil {
		return nil, err
	}

	query := r.String(KeyQuery)
	if pathexpr.ContainsParameterPlaceholder(query) {
		if query, err = pathexpr.InjectParameters(query, params); err != nil {
			return nil, err
		}
	}

	p, err := e.Parser(r.String(KeyFormat))
	if err != nil {
		return nil, err
	}
	result, err := p.ParseWithQuery(payload, query)
	if err != nil {
		return nil, err
	}
	if err := checkResultType(r.String(KeyQueryResultType), result); err != nil {
		return nil, err
	}
	return Normalize(result), nil
}

func payloadString(input any) (string, error) {
	switch v := input.(type) {
	case nil:
		return "", fmt.Errorf("%w: input is nil", parser.ErrInvalidData)
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", fmt.Errorf("%w: unsupported input type %T", parser.ErrInvalidData, input)
	}
}

func checkResultType(want string, result any) error {
	switch want {
	case ResultTypeList:
		if _, ok := result.([]any); !ok {
			return fmt.Errorf("%w: query result is %T, recipe expects a list", parser.ErrInvalidQuery, result)
		}
	case ResultTypeMap:
		if _, ok := result.(map[string]any); !ok {
			return fmt.Errorf("%w: query result is %T, recipe expects a map", parser.ErrInvalidQuery, result)
		}
	}
	return nil
}

// Normalize converts a query result into a list of mappings. Lists of
// mappings are de-duplicated; scalar lists are wrapped into single-entry
// mappings keyed by the scalar type, e.g. {"StringKey": "x"}; a single
// mapping or scalar becomes a one-element list.
func Normalize(result any) []map[string]any {
	switch v := result.(type) {
	case nil:
		return []map[string]any{}
	case map[string]any:
		return []map[string]any{v}
	case []any:
		if len(v) == 0 {
			return []map[string]any{}
		}
		if _, ok := v[0].(map[string]any); ok {
			return dedupe(v)
		}
		key := ScalarKey(v[0])
		out := make([]map[string]any, 0, len(v))
		for _, s := range v {
			if s != nil {
				out = append(out, map[string]any{key: s})
			}
		}
		return out
	default:
		return []map[string]any{{ScalarKey(v): v}}
	}
}

// ScalarKey names the single key used to wrap a scalar query result.
func ScalarKey(v any) string {
	switch v.(type) {
	case string:
		return "StringKey"
	case int, int32:
		return "IntegerKey"
	case int64, uint64:
		return "LongKey"
	case float32, float64:
		return "DoubleKey"
	case bool:
		return "BooleanKey"
	default:
		return "ObjectKey"
	}
}

func dedupe(list []any) []map[string]any {
	seen := make(map[string]struct{}, len(list))
	out := make([]map[string]any, 0, len(list))
	for _, e := range list {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		key, err := json.Marshal(m)
		if err == nil {
			if _, dup := seen[string(key)]; dup {
				continue
			}
			seen[string(key)] = struct{}{}
		}
		out = append(out, m)
	}
	return out
}

// translateAll translates items in order and reports through emit and fail.
//
// Non-batch mode emits every model as it is produced, with done set on the
// last item; a skipped last item yields a trailing emit(nil, true). Batch
// mode emits one []any. An empty list emits (nil, true). A value that cannot
// be found skips its item; any other translation error is reported once
// through fail and ends the batch. Nothing is reported after ctx ends.
func (e *Engine) translateAll(
	ctx context.Context,
	r *recipe.Recipe,
	items []map[string]any,
	batch bool,
	emit func(r *recipe.Recipe, out any, done bool),
	fail func(err error),
) {
	logger := xlog.WithContext(ctx, e.logger).With().Str(xlog.FieldRecipe, r.Name()).Logger()
	if len(items) == 0 {
		if ctx.Err() == nil {
			metrics.RecordCook(CookerName, metrics.OutcomeSuccess)
			emit(r, nil, true)
		}
		return
	}

	collected := make([]any, 0, len(items))
	for i, item := range items {
		if ctx.Err() != nil {
			metrics.RecordCook(CookerName, metrics.OutcomeCancelled)
			return
		}
		done := i == len(items)-1
		out, err := e.translateOne(r, item)
		if err != nil {
			if !errors.Is(err, translate.ErrValueNotFound) {
				metrics.RecordCook(CookerName, metrics.OutcomeFailure)
				logger.Error().Err(err).Int("index", i).Str(xlog.FieldEvent, "dynparser.translate_failed").Msg("translation failed")
				fail(err)
				return
			}
			metrics.RecordTranslationSkip("value_not_found")
			logger.Warn().Err(err).Int("index", i).Str(xlog.FieldEvent, "dynparser.item_skipped").Msg("skipping item")
			out = nil
		}
		switch {
		case out != nil && batch:
			collected = append(collected, out)
		case out != nil:
			emit(r, out, done)
		case done && !batch:
			emit(r, nil, true)
		}
	}
	if ctx.Err() != nil {
		metrics.RecordCook(CookerName, metrics.OutcomeCancelled)
		return
	}
	if batch {
		emit(r, collected, true)
	}
	metrics.RecordCook(CookerName, metrics.OutcomeSuccess)
}

func (e *Engine) translateOne(r *recipe.Recipe, item map[string]any) (any, error) {
	if !r.Contains(translate.KeyTranslator) {
		return e.reflective.Translate(item, r)
	}
	name := r.String(translate.KeyTranslator)
	t, ok := e.translators.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not registered", ErrTranslatorNotFound, name)
	}
	return t.Translate(item, r)
}
