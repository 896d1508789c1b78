// SPDX-License-Identifier: MIT

package translate

import (
	"fmt"

	"github.com/ManuGH/recipefeed/internal/metrics"
	"github.com/ManuGH/recipefeed/internal/pathexpr"
	"github.com/ManuGH/recipefeed/internal/recipe"
)

// ModelTranslator is the hand-written alternative to the descriptor-driven
// default. Implementations decide how each match-list field lands on T.
type ModelTranslator[T any] interface {
	Name() string
	// Instantiate returns an empty model.
	Instantiate() T
	// SetMember assigns value to field and reports whether it was accepted.
	SetMember(model T, field string, value any) bool
	// Validate reports whether the populated model is usable.
	Validate(model T) bool
}

// Adapt turns mt into a Translator. A rejected member is ErrTranslation; a
// model that fails validation is skipped by returning (nil, nil).
func Adapt[T any](mt ModelTranslator[T]) Translator {
	return adapted[T]{mt: mt}
}

type adapted[T any] struct {
	mt ModelTranslator[T]
}

func (a adapted[T]) Name() string { return a.mt.Name() }

func (a adapted[T]) Translate(src map[string]any, r *recipe.Recipe) (any, error) {
	matches, err := Matches(r)
	if err != nil {
		return nil, err
	}
	m := a.mt.Instantiate()
	for _, match := range matches {
		if !a.mt.SetMember(m, match.Field, pathexpr.Resolve(src, match.Path)) {
			return nil, fmt.Errorf("%w: %s rejected member %q", ErrTranslation, a.mt.Name(), match.Field)
		}
	}
	if p, ok := reservedPath(r, recipe.KeyDataType); ok {
		if !a.mt.SetMember(m, recipe.KeyDataType, pathexpr.Resolve(src, p)) {
			return nil, fmt.Errorf("%w: %s rejected member %q", ErrTranslation, a.mt.Name(), recipe.KeyDataType)
		}
	}
	if r.Contains(recipe.KeyLive) {
		a.mt.SetMember(m, recipe.KeyLive, r.Bool(recipe.KeyLive))
	}
	if p, ok := reservedPath(r, recipe.KeyContentType); ok {
		if v := pathexpr.Resolve(src, p); v != nil && !a.mt.SetMember(m, recipe.KeyContentType, v) {
			return nil, fmt.Errorf("%w: %s rejected member %q", ErrTranslation, a.mt.Name(), recipe.KeyContentType)
		}
	}
	if !a.mt.Validate(m) {
		metrics.RecordTranslationSkip("invalid_model")
		return nil, nil
	}
	return m, nil
}
