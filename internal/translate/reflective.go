// SPDX-License-Identifier: MIT

package translate

import (
	"fmt"

	"github.com/rs/zerolog"

	xlog "github.com/ManuGH/recipefeed/internal/log"
	"github.com/ManuGH/recipefeed/internal/metrics"
	"github.com/ManuGH/recipefeed/internal/model"
	"github.com/ManuGH/recipefeed/internal/pathexpr"
	"github.com/ManuGH/recipefeed/internal/recipe"
)

// Reflective populates models through their descriptor tables. Match-list
// fields the model does not declare are stored in its extras.
type Reflective struct {
	types  *model.Types
	logger zerolog.Logger
}

// NewReflective returns the default translator over types.
func NewReflective(types *model.Types) *Reflective {
	return &Reflective{types: types, logger: xlog.WithComponent("translate")}
}

// Name implements Translator.
func (*Reflective) Name() string { return "Reflective" }

// Translate implements Translator.
func (t *Reflective) Translate(src map[string]any, r *recipe.Recipe) (any, error) {
	name := r.String(KeyModel)
	d, ok := t.types.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrModelNotFound, name)
	}
	matches, err := Matches(r)
	if err != nil {
		return nil, err
	}

	for _, m := range matches {
		if m.Field == ModelValue {
			return t.fromValue(d, src, m)
		}
	}

	instance := d.New()
	for _, m := range matches {
		v := pathexpr.Resolve(src, m.Path)
		if v == nil {
			metrics.RecordTranslationSkip("unresolved_path")
			t.logger.Debug().
				Str(xlog.FieldRecipe, r.Name()).
				Str(xlog.FieldPath, m.Path).
				Str(xlog.FieldField, m.Field).
				Str(xlog.FieldEvent, "translate.path_unresolved").
				Msg("match path did not resolve, skipping field")
			continue
		}
		if err := t.assign(d, instance, m.Field, v); err != nil {
			return nil, err
		}
	}

	for _, key := range []string{recipe.KeyDataType, recipe.KeyContentType} {
		p, ok := reservedPath(r, key)
		if !ok {
			continue
		}
		if v := pathexpr.Resolve(src, p); v != nil {
			s, _ := asString(v)
			if err := t.extra(d, instance, key, s); err != nil {
				return nil, err
			}
		}
	}
	if r.Contains(recipe.KeyLive) {
		if err := t.extra(d, instance, recipe.KeyLive, r.Bool(recipe.KeyLive)); err != nil {
			return nil, err
		}
	}
	return instance, nil
}

func (t *Reflective) fromValue(d *model.Descriptor, src map[string]any, m Match) (any, error) {
	v := pathexpr.Resolve(src, m.Path)
	if v == nil {
		return nil, fmt.Errorf("%w: %q for %s", ErrValueNotFound, m.Path, d.Name())
	}
	s, err := asString(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranslation, err)
	}
	out, err := d.FromValue(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranslation, err)
	}
	return out, nil
}

func (t *Reflective) assign(d *model.Descriptor, instance any, field string, v any) error {
	f, ok := d.Field(field)
	if !ok {
		t.logger.Debug().
			Str(xlog.FieldField, field).
			Str(xlog.FieldEvent, "translate.field_to_extras").
			Msg("model has no such field, storing in extras")
		return t.extra(d, instance, field, v)
	}
	coerced, err := Coerce(f.Kind, v)
	if err != nil {
		return fmt.Errorf("%w: %s.%s: %v", ErrTranslation, d.Name(), field, err)
	}
	if err := f.Set(instance, coerced); err != nil {
		return fmt.Errorf("%w: %v", ErrTranslation, err)
	}
	return nil
}

func (t *Reflective) extra(d *model.Descriptor, instance any, key string, v any) error {
	if !d.SetExtra(instance, key, v) {
		return fmt.Errorf("%w: %s has no field %q and no extras", ErrTranslation, d.Name(), key)
	}
	return nil
}
