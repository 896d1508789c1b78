// SPDX-License-Identifier: MIT

// Package translate converts extracted mappings into typed model objects,
// either through registered translators or through the descriptor-driven
// default guided by a recipe's match list.
package translate

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ManuGH/recipefeed/internal/model"
	"github.com/ManuGH/recipefeed/internal/recipe"
)

// Recipe keys read during translation.
const (
	KeyMatchList  = "matchList"
	KeyModel      = "model"
	KeyTranslator = "translator"

	// MatchSeparator splits a match-list entry into path and field.
	MatchSeparator = "@"
	// ModelValue marks a match whose value is the model itself.
	ModelValue = "ModelValue"
)

var (
	// ErrValueNotFound is returned when a value needed to build the model
	// cannot be resolved.
	ErrValueNotFound = errors.New("value not found")
	// ErrTranslation is returned when a translator cannot populate a model.
	ErrTranslation = errors.New("translation failed")
	// ErrModelNotFound is returned when the recipe names an unknown model type.
	ErrModelNotFound = errors.New("model type not found")
)

// Translator builds one model object from src.
//
// A nil model with a nil error means the item was rejected and should be
// skipped.
type Translator interface {
	Name() string
	Translate(src map[string]any, r *recipe.Recipe) (any, error)
}

// Match is one parsed match-list entry.
type Match struct {
	Path  string
	Field string
}

// ParseMatch splits "path/to/value@field".
func ParseMatch(entry string) (Match, error) {
	i := strings.Index(entry, MatchSeparator)
	if i < 0 {
		return Match{}, fmt.Errorf("%w: match %q has no %q separator", ErrTranslation, entry, MatchSeparator)
	}
	m := Match{Path: entry[:i], Field: entry[i+1:]}
	if m.Field == "" {
		return Match{}, fmt.Errorf("%w: match %q has no field name", ErrTranslation, entry)
	}
	return m, nil
}

// Matches parses every match-list entry of r.
func Matches(r *recipe.Recipe) ([]Match, error) {
	entries := r.StringList(KeyMatchList)
	out := make([]Match, 0, len(entries))
	for _, e := range entries {
		m, err := ParseMatch(e)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// reservedPath returns the path half of a reserved "path@field" key.
func reservedPath(r *recipe.Recipe, key string) (string, bool) {
	if !r.Contains(key) {
		return "", false
	}
	v := r.String(key)
	if i := strings.Index(v, MatchSeparator); i >= 0 {
		return v[:i], true
	}
	return v, true
}

// Registry maps names to translators. It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	translators map[string]Translator
}

// NewRegistry returns a registry holding ts.
func NewRegistry(ts ...Translator) *Registry {
	r := &Registry{translators: make(map[string]Translator, len(ts))}
	for _, t := range ts {
		r.translators[t.Name()] = t
	}
	return r
}

// Builtin returns a registry with the Content and ContentContainer translators.
func Builtin() *Registry {
	return NewRegistry(Adapt[*model.Content](ContentTranslator{}), Adapt[*model.Container](ContainerTranslator{}))
}

// Add registers t under name. It reports false when name is empty or taken.
func (r *Registry) Add(name string, t Translator) bool {
	if name == "" || t == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.translators[name]; exists {
		return false
	}
	r.translators[name] = t
	return true
}

// Get returns the translator registered under name.
func (r *Registry) Get(name string) (Translator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.translators[name]
	return t, ok
}

// Names returns the sorted registered names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.translators))
	for n := range r.translators {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
