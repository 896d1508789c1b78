// SPDX-License-Identifier: MIT

// Package recipe defines the immutable, named configuration bag that drives
// every stage of the feed pipeline.
package recipe

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ManuGH/recipefeed/internal/pathexpr"
)

// Reserved keys copied into model extras regardless of the match list.
const (
	KeyContentType = "contentType"
	KeyDataType    = "keyDataType"
	KeyLive        = "live"
)

// Recipe is an immutable named mapping from string keys to strings, lists or
// nested mappings. Keys may be slash-delimited paths into nested mappings.
type Recipe struct {
	name string
	m    map[string]any
}

// FromMap builds a recipe from a deep copy of m.
func FromMap(name string, m map[string]any) *Recipe {
	cp, _ := deepCopy(m).(map[string]any)
	if cp == nil {
		cp = map[string]any{}
	}
	return &Recipe{name: name, m: cp}
}

// Name returns the recipe name.
func (r *Recipe) Name() string {
	if r == nil {
		return ""
	}
	return r.name
}

// Len returns the number of top-level keys.
func (r *Recipe) Len() int {
	if r == nil {
		return 0
	}
	return len(r.m)
}

// Empty reports whether the recipe carries no keys.
func (r *Recipe) Empty() bool { return r.Len() == 0 }

// Keys returns the sorted top-level keys.
func (r *Recipe) Keys() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, 0, len(r.m))
	for k := range r.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Item returns the raw value stored under key, or nil.
func (r *Recipe) Item(key string) any {
	if r == nil || key == "" {
		return nil
	}
	if v, ok := r.m[key]; ok {
		return v
	}
	if strings.Contains(key, pathexpr.Separator) {
		return pathexpr.Resolve(r.m, key)
	}
	return nil
}

// Contains reports whether key resolves to a value.
func (r *Recipe) Contains(key string) bool {
	return r.Item(key) != nil
}

// String returns the value under key rendered as a string. Scalars other than
// strings are formatted; mappings and lists yield "".
func (r *Recipe) String(key string) string {
	switch v := r.Item(key).(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	case map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// StringList returns the list stored under key with every element rendered
// as a string. A single string value yields a one-element list.
func (r *Recipe) StringList(key string) []string {
	switch v := r.Item(key).(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
				continue
			}
			out = append(out, fmt.Sprint(e))
		}
		return out
	case []string:
		return append([]string(nil), v...)
	case string:
		return []string{v}
	default:
		return nil
	}
}

// Bool returns the boolean under key. Strings "true"/"false" are accepted.
func (r *Recipe) Bool(key string) bool {
	switch v := r.Item(key).(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

// Int returns the integer under key, truncating floats and parsing strings.
func (r *Recipe) Int(key string) int {
	switch v := r.Item(key).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			f, _ := v.Float64()
			return int(f)
		}
		return int(n)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		return n
	default:
		return 0
	}
}

// Map returns a deep copy of the nested mapping under key, or nil.
func (r *Recipe) Map(key string) map[string]any {
	m, ok := r.Item(key).(map[string]any)
	if !ok {
		return nil
	}
	cp, _ := deepCopy(m).(map[string]any)
	return cp
}

// Sub returns the nested mapping under key as a recipe named after key.
func (r *Recipe) Sub(key string) *Recipe {
	m, ok := r.Item(key).(map[string]any)
	if !ok {
		return nil
	}
	return FromMap(key, m)
}

// AsMap returns a deep copy of the whole recipe mapping.
func (r *Recipe) AsMap() map[string]any {
	if r == nil {
		return map[string]any{}
	}
	cp, _ := deepCopy(r.m).(map[string]any)
	return cp
}

// With returns a copy of the recipe with key set to value.
func (r *Recipe) With(key string, value any) *Recipe {
	next := FromMap(r.Name(), r.AsMap())
	next.m[key] = deepCopy(value)
	return next
}

// Rename returns a copy of the recipe carrying a different name.
func (r *Recipe) Rename(name string) *Recipe {
	next := FromMap(name, r.AsMap())
	return next
}

// MarshalJSON encodes the recipe mapping.
func (r *Recipe) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	return json.Marshal(r.m)
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = deepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	default:
		return v
	}
}
