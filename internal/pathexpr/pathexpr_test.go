// SPDX-License-Identifier: MIT

package pathexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tree := map[string]any{
		"a": map[string]any{"b": 5},
		"items": []any{
			map[string]any{"title": "first"},
			map[string]any{"title": "second"},
		},
		"leaf": "x",
	}

	tests := []struct {
		name string
		tree map[string]any
		path string
		want any
	}{
		{"nested key", tree, "a/b", 5},
		{"sub tree", tree, "a", map[string]any{"b": 5}},
		{"sequence index", tree, "items/1/title", "second"},
		{"index out of range", tree, "items/2/title", nil},
		{"non numeric index", tree, "items/x", nil},
		{"missing key", map[string]any{}, "x/y", nil},
		{"through scalar", tree, "leaf/deeper", nil},
		{"leading separator", tree, "/a/b", 5},
		{"empty path", tree, "", nil},
		{"nil tree", nil, "a", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.tree, tt.path))
		})
	}
}

func TestPathHelpers(t *testing.T) {
	tree := map[string]any{"a": map[string]any{"b": map[string]any{"c": "v"}}}

	assert.True(t, HasPath(tree, "a/b/c"))
	assert.False(t, HasPath(tree, "a/b/d"))
	assert.Equal(t, "c", KeyFromPath("a/b/c"))
	assert.Equal(t, "a", KeyFromPath("a"))
	assert.Equal(t, map[string]any{"c": "v"}, MapByPath(tree, "a/b/c"))
	assert.Equal(t, tree, MapByPath(tree, "a"))
	assert.Nil(t, MapByPath(tree, "a/b/c/d"))
}

func TestInjectParameters(t *testing.T) {
	tests := []struct {
		name     string
		template string
		args     []string
		want     string
		wantErr  bool
	}{
		{"single", "pre$$par0$$post", []string{"X"}, "preXpost", false},
		{"repeated", "$$par0$$/$$par0$$", []string{"a"}, "a/a", false},
		{"ordered", "$$par1$$-$$par0$$", []string{"a", "b"}, "b-a", false},
		{"no placeholders no args", "plain", nil, "plain", false},
		{"too few args", "$$par0$$$$par1$$", []string{"a"}, "", true},
		{"too many args", "$$par0$$", []string{"a", "b"}, "", true},
		{"gap in indices", "$$par1$$", []string{"a"}, "", true},
		{"args without placeholders", "plain", []string{"a"}, "", true},
		{"over maximum", "x", make([]string, MaxParams+1), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InjectParameters(tt.template, tt.args)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedInjection)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContainsParameterPlaceholder(t *testing.T) {
	assert.True(t, ContainsParameterPlaceholder("$.items[?(@.id=='$$par0$$')]"))
	assert.False(t, ContainsParameterPlaceholder("$$token$$"))
	assert.False(t, ContainsParameterPlaceholder("$$par$$"))
	assert.Equal(t, []int{0, 2}, Placeholders("$$par2$$ $$par0$$ $$par2$$"))
}
