// SPDX-License-Identifier: MIT

package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/recipefeed/internal/model"
	"github.com/ManuGH/recipefeed/internal/recipe"
)

func TestContentTranslator(t *testing.T) {
	tr, ok := Builtin().Get("ContentTranslator")
	require.True(t, ok)

	r := recipe.FromMap("contents", map[string]any{
		"matchList": []any{
			"title@mTitle", "desc@mDescription", "url@mUrl", "card@mCardImageUrl",
			"bg@mBackgroundImageUrl", "tags@mTags", "dur@mDuration", "absent@mStudio", "extra@mood",
		},
		recipe.KeyLive:        true,
		recipe.KeyContentType: "kind@contentType",
	})
	src := map[string]any{
		"title": "T", "desc": "D", "url": "U", "card": "C", "bg": "B",
		"tags": `["x","y"]`, "dur": "30", "extra": "calm", "kind": "movie",
	}

	got, err := tr.Translate(src, r)
	require.NoError(t, err)
	c := got.(*model.Content)
	assert.Equal(t, "T", c.Title)
	assert.Equal(t, []string{"x", "y"}, c.Tags)
	assert.Equal(t, int64(30), c.Duration)
	assert.Empty(t, c.Studio)
	assert.Equal(t, "calm", c.Extras["mood"])
	assert.Equal(t, true, c.Extras[recipe.KeyLive])
	assert.Equal(t, "movie", c.Extras[recipe.KeyContentType])
}

func TestContentTranslatorSkipsInvalidModel(t *testing.T) {
	tr, _ := Builtin().Get("ContentTranslator")
	r := recipe.FromMap("contents", map[string]any{"matchList": []any{"title@mTitle"}})

	got, err := tr.Translate(map[string]any{"title": "only a title"}, r)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestContentTranslatorRejectsBadMember(t *testing.T) {
	tr, _ := Builtin().Get("ContentTranslator")
	r := recipe.FromMap("contents", map[string]any{"matchList": []any{"paid@mSubscriptionRequired"}})

	_, err := tr.Translate(map[string]any{"paid": "yes"}, r)
	assert.ErrorIs(t, err, ErrTranslation)
}

func TestContainerTranslator(t *testing.T) {
	tr, ok := Builtin().Get("ContentContainerTranslator")
	require.True(t, ok)
	r := recipe.FromMap("categories", map[string]any{
		"matchList":        []any{"name@mName"},
		recipe.KeyDataType: "id@keyDataType",
	})

	got, err := tr.Translate(map[string]any{"name": "News", "id": 3}, r)
	require.NoError(t, err)
	c := got.(*model.Container)
	assert.Equal(t, "News", c.Name)
	assert.Equal(t, 3, c.Extras[recipe.KeyDataType])

	_, err = tr.Translate(map[string]any{"id": 3}, r)
	assert.ErrorIs(t, err, ErrTranslation, "unresolved name is rejected")
}

func TestRegistry(t *testing.T) {
	reg := Builtin()
	assert.Equal(t, []string{"ContentContainerTranslator", "ContentTranslator"}, reg.Names())
	assert.False(t, reg.Add("ContentTranslator", NewReflective(model.NewTypes())))
	assert.False(t, reg.Add("", NewReflective(model.NewTypes())))
	assert.True(t, reg.Add("Reflective", NewReflective(model.NewTypes())))
	_, ok := reg.Get("Reflective")
	assert.True(t, ok)
}
