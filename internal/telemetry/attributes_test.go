// SPDX-License-Identifier: MIT

package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, kv := range attrs {
		m[string(kv.Key)] = kv.Value
	}
	return m
}

func TestHTTPAttributes(t *testing.T) {
	m := attrMap(HTTPAttributes("GET", "http://feeds.example/a.json", 200))
	assert.Equal(t, "GET", m[HTTPMethodKey].AsString())
	assert.Equal(t, "http://feeds.example/a.json", m[HTTPURLKey].AsString())
	assert.Equal(t, int64(200), m[HTTPStatusCodeKey].AsInt64())
}

func TestRecipeAttributes_OmitsEmpty(t *testing.T) {
	attrs := RecipeAttributes("categories", "", "json", 2)
	m := attrMap(attrs)
	assert.Len(t, attrs, 3)
	assert.Equal(t, "categories", m[RecipeNameKey].AsString())
	assert.Equal(t, "json", m[RecipeFormatKey].AsString())
	assert.Equal(t, int64(2), m[RecipeParamsKey].AsInt64())
	_, ok := m[RecipeCookerKey]
	assert.False(t, ok)
}

func TestCacheAndFeedAttributes(t *testing.T) {
	m := attrMap(CacheAttributes("redis", true))
	assert.Equal(t, "redis", m[CacheBackendKey].AsString())
	assert.True(t, m[CacheHitKey].AsBool())

	m = attrMap(FeedAttributes(1, 4, 20))
	assert.Equal(t, int64(1), m[FeedIndexKey].AsInt64())
	assert.Equal(t, int64(4), m[FeedContainersKey].AsInt64())
	assert.Equal(t, int64(20), m[FeedContentsKey].AsInt64())
}

func TestErrorAttributes(t *testing.T) {
	m := attrMap(ErrorAttributes("invalid_recipe"))
	assert.True(t, m[ErrorKey].AsBool())
	assert.Equal(t, "invalid_recipe", m[ErrorTypeKey].AsString())
}
