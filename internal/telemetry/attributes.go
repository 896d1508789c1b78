// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by pipeline spans.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPURLKey        = "http.url"

	RecipeNameKey   = "recipe.name"
	RecipeCookerKey = "recipe.cooker"
	RecipeFormatKey = "recipe.format"
	RecipeParamsKey = "recipe.params"

	CacheBackendKey = "cache.backend"
	CacheHitKey     = "cache.hit"

	DownloaderKey = "download.impl"

	FeedIndexKey      = "feed.index"
	FeedContainersKey = "feed.containers"
	FeedContentsKey   = "feed.contents"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP client span attributes.
func HTTPAttributes(method, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// RecipeAttributes describes the recipe being cooked. Empty values are
// omitted.
func RecipeAttributes(name, cooker, format string, params int) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	if name != "" {
		attrs = append(attrs, attribute.String(RecipeNameKey, name))
	}
	if cooker != "" {
		attrs = append(attrs, attribute.String(RecipeCookerKey, cooker))
	}
	if format != "" {
		attrs = append(attrs, attribute.String(RecipeFormatKey, format))
	}
	return append(attrs, attribute.Int(RecipeParamsKey, params))
}

// CacheAttributes records a cache lookup outcome.
func CacheAttributes(backend string, hit bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(CacheBackendKey, backend),
		attribute.Bool(CacheHitKey, hit),
	}
}

// FeedAttributes summarises a loaded feed tree.
func FeedAttributes(index, containers, contents int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(FeedIndexKey, index),
		attribute.Int(FeedContainersKey, containers),
		attribute.Int(FeedContentsKey, contents),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
