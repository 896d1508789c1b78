// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldTaskID    = "task_id"
	FieldRecipe    = "recipe"
	FieldCooker    = "cooker"
	FieldFeed      = "feed"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldFormat    = "format"
	FieldField     = "field"
	FieldMatch     = "match"

	// Cache fields
	FieldCacheKey = "cache_key"
	FieldBackend  = "backend"

	// Path / URL fields
	FieldPath = "path"
	FieldURL  = "url"
)
