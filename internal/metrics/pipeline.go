// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus metrics for the feed pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels shared by the pipeline counters.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeCancelled = "cancelled"
)

var (
	recipeCooks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipefeed_recipe_cooks_total",
		Help: "Recipe cooks by cooker and outcome",
	}, []string{"cooker", "outcome"}) // outcome=success|failure|cancelled

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipefeed_cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"}) // result=hit|miss|error

	cacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recipefeed_cache_invalidations_total",
		Help: "Total number of scheduled cache invalidations",
	})

	downloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipefeed_downloads_total",
		Help: "Payload downloads by downloader and outcome",
	}, []string{"downloader", "outcome"})

	translationSkips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipefeed_translation_skips_total",
		Help: "Items skipped during translation by reason",
	}, []string{"reason"}) // reason=value_not_found|invalid_model|unresolved_path

	asyncInflight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "recipefeed_async_tasks_inflight",
		Help: "Tracked asynchronous tasks per cooker",
	}, []string{"cooker"})
)

// RecordCook counts one recipe cook.
func RecordCook(cooker, outcome string) {
	recipeCooks.WithLabelValues(cooker, outcome).Inc()
}

// RecordCacheLookup counts a cache lookup; result is hit, miss or error.
func RecordCacheLookup(result string) {
	cacheLookups.WithLabelValues(result).Inc()
}

// IncCacheInvalidation counts one scheduled cache invalidation.
func IncCacheInvalidation() {
	cacheInvalidations.Inc()
}

// RecordDownload counts one downloader fetch.
func RecordDownload(downloader, outcome string) {
	downloads.WithLabelValues(downloader, outcome).Inc()
}

// RecordTranslationSkip counts an item dropped during translation.
func RecordTranslationSkip(reason string) {
	translationSkips.WithLabelValues(reason).Inc()
}

// SetAsyncInflight records the number of tracked async tasks for cooker.
func SetAsyncInflight(cooker string, n int) {
	asyncInflight.WithLabelValues(cooker).Set(float64(n))
}
