// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recipefeed_http_request_duration_seconds",
		Help:    "HTTP request latencies in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recipefeed_http_requests_in_flight",
		Help: "Current number of HTTP requests being served",
	})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recipefeed_http_response_size_bytes",
		Help:    "HTTP response sizes in bytes",
		Buckets: prometheus.ExponentialBuckets(100, 10, 8),
	}, []string{"method", "path", "status"})
)

// Metrics records Prometheus metrics for HTTP requests, labelled by route
// pattern rather than raw path.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			httpRequestsInFlight.Inc()
			defer httpRequestsInFlight.Dec()

			sw := wrap(w)
			next.ServeHTTP(sw, r)

			path := routePattern(r)
			status := strconv.Itoa(sw.statusCode)
			httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
			if sw.bytesWritten > 0 {
				httpResponseSize.WithLabelValues(r.Method, path, status).Observe(float64(sw.bytesWritten))
			}
		})
	}
}

// routePattern returns the matched chi pattern, or "unmatched" so unknown
// paths do not create new label values.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
