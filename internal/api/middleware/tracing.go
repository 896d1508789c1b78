// SPDX-License-Identifier: MIT

// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/recipefeed/internal/telemetry"
)

// Tracing creates a middleware that adds OpenTelemetry tracing to HTTP requests.
func Tracing(tracerName string) func(http.Handler) http.Handler {
	tracer := telemetry.Tracer(tracerName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// W3C trace context from upstream callers.
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()

			sw := wrap(w)
			next.ServeHTTP(sw, r.WithContext(ctx))

			span.SetName(r.Method + " " + routePattern(r))
			span.SetAttributes(telemetry.HTTPAttributes(r.Method, r.URL.String(), sw.statusCode)...)
			if sw.statusCode >= 500 {
				span.SetStatus(codes.Error, http.StatusText(sw.statusCode))
			} else {
				span.SetStatus(codes.Ok, "")
			}
		})
	}
}
