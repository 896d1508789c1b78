// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"time"

	"github.com/ManuGH/recipefeed/internal/log"
)

// Logging writes one access log entry per request.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := wrap(w)
		next.ServeHTTP(sw, r)

		logger := log.WithComponentFromContext(r.Context(), "api")
		ev := logger.Info()
		if sw.statusCode >= 500 {
			ev = logger.Error()
		}
		ev.Str(log.FieldEvent, "http.request").
			Str("method", r.Method).
			Str(log.FieldPath, r.URL.Path).
			Int("status", sw.statusCode).
			Int("bytes", sw.bytesWritten).
			Dur("duration", time.Since(start)).
			Str("remote_addr", r.RemoteAddr).
			Msg("request served")
	})
}
