// SPDX-License-Identifier: MIT

package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strings"

	"github.com/ManuGH/recipefeed/internal/log"
)

// Recoverer ensures that panics inside any downstream handler do not crash
// the process. It logs the panic with context and returns a 500 JSON.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			buf := make([]byte, 8192)
			n := runtime.Stack(buf, false)
			reqID := log.RequestIDFromContext(r.Context())

			logger := log.WithComponentFromContext(r.Context(), "panic-recovery")
			logger.Error().
				Str(log.FieldEvent, "panic.recovered").
				Str("method", r.Method).
				Str(log.FieldPath, strings.ToValidUTF8(r.URL.Path, "")).
				Str("remote_addr", r.RemoteAddr).
				Interface("panic_value", rec).
				Str("stack_trace", string(buf[:n])).
				Msg("panic recovered in HTTP handler")

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":     "internal_error",
				"requestId": reqID,
			})
		}()
		next.ServeHTTP(w, r)
	})
}
