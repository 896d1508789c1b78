// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/ManuGH/recipefeed/internal/log"
)

// HeaderRequestID carries the request correlation id in both directions.
const HeaderRequestID = "X-Request-ID"

const maxRequestIDLen = 128

// RequestID propagates the caller's X-Request-ID, or a fresh uuid when the
// header is missing or unusable, into the response and the log context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if !usableRequestID(id) {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(log.ContextWithRequestID(r.Context(), id)))
	})
}

// usableRequestID accepts printable ASCII ids of up to maxRequestIDLen bytes.
func usableRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
