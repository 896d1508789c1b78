// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/recipefeed/internal/feed"
	"github.com/ManuGH/recipefeed/internal/log"
)

type errorBody struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeNotFound writes a 404 Not Found response
func writeNotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found"})
}

// writeBadRequest writes a 400 with detail.
func writeBadRequest(w http.ResponseWriter, detail string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Detail: detail})
}

// writeLoadError maps a feed load failure to a response. Unknown indices are
// 404; anything else failed upstream and is a 502.
func writeLoadError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, feed.ErrIndexOutOfRange) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Detail: err.Error()})
		return
	}
	reqID := log.RequestIDFromContext(r.Context())
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Error().
		Err(err).
		Str(log.FieldEvent, "api.feed_load_failed").
		Str(log.FieldPath, r.URL.Path).
		Msg("feed load failed")
	writeJSON(w, http.StatusBadGateway, errorBody{Error: "feed_load_failed", Detail: err.Error(), RequestID: reqID})
}
