// SPDX-License-Identifier: MIT

package middleware

import "net/http"

// statusWriter wraps http.ResponseWriter to capture status and size.
type statusWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
	written      bool
}

func wrap(w http.ResponseWriter) *statusWriter {
	if sw, ok := w.(*statusWriter); ok {
		return sw
	}
	return &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

// WriteHeader captures the status code.
func (sw *statusWriter) WriteHeader(statusCode int) {
	if !sw.written {
		sw.statusCode = statusCode
		sw.written = true
	}
	sw.ResponseWriter.WriteHeader(statusCode)
}

// Write captures the number of bytes written.
func (sw *statusWriter) Write(b []byte) (int, error) {
	if !sw.written {
		sw.WriteHeader(http.StatusOK)
	}
	n, err := sw.ResponseWriter.Write(b)
	sw.bytesWritten += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sw *statusWriter) Unwrap() http.ResponseWriter { return sw.ResponseWriter }
