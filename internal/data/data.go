// SPDX-License-Identifier: MIT

// Package data defines the envelope that carries downloaded payloads
// through the pipeline and the cache.
package data

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type classifies a payload.
type Type string

const (
	TypeJSON Type = "json"
	TypeXML  Type = "xml"
	TypeRaw  Type = "raw"
)

// DetectType guesses the payload type from its first significant byte.
func DetectType(payload string) Type {
	s := strings.TrimLeft(payload, " \t\r\n\ufeff")
	switch {
	case strings.HasPrefix(s, "{"), strings.HasPrefix(s, "["):
		return TypeJSON
	case strings.HasPrefix(s, "<"):
		return TypeXML
	default:
		return TypeRaw
	}
}

// Record is one payload with its hash and size.
type Record struct {
	Payload string `json:"payload" msgpack:"payload"`
	Type    Type   `json:"type" msgpack:"type"`
	Hash    string `json:"hash" msgpack:"hash"`
	Size    int    `json:"size" msgpack:"size"`
}

// NewRecord computes the SHA-256 hash and byte size of payload.
func NewRecord(payload string) Record {
	sum := sha256.Sum256([]byte(payload))
	return Record{
		Payload: payload,
		Type:    DetectType(payload),
		Hash:    hex.EncodeToString(sum[:]),
		Size:    len(payload),
	}
}

// Data wraps a downloaded or cached payload.
type Data struct {
	RequestID    string    `json:"requestId" msgpack:"request_id"`
	Content      Record    `json:"content" msgpack:"content"`
	Metadata     *Record   `json:"metadata,omitempty" msgpack:"metadata,omitempty"`
	DownloadedAt time.Time `json:"downloadedAt" msgpack:"downloaded_at"`
	Complete     bool      `json:"complete" msgpack:"complete"`
}

// ForPayload returns a complete envelope for payload with a fresh request id.
func ForPayload(payload string) *Data {
	return &Data{
		RequestID:    uuid.NewString(),
		Content:      NewRecord(payload),
		DownloadedAt: time.Now(),
		Complete:     true,
	}
}

// WithMetadata attaches a metadata payload and returns d.
func (d *Data) WithMetadata(payload string) *Data {
	r := NewRecord(payload)
	d.Metadata = &r
	return d
}

// Payload returns the content payload, or "" for a nil envelope.
func (d *Data) Payload() string {
	if d == nil {
		return ""
	}
	return d.Content.Payload
}

// String returns the content payload.
func (d *Data) String() string { return d.Payload() }

// Equal compares every field except DownloadedAt.
func (d *Data) Equal(o *Data) bool {
	if d == nil || o == nil {
		return d == o
	}
	if (d.Metadata == nil) != (o.Metadata == nil) {
		return false
	}
	if d.Metadata != nil && *d.Metadata != *o.Metadata {
		return false
	}
	return d.RequestID == o.RequestID &&
		d.Content == o.Content &&
		d.Complete == o.Complete
}
