// SPDX-License-Identifier: MIT

package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestForPayload(t *testing.T) {
	d := ForPayload(`{"a":1}`)

	assert.NotEmpty(t, d.RequestID)
	assert.True(t, d.Complete)
	assert.Equal(t, TypeJSON, d.Content.Type)
	assert.Equal(t, 7, d.Content.Size)
	assert.Len(t, d.Content.Hash, 64)
	assert.Equal(t, `{"a":1}`, d.String())
	assert.WithinDuration(t, time.Now(), d.DownloadedAt, time.Second)

	assert.NotEqual(t, d.RequestID, ForPayload(`{"a":1}`).RequestID)
}

func TestEqualIgnoresTimestamp(t *testing.T) {
	a := ForPayload("<rss/>")
	b := *a
	b.DownloadedAt = a.DownloadedAt.Add(time.Hour)
	assert.True(t, a.Equal(&b))

	b.Complete = false
	assert.False(t, a.Equal(&b))

	c := *a
	c.WithMetadata("meta")
	assert.False(t, a.Equal(&c))

	var nilData *Data
	assert.True(t, nilData.Equal(nil))
	assert.Empty(t, nilData.Payload())
}

func TestDetectType(t *testing.T) {
	assert.Equal(t, TypeJSON, DetectType("  [1]"))
	assert.Equal(t, TypeXML, DetectType("\n<?xml version=\"1.0\"?><a/>"))
	assert.Equal(t, TypeRaw, DetectType("plain"))
	assert.Equal(t, TypeRaw, DetectType(""))
}
