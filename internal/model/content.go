// SPDX-License-Identifier: MIT

// Package model holds the media domain objects produced by translation and
// the field descriptor tables that populate them.
package model

import (
	"maps"
	"reflect"
	"slices"
	"strconv"
)

// Match-list field names understood by Content.
const (
	FieldTitle                = "mTitle"
	FieldDescription          = "mDescription"
	FieldID                   = "mId"
	FieldSubtitle             = "mSubtitle"
	FieldURL                  = "mUrl"
	FieldCardImageURL         = "mCardImageUrl"
	FieldBackgroundImageURL   = "mBackgroundImageUrl"
	FieldClosedCaptionURLs    = "mCloseCaptionUrls"
	FieldTags                 = "mTags"
	FieldRecommendations      = "mRecommendations"
	FieldAvailableDate        = "mAvailableDate"
	FieldSubscriptionRequired = "mSubscriptionRequired"
	FieldChannelID            = "mChannelId"
	FieldDuration             = "mDuration"
	FieldAdCuePoints          = "mAdCuePoints"
	FieldStudio               = "mStudio"
	FieldFormat               = "mFormat"
	FieldAdID                 = "adId"
)

// Content is a single playable media item.
type Content struct {
	ID                   string         `json:"id,omitempty"`
	Title                string         `json:"title"`
	Subtitle             string         `json:"subtitle,omitempty"`
	Description          string         `json:"description"`
	URL                  string         `json:"url"`
	CardImageURL         string         `json:"cardImageUrl"`
	BackgroundImageURL   string         `json:"backgroundImageUrl"`
	ClosedCaptionURLs    []string       `json:"closedCaptionUrls,omitempty"`
	Tags                 []string       `json:"tags,omitempty"`
	Recommendations      []string       `json:"recommendations,omitempty"`
	AvailableDate        string         `json:"availableDate,omitempty"`
	SubscriptionRequired bool           `json:"subscriptionRequired"`
	ChannelID            string         `json:"channelId,omitempty"`
	Duration             int64          `json:"duration,omitempty"`
	AdCuePoints          []int64        `json:"adCuePoints,omitempty"`
	Studio               string         `json:"studio,omitempty"`
	Format               string         `json:"format,omitempty"`
	AdID                 string         `json:"adId,omitempty"`
	Extras               map[string]any `json:"extras,omitempty"`
}

// NewContent returns an empty Content.
func NewContent() *Content { return &Content{} }

// SetExtra stores an attribute that has no declared field.
func (c *Content) SetExtra(key string, value any) {
	if c.Extras == nil {
		c.Extras = make(map[string]any)
	}
	c.Extras[key] = value
}

// Extra returns the extra stored under key.
func (c *Content) Extra(key string) (any, bool) {
	v, ok := c.Extras[key]
	return v, ok
}

// ExtraString returns the extra under key rendered as a string.
func (c *Content) ExtraString(key string) string {
	return stringify(c.Extras[key])
}

// Valid reports whether every mandatory field is set.
func (c *Content) Valid() bool {
	return c != nil &&
		c.Title != "" &&
		c.Description != "" &&
		c.URL != "" &&
		c.CardImageURL != "" &&
		c.BackgroundImageURL != ""
}

// Equal reports whether c and o carry the same field values and extras.
func (c *Content) Equal(o *Content) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.ID == o.ID &&
		c.Title == o.Title &&
		c.Subtitle == o.Subtitle &&
		c.Description == o.Description &&
		c.URL == o.URL &&
		c.CardImageURL == o.CardImageURL &&
		c.BackgroundImageURL == o.BackgroundImageURL &&
		slices.Equal(c.ClosedCaptionURLs, o.ClosedCaptionURLs) &&
		slices.Equal(c.Tags, o.Tags) &&
		slices.Equal(c.Recommendations, o.Recommendations) &&
		c.AvailableDate == o.AvailableDate &&
		c.SubscriptionRequired == o.SubscriptionRequired &&
		c.ChannelID == o.ChannelID &&
		c.Duration == o.Duration &&
		slices.Equal(c.AdCuePoints, o.AdCuePoints) &&
		c.Studio == o.Studio &&
		c.Format == o.Format &&
		c.AdID == o.AdID &&
		extrasEqual(c.Extras, o.Extras)
}

func extrasEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	return maps.EqualFunc(a, b, func(x, y any) bool { return reflect.DeepEqual(x, y) })
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
