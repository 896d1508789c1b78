// SPDX-License-Identifier: MIT

package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Built-in model type names.
const (
	TypeContent   = "Content"
	TypeContainer = "ContentContainer"
	TypeString    = "String"
)

// ContentDescriptor describes Content.
func ContentDescriptor() *Descriptor {
	return Describe(TypeContent, NewContent).
		String(FieldTitle, func(c *Content, v string) { c.Title = v }).
		String(FieldDescription, func(c *Content, v string) { c.Description = v }).
		String(FieldID, func(c *Content, v string) { c.ID = v }).
		String(FieldSubtitle, func(c *Content, v string) { c.Subtitle = v }).
		String(FieldURL, func(c *Content, v string) { c.URL = v }).
		String(FieldCardImageURL, func(c *Content, v string) { c.CardImageURL = v }).
		String(FieldBackgroundImageURL, func(c *Content, v string) { c.BackgroundImageURL = v }).
		List(FieldClosedCaptionURLs, func(c *Content, v []any) { c.ClosedCaptionURLs = stringList(v) }).
		List(FieldTags, func(c *Content, v []any) { c.Tags = stringList(v) }).
		List(FieldRecommendations, func(c *Content, v []any) { c.Recommendations = stringList(v) }).
		String(FieldAvailableDate, func(c *Content, v string) { c.AvailableDate = v }).
		Bool(FieldSubscriptionRequired, func(c *Content, v bool) { c.SubscriptionRequired = v }).
		String(FieldChannelID, func(c *Content, v string) { c.ChannelID = v }).
		Int64(FieldDuration, func(c *Content, v int64) { c.Duration = v }).
		List(FieldAdCuePoints, func(c *Content, v []any) { c.AdCuePoints = int64List(v) }).
		String(FieldStudio, func(c *Content, v string) { c.Studio = v }).
		String(FieldFormat, func(c *Content, v string) { c.Format = v }).
		String(FieldAdID, func(c *Content, v string) { c.AdID = v }).
		Extras(func(c *Content, k string, v any) { c.SetExtra(k, v) }).
		Build()
}

// ContainerDescriptor describes Container.
func ContainerDescriptor() *Descriptor {
	return Describe(TypeContainer, func() *Container { return &Container{} }).
		String(FieldName, func(c *Container, v string) { c.Name = v }).
		Extras(func(c *Container, k string, v any) { c.SetExtra(k, v) }).
		FromValue(func(s string) (any, error) { return NewContainer(s), nil }).
		Build()
}

// StringDescriptor describes plain string models, built only from a value.
func StringDescriptor() *Descriptor {
	return Describe(TypeString, func() *string { return new(string) }).
		FromValue(func(s string) (any, error) { return s, nil }).
		Build()
}

// ParseList accepts a list value or a string holding a JSON array and
// returns its elements. Other strings become a one-element list.
func ParseList(v any) ([]any, error) {
	switch t := v.(type) {
	case []any:
		return t, nil
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, nil
	case string:
		s := strings.TrimSpace(t)
		if strings.HasPrefix(s, "[") {
			var out []any
			if err := json.Unmarshal([]byte(s), &out); err != nil {
				return nil, fmt.Errorf("expecting json array: %w", err)
			}
			return out, nil
		}
		if s == "" {
			return []any{}, nil
		}
		return []any{t}, nil
	default:
		return nil, fmt.Errorf("cannot use %T as a list", v)
	}
}

func stringList(v []any) []string {
	out := make([]string, 0, len(v))
	for _, e := range v {
		switch t := e.(type) {
		case string:
			out = append(out, t)
		default:
			if s := stringify(t); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func int64List(v []any) []int64 {
	out := make([]int64, 0, len(v))
	for _, e := range v {
		switch t := e.(type) {
		case int:
			out = append(out, int64(t))
		case int64:
			out = append(out, t)
		case float64:
			out = append(out, int64(t))
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
				out = append(out, n)
			}
		}
	}
	return out
}
