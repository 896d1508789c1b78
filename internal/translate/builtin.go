// SPDX-License-Identifier: MIT

package translate

import "github.com/ManuGH/recipefeed/internal/model"

// ContentTranslator populates model.Content from feed items.
type ContentTranslator struct{}

func (ContentTranslator) Name() string { return "ContentTranslator" }

func (ContentTranslator) Instantiate() *model.Content { return model.NewContent() }

// SetMember accepts nil values as intentionally absent.
func (ContentTranslator) SetMember(c *model.Content, field string, value any) bool {
	if c == nil || field == "" {
		return false
	}
	if value == nil {
		return true
	}
	str := func() string { s, _ := asString(value); return s }
	switch field {
	case model.FieldTitle:
		c.Title = str()
	case model.FieldDescription:
		c.Description = str()
	case model.FieldID:
		c.ID = str()
	case model.FieldSubtitle:
		c.Subtitle = str()
	case model.FieldURL:
		c.URL = str()
	case model.FieldCardImageURL:
		c.CardImageURL = str()
	case model.FieldBackgroundImageURL:
		c.BackgroundImageURL = str()
	case model.FieldAvailableDate:
		c.AvailableDate = str()
	case model.FieldChannelID:
		c.ChannelID = str()
	case model.FieldStudio:
		c.Studio = str()
	case model.FieldFormat:
		c.Format = str()
	case model.FieldAdID:
		c.AdID = str()
	case model.FieldTags, model.FieldRecommendations, model.FieldClosedCaptionURLs, model.FieldAdCuePoints:
		list, err := model.ParseList(value)
		if err != nil {
			return false
		}
		d := model.ContentDescriptor()
		f, _ := d.Field(field)
		return f.Set(c, list) == nil
	case model.FieldSubscriptionRequired:
		b, ok := value.(bool)
		if !ok {
			return false
		}
		c.SubscriptionRequired = b
	case model.FieldDuration:
		n, err := asInt(value, 64)
		if err != nil {
			return false
		}
		c.Duration = n
	default:
		c.SetExtra(field, value)
	}
	return true
}

// Validate requires title, description, url and both image urls.
func (ContentTranslator) Validate(c *model.Content) bool { return c.Valid() }

// ContainerTranslator populates model.Container from category items.
type ContainerTranslator struct{}

func (ContainerTranslator) Name() string { return "ContentContainerTranslator" }

func (ContainerTranslator) Instantiate() *model.Container { return &model.Container{} }

// SetMember rejects nil values: every container match must resolve.
func (ContainerTranslator) SetMember(c *model.Container, field string, value any) bool {
	if c == nil || field == "" || value == nil {
		return false
	}
	if field == model.FieldName {
		name, ok := value.(string)
		if !ok {
			return false
		}
		c.Name = name
		return true
	}
	c.SetExtra(field, value)
	return true
}

// Validate requires a name.
func (ContainerTranslator) Validate(c *model.Container) bool { return c.Valid() }
