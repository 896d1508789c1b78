// SPDX-License-Identifier: MIT

package model

import (
	"iter"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// FieldName is the match-list field holding a container's name.
const FieldName = "mName"

// Container is a named node of the browse tree. It exclusively owns its
// contents and sub-containers.
type Container struct {
	Name       string         `json:"name"`
	Contents   []*Content     `json:"contents,omitempty"`
	Containers []*Container   `json:"containers,omitempty"`
	Extras     map[string]any `json:"extras,omitempty"`
}

// NewContainer returns an empty container named name.
func NewContainer(name string) *Container {
	return &Container{Name: name}
}

// AddContent appends a content leaf.
func (c *Container) AddContent(content *Content) *Container {
	if content != nil {
		c.Contents = append(c.Contents, content)
	}
	return c
}

// AddContainer appends a sub-container.
func (c *Container) AddContainer(sub *Container) *Container {
	if sub != nil {
		c.Containers = append(c.Containers, sub)
	}
	return c
}

// ContentCount returns the number of direct contents.
func (c *Container) ContentCount() int { return len(c.Contents) }

// ContainerCount returns the number of direct sub-containers.
func (c *Container) ContainerCount() int { return len(c.Containers) }

// HasSubContainers reports whether c has any sub-container.
func (c *Container) HasSubContainers() bool { return len(c.Containers) > 0 }

// SetExtra stores an attribute that has no declared field.
func (c *Container) SetExtra(key string, value any) {
	if c.Extras == nil {
		c.Extras = make(map[string]any)
	}
	c.Extras[key] = value
}

// Extra returns the extra stored under key.
func (c *Container) Extra(key string) (any, bool) {
	v, ok := c.Extras[key]
	return v, ok
}

// ExtraString returns the extra under key rendered as a string.
func (c *Container) ExtraString(key string) string {
	return stringify(c.Extras[key])
}

// Valid reports whether the container has a name.
func (c *Container) Valid() bool { return c != nil && c.Name != "" }

// FindContainerByName returns the first container in c's subtree, c
// included, whose name matches. Names are compared after Unicode NFC
// normalisation and case folding.
func (c *Container) FindContainerByName(name string) *Container {
	if c == nil {
		return nil
	}
	if sameName(c.Name, name) {
		return c
	}
	for _, sub := range c.Containers {
		if found := sub.FindContainerByName(name); found != nil {
			return found
		}
	}
	return nil
}

// FindContentByID returns the first content in the flattened tree with id.
func (c *Container) FindContentByID(id string) *Content {
	for content := range c.All() {
		if content.ID == id {
			return content
		}
	}
	return nil
}

// RemoveEmptySubContainers drops direct sub-containers that hold neither
// contents nor sub-containers.
func (c *Container) RemoveEmptySubContainers() {
	kept := c.Containers[:0]
	for _, sub := range c.Containers {
		if sub.ContentCount() > 0 || sub.HasSubContainers() {
			kept = append(kept, sub)
		}
	}
	for i := len(kept); i < len(c.Containers); i++ {
		c.Containers[i] = nil
	}
	c.Containers = kept
}

// All yields every content leaf of the tree in pre-order: a container's own
// contents first, then each sub-container recursively.
func (c *Container) All() iter.Seq[*Content] {
	return func(yield func(*Content) bool) {
		c.walk(yield)
	}
}

func (c *Container) walk(yield func(*Content) bool) bool {
	if c == nil {
		return true
	}
	for _, content := range c.Contents {
		if !yield(content) {
			return false
		}
	}
	for _, sub := range c.Containers {
		if !sub.walk(yield) {
			return false
		}
	}
	return true
}

// Flatten returns every content leaf in the order produced by All.
func (c *Container) Flatten() []*Content {
	var out []*Content
	for content := range c.All() {
		out = append(out, content)
	}
	return out
}

// Equal compares name, flattened contents and extras.
func (c *Container) Equal(o *Container) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.Name != o.Name || !extrasEqual(c.Extras, o.Extras) {
		return false
	}
	a, b := c.Flatten(), o.Flatten()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func sameName(a, b string) bool {
	return strings.EqualFold(norm.NFC.String(a), norm.NFC.String(b))
}
