// SPDX-License-Identifier: MIT

package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Kind is the value type a descriptor field accepts.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindInt64
	KindFloat64
	KindFloat32
	KindBool
	KindInt8
	KindInt16
	KindRune
	KindList
)

var kindNames = [...]string{"string", "int", "int64", "float64", "float32", "bool", "int8", "int16", "rune", "list"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ErrFieldType is returned when a setter receives a value of the wrong Go type.
var ErrFieldType = errors.New("field type mismatch")

// Field is one settable member of a model type.
type Field struct {
	Name string
	Kind Kind
	set  func(model, value any) error
}

// Set assigns value, which must already have the Go type matching Kind.
func (f Field) Set(model, value any) error {
	return f.set(model, value)
}

// Descriptor describes how to build and populate one model type.
type Descriptor struct {
	name      string
	newFn     func() any
	fields    map[string]Field
	setExtra  func(model any, key string, value any)
	fromValue func(string) (any, error)
}

// Name returns the model type name.
func (d *Descriptor) Name() string { return d.name }

// New returns a fresh, empty model instance.
func (d *Descriptor) New() any { return d.newFn() }

// Field returns the declared field called name.
func (d *Descriptor) Field(name string) (Field, bool) {
	f, ok := d.fields[name]
	return f, ok
}

// FieldNames returns the sorted declared field names.
func (d *Descriptor) FieldNames() []string {
	out := make([]string, 0, len(d.fields))
	for n := range d.fields {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// HasExtras reports whether undeclared fields can be stored on the model.
func (d *Descriptor) HasExtras() bool { return d.setExtra != nil }

// SetExtra stores value under key in the model's extras. It reports false
// when the model type has no extras.
func (d *Descriptor) SetExtra(model any, key string, value any) bool {
	if d.setExtra == nil {
		return false
	}
	d.setExtra(model, key, value)
	return true
}

// CanBuildFromValue reports whether the model has a one-string constructor.
func (d *Descriptor) CanBuildFromValue() bool { return d.fromValue != nil }

// FromValue builds a model from a single string.
func (d *Descriptor) FromValue(s string) (any, error) {
	if d.fromValue == nil {
		return nil, fmt.Errorf("model %s cannot be built from a single value", d.name)
	}
	return d.fromValue(s)
}

// Builder assembles a Descriptor for model type T.
type Builder[T any] struct {
	d *Descriptor
}

// Describe starts a descriptor for T named name; newFn creates empty instances.
func Describe[T any](name string, newFn func() *T) *Builder[T] {
	return &Builder[T]{d: &Descriptor{
		name:   name,
		newFn:  func() any { return newFn() },
		fields: make(map[string]Field),
	}}
}

func field[T, V any](b *Builder[T], name string, kind Kind, set func(*T, V)) *Builder[T] {
	b.d.fields[name] = Field{Name: name, Kind: kind, set: func(model, value any) error {
		m, ok := model.(*T)
		if !ok {
			return fmt.Errorf("%w: model %T is not %s", ErrFieldType, model, b.d.name)
		}
		v, ok := value.(V)
		if !ok {
			return fmt.Errorf("%w: %s.%s wants %s, got %T", ErrFieldType, b.d.name, name, kind, value)
		}
		set(m, v)
		return nil
	}}
	return b
}

func (b *Builder[T]) String(name string, set func(*T, string)) *Builder[T] {
	return field(b, name, KindString, set)
}

func (b *Builder[T]) Int(name string, set func(*T, int)) *Builder[T] {
	return field(b, name, KindInt, set)
}

func (b *Builder[T]) Int64(name string, set func(*T, int64)) *Builder[T] {
	return field(b, name, KindInt64, set)
}

func (b *Builder[T]) Float64(name string, set func(*T, float64)) *Builder[T] {
	return field(b, name, KindFloat64, set)
}

func (b *Builder[T]) Float32(name string, set func(*T, float32)) *Builder[T] {
	return field(b, name, KindFloat32, set)
}

func (b *Builder[T]) Bool(name string, set func(*T, bool)) *Builder[T] {
	return field(b, name, KindBool, set)
}

func (b *Builder[T]) Int8(name string, set func(*T, int8)) *Builder[T] {
	return field(b, name, KindInt8, set)
}

func (b *Builder[T]) Int16(name string, set func(*T, int16)) *Builder[T] {
	return field(b, name, KindInt16, set)
}

func (b *Builder[T]) Rune(name string, set func(*T, rune)) *Builder[T] {
	return field(b, name, KindRune, set)
}

// List declares a field receiving []any.
func (b *Builder[T]) List(name string, set func(*T, []any)) *Builder[T] {
	return field(b, name, KindList, set)
}

// Extras declares where undeclared fields are stored.
func (b *Builder[T]) Extras(set func(*T, string, any)) *Builder[T] {
	b.d.setExtra = func(model any, key string, value any) {
		if m, ok := model.(*T); ok {
			set(m, key, value)
		}
	}
	return b
}

// FromValue declares the one-string constructor used for ModelValue matches.
func (b *Builder[T]) FromValue(build func(string) (any, error)) *Builder[T] {
	b.d.fromValue = build
	return b
}

// Build returns the finished descriptor.
func (b *Builder[T]) Build() *Descriptor { return b.d }

// Types maps model type names to descriptors. It is safe for concurrent use.
type Types struct {
	mu    sync.RWMutex
	types map[string]*Descriptor
}

// NewTypes returns a registry pre-loaded with Content, ContentContainer and String.
func NewTypes() *Types {
	t := &Types{types: make(map[string]*Descriptor)}
	t.Register(ContentDescriptor())
	t.Register(ContainerDescriptor())
	t.Register(StringDescriptor())
	return t
}

// Register adds or replaces d.
func (t *Types) Register(d *Descriptor) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.types[d.Name()] = d
}

// Get returns the descriptor for name. Dotted qualified names such as
// "com.example.model.Content" fall back to their last segment.
func (t *Types) Get(name string) (*Descriptor, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if d, ok := t.types[name]; ok {
		return d, true
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		d, ok := t.types[name[i+1:]]
		return d, ok
	}
	return nil, false
}
