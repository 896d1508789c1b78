// SPDX-License-Identifier: MIT

// Package parser turns raw feed payloads into generic trees of mappings,
// sequences and scalars, optionally narrowed by a format-specific query.
package parser

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrInvalidData is returned for empty or malformed payloads.
	ErrInvalidData = errors.New("invalid data")
	// ErrInvalidQuery is returned for empty or malformed queries and for
	// queries that select nothing.
	ErrInvalidQuery = errors.New("invalid query")
)

// Parser converts a payload of one format into a tree.
type Parser interface {
	// Format returns the name the parser is registered under.
	Format() string
	// Parse converts the whole payload using the format's default query.
	Parse(payload string) (any, error)
	// ParseWithQuery converts payload and returns the part selected by query.
	ParseWithQuery(payload, query string) (any, error)
}

// Registry maps format names to parsers. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]Parser
}

// NewRegistry returns a registry holding the given parsers.
func NewRegistry(parsers ...Parser) *Registry {
	r := &Registry{parsers: make(map[string]Parser, len(parsers))}
	for _, p := range parsers {
		r.parsers[p.Format()] = p
	}
	return r
}

// NewDefaultRegistry returns a registry holding the JSON and XML parsers.
func NewDefaultRegistry() *Registry {
	return NewRegistry(NewJSON(), NewXML())
}

// Add registers p under its format. It reports false and leaves the registry
// unchanged when the format is already taken.
func (r *Registry) Add(p Parser) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.parsers[p.Format()]; exists {
		return false
	}
	r.parsers[p.Format()] = p
	return true
}

// Get returns the parser for format.
func (r *Registry) Get(format string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[format]
	return p, ok
}

// Formats returns the sorted registered format names.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.parsers))
	for f := range r.parsers {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func checkInput(format, payload, query string) error {
	if payload == "" {
		return fmt.Errorf("%w: %s payload is empty", ErrInvalidData, format)
	}
	if query == "" {
		return fmt.Errorf("%w: %s query is empty", ErrInvalidQuery, format)
	}
	return nil
}
