// SPDX-License-Identifier: MIT

package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/vmware-labs/yaml-jsonpath/pkg/yamlpath"
	"gopkg.in/yaml.v3"
)

// FormatJSON is the registry name of the JSON parser.
const FormatJSON = "json"

// JSON evaluates JSONPath queries over JSON payloads.
type JSON struct{}

// NewJSON returns the JSON parser.
func NewJSON() *JSON { return &JSON{} }

// Format implements Parser.
func (*JSON) Format() string { return FormatJSON }

// Parse implements Parser using the root query "$".
func (p *JSON) Parse(payload string) (any, error) {
	return p.ParseWithQuery(payload, "$")
}

// ParseWithQuery implements Parser. A definite path yields the single
// matched value and fails when nothing matches. Wildcards, deep scans,
// filters, unions and slices yield a list of every match.
func (p *JSON) ParseWithQuery(payload, query string) (any, error) {
	if err := checkInput(FormatJSON, payload, query); err != nil {
		return nil, err
	}
	canonical, err := canonicalJSON(payload)
	if err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(canonical, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	path, err := yamlpath.NewPath(query)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidQuery, query, err)
	}
	nodes, err := path.Find(&doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidQuery, query, err)
	}

	values := make([]any, 0, len(nodes))
	for _, n := range nodes {
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("%w: decode match: %v", ErrInvalidData, err)
		}
		values = append(values, normalize(v))
	}

	if isIndefinite(query) {
		return values, nil
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %q matched nothing", ErrInvalidQuery, query)
	}
	return values[0], nil
}

// canonicalJSON re-encodes payload so that every object holds each key once,
// keeping the last value for duplicated keys. yaml.v3 rejects duplicates.
func canonicalJSON(payload string) ([]byte, error) {
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: malformed json: %v", ErrInvalidData, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: malformed json: trailing data", ErrInvalidData)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return buf.Bytes(), nil
}

// isIndefinite reports whether query may select more than one value.
// Quoted member names are ignored.
func isIndefinite(query string) bool {
	var b strings.Builder
	var quote rune
	for _, c := range query {
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		default:
			b.WriteRune(c)
		}
	}
	q := b.String()
	if strings.Contains(q, "..") || strings.Contains(q, "*") || strings.Contains(q, "[?") {
		return true
	}
	for {
		open := strings.IndexByte(q, '[')
		if open < 0 {
			return false
		}
		end := strings.IndexByte(q[open:], ']')
		if end < 0 {
			return false
		}
		if strings.ContainsAny(q[open:open+end], ",:") {
			return true
		}
		q = q[open+end:]
	}
}

// normalize converts decoded YAML values into the JSON-shaped tree shared by
// all parsers.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = normalize(e)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	default:
		return v
	}
}
