// SPDX-License-Identifier: MIT

package recipe

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema validates recipes against a compiled JSON schema.
type Schema struct {
	name     string
	compiled *jsonschema.Schema
}

// CompileSchema compiles a draft 2020-12 JSON schema document.
func CompileSchema(name, doc string) (*Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := "mem://recipefeed/" + name + ".json"
	if err := c.AddResource(url, strings.NewReader(doc)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Schema{name: name, compiled: compiled}, nil
}

// MustCompileSchema is like CompileSchema but panics on error. It is meant
// for schemas embedded in the binary.
func MustCompileSchema(name, doc string) *Schema {
	s, err := CompileSchema(name, doc)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks r against the schema. Failures wrap ErrInvalid.
func (s *Schema) Validate(r *Recipe) error {
	raw, err := r.MarshalJSON()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, r.Name(), err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, r.Name(), err)
	}
	if err := s.compiled.Validate(doc); err != nil {
		return fmt.Errorf("%w: %s does not satisfy %s: %v", ErrInvalid, r.Name(), s.name, err)
	}
	return nil
}
