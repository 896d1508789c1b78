// SPDX-License-Identifier: MIT

package recipe

import (
	"bytes"
	"crypto/sha1" //nolint:gosec // content identity, not a security boundary
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/gowebpki/jcs"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned when a recipe document cannot be decoded or fails
// schema validation.
var ErrInvalid = errors.New("invalid recipe document")

// Parse decodes a JSON recipe document. Comments and trailing commas are
// allowed.
func Parse(name string, doc []byte) (*Recipe, error) {
	if len(bytes.TrimSpace(doc)) == 0 {
		return nil, fmt.Errorf("%w: %s: empty document", ErrInvalid, name)
	}
	clean, err := hujson.Standardize(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
	}
	var m map[string]any
	if err := json.Unmarshal(clean, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: %s: not an object", ErrInvalid, name)
	}
	return &Recipe{name: name, m: m}, nil
}

// ParseYAML decodes a YAML recipe document.
func ParseYAML(name string, doc []byte) (*Recipe, error) {
	var m map[string]any
	if err := yaml.Unmarshal(doc, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: %s: empty document", ErrInvalid, name)
	}
	return &Recipe{name: name, m: normalizeYAML(m).(map[string]any)}, nil
}

// Load reads the recipe at p from fsys, choosing the decoder by extension.
// The recipe is named after the file without its extension.
func Load(fsys fs.FS, p string) (*Recipe, error) {
	doc, err := fs.ReadFile(fsys, p)
	if err != nil {
		return nil, fmt.Errorf("read recipe %s: %w", p, err)
	}
	ext := path.Ext(p)
	name := strings.TrimSuffix(path.Base(p), ext)
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return ParseYAML(name, doc)
	default:
		return Parse(name, doc)
	}
}

// Canonical returns the RFC 8785 canonical JSON form of the recipe mapping.
func (r *Recipe) Canonical() ([]byte, error) {
	raw, err := r.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return jcs.Transform(raw)
}

// Fingerprint returns a stable hex SHA-1 of the canonical recipe mapping.
// Equal mappings yield equal fingerprints regardless of key order.
func (r *Recipe) Fingerprint() string {
	canon, err := r.Canonical()
	if err != nil {
		canon, _ = r.MarshalJSON()
	}
	sum := sha1.Sum(canon) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// normalizeYAML converts yaml.v3 output into the JSON-shaped tree used by
// recipes: map[string]any, []any and scalars.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeYAML(e)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = normalizeYAML(e)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = normalizeYAML(e)
		}
		return t
	default:
		return v
	}
}
