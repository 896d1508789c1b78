// SPDX-License-Identifier: MIT

package parser

import (
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
)

// Keys used for XML text, CDATA and attribute content in converted trees.
const (
	FormatXML     = "xml"
	TextKey       = "#text"
	CDATAKey      = "#cdata-section"
	AttributesKey = "#attributes"
)

// XML evaluates XPath queries over XML payloads.
type XML struct{}

// NewXML returns the XML parser.
func NewXML() *XML { return &XML{} }

// Format implements Parser.
func (*XML) Format() string { return FormatXML }

// Parse implements Parser using the query "*", which selects the root element.
func (p *XML) Parse(payload string) (any, error) {
	return p.ParseWithQuery(payload, "*")
}

// ParseWithQuery implements Parser. The selected node set is converted into
// a mapping keyed by node name; a single name yields its value, several
// names yield the list of values in document order.
func (p *XML) ParseWithQuery(payload, query string) (any, error) {
	if err := checkInput(FormatXML, payload, query); err != nil {
		return nil, err
	}
	doc, err := xmlquery.Parse(strings.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if firstElement(doc) == nil {
		return nil, fmt.Errorf("%w: no root element", ErrInvalidData)
	}
	nodes, err := xmlquery.QueryAll(doc, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidQuery, query, err)
	}

	m := nodeSet(nodes)
	switch m.Len() {
	case 0:
		return nil, fmt.Errorf("%w: %q matched nothing", ErrInvalidQuery, query)
	case 1:
		return m.values[0], nil
	default:
		return m.Values(), nil
	}
}

// ordered keeps first-seen key order so multi-name node sets come back in
// document order.
type ordered struct {
	keys   []string
	values []any
	index  map[string]int
}

func newOrdered() *ordered { return &ordered{index: map[string]int{}} }

func (o *ordered) Len() int { return len(o.keys) }

func (o *ordered) Has(k string) bool {
	_, ok := o.index[k]
	return ok
}

// Merge stores v under k; repeated keys collect their values into a list.
func (o *ordered) Merge(k string, v any) {
	i, ok := o.index[k]
	if !ok {
		o.index[k] = len(o.keys)
		o.keys = append(o.keys, k)
		o.values = append(o.values, v)
		return
	}
	if list, isList := o.values[i].(mergedList); isList {
		o.values[i] = append(list, v)
		return
	}
	o.values[i] = mergedList{o.values[i], v}
}

func (o *ordered) Values() []any {
	out := make([]any, len(o.values))
	for i, v := range o.values {
		out[i] = plain(v)
	}
	return out
}

func (o *ordered) Map() map[string]any {
	out := make(map[string]any, len(o.keys))
	for i, k := range o.keys {
		out[k] = plain(o.values[i])
	}
	return out
}

// mergedList marks lists built from repeated siblings, as opposed to values
// that are lists themselves.
type mergedList []any

func plain(v any) any {
	if l, ok := v.(mergedList); ok {
		return []any(l)
	}
	return v
}

func nodeSet(nodes []*xmlquery.Node) *ordered {
	out := newOrdered()
	for _, n := range nodes {
		name, value, ok := convert(n)
		if !ok {
			continue
		}
		out.Merge(name, value)
	}
	if out.Len() == 1 {
		out.values[0] = plain(out.values[0])
	}
	return out
}

func convert(n *xmlquery.Node) (string, any, bool) {
	switch n.Type {
	case xmlquery.TextNode:
		if strings.TrimSpace(n.Data) == "" {
			return "", nil, false
		}
		return TextKey, n.Data, true
	case xmlquery.CharDataNode:
		return CDATAKey, n.Data, true
	case xmlquery.AttributeNode:
		return qualified(n.Prefix, n.Data), n.InnerText(), true
	case xmlquery.ElementNode:
		return qualified(n.Prefix, n.Data), element(n), true
	case xmlquery.DocumentNode:
		if root := firstElement(n); root != nil {
			return convert(root)
		}
	}
	return "", nil, false
}

func element(n *xmlquery.Node) map[string]any {
	children := newOrdered()
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		name, value, ok := convert(c)
		if !ok {
			continue
		}
		children.Merge(name, value)
	}
	m := children.Map()
	if _, ok := m[TextKey]; !ok {
		m[TextKey] = ""
	}
	if len(n.Attr) > 0 {
		attrs := make(map[string]any, len(n.Attr))
		for _, a := range n.Attr {
			attrs[qualified(a.Name.Space, a.Name.Local)] = a.Value
		}
		m[AttributesKey] = attrs
	}
	return m
}

func firstElement(n *xmlquery.Node) *xmlquery.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return c
		}
	}
	return nil
}

func qualified(prefix, local string) string {
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}
