// SPDX-License-Identifier: MIT

// Package pathexpr evaluates slash-delimited path expressions against parsed
// trees and injects positional parameters into query and URL templates.
package pathexpr

import (
	"strconv"
	"strings"
)

// Separator delimits the segments of a path expression.
const Separator = "/"

// Resolve walks path through tree and returns the value it designates, or
// nil when any segment is absent. Segments applied to a sequence are
// interpreted as zero-based indices.
func Resolve(tree map[string]any, path string) any {
	if tree == nil || path == "" {
		return nil
	}
	var cur any = tree
	for _, seg := range strings.Split(path, Separator) {
		if seg == "" {
			continue
		}
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil
			}
			cur = node[idx]
		default:
			return nil
		}
	}
	return cur
}

// HasPath reports whether path resolves to a non-nil value.
func HasPath(tree map[string]any, path string) bool {
	return Resolve(tree, path) != nil
}

// MapByPath returns the mapping that holds the last segment of path, or nil
// when the parent does not resolve to a mapping.
func MapByPath(tree map[string]any, path string) map[string]any {
	parent, _ := Split(path)
	if parent == "" {
		return tree
	}
	m, _ := Resolve(tree, parent).(map[string]any)
	return m
}

// KeyFromPath returns the last segment of path.
func KeyFromPath(path string) string {
	_, key := Split(path)
	return key
}

// Split separates path into its parent expression and final key.
func Split(path string) (parent, key string) {
	path = strings.Trim(path, Separator)
	i := strings.LastIndex(path, Separator)
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}
