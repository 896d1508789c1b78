// SPDX-License-Identifier: MIT

package pathexpr

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// MaxParams is the number of distinct positional placeholders supported.
const MaxParams = 10

// ErrMalformedInjection is returned when placeholders and arguments disagree.
var ErrMalformedInjection = errors.New("malformed parameter injection")

var placeholderRE = regexp.MustCompile(`\$\$par(\d)\$\$`)

// Placeholder returns the positional token for index i, e.g. "$$par0$$".
func Placeholder(i int) string {
	return "$$par" + strconv.Itoa(i) + "$$"
}

// ContainsParameterPlaceholder reports whether s carries at least one
// positional placeholder.
func ContainsParameterPlaceholder(s string) bool {
	return placeholderRE.MatchString(s)
}

// Placeholders returns the sorted, distinct placeholder indices used in s.
func Placeholders(s string) []int {
	seen := map[int]struct{}{}
	for _, m := range placeholderRE.FindAllStringSubmatch(s, -1) {
		n, _ := strconv.Atoi(m[1])
		seen[n] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// InjectParameters replaces every $$parN$$ token in template with args[N].
// Every referenced index needs an argument and every argument must be
// referenced at least once.
func InjectParameters(template string, args []string) (string, error) {
	if len(args) > MaxParams {
		return "", fmt.Errorf("%w: %d arguments exceed the maximum of %d", ErrMalformedInjection, len(args), MaxParams)
	}
	used := Placeholders(template)
	if len(used) != len(args) {
		return "", fmt.Errorf("%w: template references %d parameters, got %d arguments", ErrMalformedInjection, len(used), len(args))
	}
	for i, n := range used {
		if n != i {
			return "", fmt.Errorf("%w: missing argument for %s", ErrMalformedInjection, Placeholder(n))
		}
	}
	return placeholderRE.ReplaceAllStringFunc(template, func(tok string) string {
		n, _ := strconv.Atoi(placeholderRE.FindStringSubmatch(tok)[1])
		return args[n]
	}), nil
}
