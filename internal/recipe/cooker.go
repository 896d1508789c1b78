// SPDX-License-Identifier: MIT

package recipe

import "context"

// Callbacks receive the outcome of cooking a recipe.
//
// OnCooked is called once per produced output; done is true on the final
// delivery. OnError reports a failure that ends the cook.
type Callbacks interface {
	OnCooked(r *Recipe, output any, done bool)
	OnError(r *Recipe, err error)
}

// CallbackFuncs adapts plain functions to Callbacks. Nil fields are ignored.
type CallbackFuncs struct {
	Cooked func(r *Recipe, output any, done bool)
	Error  func(r *Recipe, err error)
}

func (f CallbackFuncs) OnCooked(r *Recipe, output any, done bool) {
	if f.Cooked != nil {
		f.Cooked(r, output, done)
	}
}

func (f CallbackFuncs) OnError(r *Recipe, err error) {
	if f.Error != nil {
		f.Error(r, err)
	}
}

// Result is one element of a cook stream. A Result with Err set is terminal.
type Result struct {
	Value any
	Err   error
}

// Cooker consumes a recipe plus input and produces output.
type Cooker interface {
	Name() string
	// Cook runs the recipe and reports through cb. It returns false when the
	// recipe could not be accepted at all.
	Cook(ctx context.Context, r *Recipe, input any, params []string, cb Callbacks) bool
	// Stream runs the recipe and emits its outputs. The channel is closed
	// after the final value or a terminal error.
	Stream(ctx context.Context, r *Recipe, input any, params []string) <-chan Result
}

// Collect drains a stream into a slice, returning the first error.
func Collect(ch <-chan Result) ([]any, error) {
	var out []any
	for res := range ch {
		if res.Err != nil {
			for range ch {
			}
			return out, res.Err
		}
		out = append(out, res.Value)
	}
	return out, nil
}
