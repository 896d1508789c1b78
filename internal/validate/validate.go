// SPDX-License-Identifier: MIT

// Package validate accumulates configuration validation failures.
package validate

import (
	"fmt"
	"net"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Error represents a validation error
type Error struct {
	Field   string // Field name that failed validation
	Value   any    // The invalid value
	Message string // Human-readable error message
}

// Error implements the error interface
func (e Error) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// Validator accumulates validation errors and can produce a ValidationError when invalid.
type Validator struct {
	errors []Error
}

// ValidationError bundles multiple validation errors into a single error value.
type ValidationError struct {
	errors []Error
}

// New creates a new validator
func New() *Validator {
	return &Validator{errors: make([]Error, 0)}
}

// AddError adds a validation error
func (v *Validator) AddError(field, message string, value any) {
	v.errors = append(v.errors, Error{Field: field, Value: value, Message: message})
}

// IsValid returns true if no errors have been accumulated
func (v *Validator) IsValid() bool { return len(v.errors) == 0 }

// Errors returns all accumulated validation errors
func (v *Validator) Errors() []Error { return v.errors }

// Err converts the accumulated validation errors into an error value.
func (v *Validator) Err() error {
	if len(v.errors) == 0 {
		return nil
	}
	return ValidationError{errors: slices.Clone(v.errors)}
}

// Errors returns the individual validation errors making up the validation failure.
func (e ValidationError) Errors() []Error { return e.errors }

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	msgs := make([]string, len(e.errors))
	for i, err := range e.errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// HostPort validates a "host:port" address. The host may be empty, as in
// ":8080".
func (v *Validator) HostPort(field, value string) {
	_, port, err := net.SplitHostPort(value)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid address: %v", err), value)
		return
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		v.AddError(field, fmt.Sprintf("port must be between 0 and 65535, got %q", port), value)
	}
}

// Range validates that an integer is within a specified range (inclusive)
func (v *Validator) Range(field string, value, minVal, maxVal int) {
	if value < minVal || value > maxVal {
		v.AddError(field, fmt.Sprintf("value must be between %d and %d, got %d", minVal, maxVal, value), value)
	}
}

// FloatRange validates that a float is within a specified range (inclusive)
func (v *Validator) FloatRange(field string, value, minVal, maxVal float64) {
	if value < minVal || value > maxVal {
		v.AddError(field, fmt.Sprintf("value must be between %g and %g, got %g", minVal, maxVal, value), value)
	}
}

// Directory validates that path names an existing directory.
func (v *Validator) Directory(field, path string) {
	if path == "" {
		v.AddError(field, "directory path cannot be empty", path)
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			v.AddError(field, "directory does not exist", path)
			return
		}
		v.AddError(field, fmt.Sprintf("cannot access directory: %v", err), path)
		return
	}
	if !info.IsDir() {
		v.AddError(field, "path is not a directory", path)
	}
}

// NotEmpty validates that a string is not empty or whitespace-only
func (v *Validator) NotEmpty(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "value cannot be empty", value)
	}
}

// OneOf validates that a value is one of the allowed values
func (v *Validator) OneOf(field, value string, allowed []string) {
	if !slices.Contains(allowed, value) {
		v.AddError(field, fmt.Sprintf("value must be one of %v, got %q", allowed, value), value)
	}
}

// Positive validates that a number is positive (> 0)
func (v *Validator) Positive(field string, value int) {
	if value <= 0 {
		v.AddError(field, fmt.Sprintf("value must be positive, got %d", value), value)
	}
}

// NonNegative validates that a number is non-negative (>= 0)
func (v *Validator) NonNegative(field string, value int) {
	if value < 0 {
		v.AddError(field, fmt.Sprintf("value cannot be negative, got %d", value), value)
	}
}

// PositiveDuration validates that d is greater than zero.
func (v *Validator) PositiveDuration(field string, d time.Duration) {
	if d <= 0 {
		v.AddError(field, fmt.Sprintf("duration must be positive, got %s", d), d)
	}
}

// LocalPath validates a slash-separated path relative to an fs.FS root.
func (v *Validator) LocalPath(field, p string) {
	if p == "" {
		v.AddError(field, "path cannot be empty", p)
		return
	}
	if strings.HasPrefix(p, "/") || slices.Contains(strings.Split(p, "/"), "..") {
		v.AddError(field, fmt.Sprintf("must be a relative path inside the root, got %s", p), p)
	}
}
