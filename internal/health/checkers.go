// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/ManuGH/recipefeed/internal/resilience"
)

// FuncChecker adapts a ping function. A failing ping reports FailStatus.
type FuncChecker struct {
	name       string
	fn         func(ctx context.Context) error
	FailStatus Status
}

// NewFuncChecker reports unhealthy whenever fn fails.
func NewFuncChecker(name string, fn func(ctx context.Context) error) *FuncChecker {
	return &FuncChecker{name: name, fn: fn, FailStatus: StatusUnhealthy}
}

func (c *FuncChecker) Name() string { return c.name }

func (c *FuncChecker) Check(ctx context.Context) CheckResult {
	if err := c.fn(ctx); err != nil {
		return CheckResult{Status: c.FailStatus, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// FileChecker checks that an asset file is present and non-empty.
type FileChecker struct {
	name   string
	assets fs.FS
	path   string
}

// NewFileChecker checks path inside assets.
func NewFileChecker(name string, assets fs.FS, path string) *FileChecker {
	return &FileChecker{name: name, assets: assets, path: path}
}

func (c *FileChecker) Name() string { return c.name }

func (c *FileChecker) Check(context.Context) CheckResult {
	info, err := fs.Stat(c.assets, c.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return CheckResult{Status: StatusUnhealthy, Error: "file not found", Message: c.path}
	case err != nil:
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: c.path}
	case info.IsDir():
		return CheckResult{Status: StatusUnhealthy, Error: "expected file, got directory", Message: c.path}
	case info.Size() == 0:
		return CheckResult{Status: StatusDegraded, Message: c.path + " is empty"}
	}
	return CheckResult{Status: StatusHealthy, Message: c.path}
}

// LastLoadChecker reports on the most recent feed load. Until a feed has
// loaded the service is not ready; a failed or stale load degrades it.
type LastLoadChecker struct {
	lastLoad func() (time.Time, error)
	maxAge   time.Duration
	now      func() time.Time
}

// NewLastLoadChecker uses lastLoad to read the last success time and the
// last error. maxAge <= 0 disables the staleness check.
func NewLastLoadChecker(lastLoad func() (time.Time, error), maxAge time.Duration) *LastLoadChecker {
	return &LastLoadChecker{lastLoad: lastLoad, maxAge: maxAge, now: time.Now}
}

func (c *LastLoadChecker) Name() string { return "feeds" }

func (c *LastLoadChecker) Check(context.Context) CheckResult {
	at, err := c.lastLoad()
	if at.IsZero() {
		r := CheckResult{Status: StatusUnhealthy, Message: "no feed loaded yet"}
		if err != nil {
			r.Error = err.Error()
		}
		return r
	}
	if err != nil {
		return CheckResult{Status: StatusDegraded, Error: err.Error(), Message: "last feed load failed"}
	}
	if c.maxAge > 0 && c.now().Sub(at) > c.maxAge {
		return CheckResult{Status: StatusDegraded, Message: "last feed load is older than " + c.maxAge.String()}
	}
	return CheckResult{Status: StatusHealthy, Message: "loaded at " + at.UTC().Format(time.RFC3339)}
}

// BreakerChecker reports an open or half-open circuit breaker as degraded.
type BreakerChecker struct {
	name  string
	state func() resilience.State
}

// NewBreakerChecker reads the breaker state through state.
func NewBreakerChecker(name string, state func() resilience.State) *BreakerChecker {
	return &BreakerChecker{name: name, state: state}
}

func (c *BreakerChecker) Name() string { return c.name }

func (c *BreakerChecker) Check(context.Context) CheckResult {
	s := c.state()
	if s == resilience.StateClosed {
		return CheckResult{Status: StatusHealthy, Message: string(s)}
	}
	return CheckResult{Status: StatusDegraded, Message: "circuit " + string(s)}
}
