// SPDX-License-Identifier: MIT

package daemon

import "errors"

// Construction errors.
var (
	ErrMissingLogger     = errors.New("daemon: logger is required")
	ErrMissingAPIHandler = errors.New("daemon: API handler is required")
	ErrMissingManager    = errors.New("daemon: manager is required")
)

// Lifecycle errors.
var (
	ErrManagerNotStarted = errors.New("daemon: manager not started")
	ErrManagerStarted    = errors.New("daemon: manager already started")
)
