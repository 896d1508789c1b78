// SPDX-License-Identifier: MIT

// Package config loads the daemon configuration from defaults, an optional
// strict YAML file and RECIPEFEED_* environment variables, and hot-reloads
// it when the file changes.
package config
