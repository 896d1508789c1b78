// SPDX-License-Identifier: MIT

package config

import "errors"

// ErrUnknownConfigField wraps strict-decoding failures caused by a key the
// file format does not define.
var ErrUnknownConfigField = errors.New("config: unknown field")
