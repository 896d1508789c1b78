// SPDX-License-Identifier: MIT

package validate

// LogLevels are the zerolog levels a configuration may name.
var LogLevels = []string{"trace", "debug", "info", "warn", "error"}
