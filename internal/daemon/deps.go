// SPDX-License-Identifier: MIT

package daemon

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Deps are the collaborators NewManager requires. Both are mandatory; a
// disabled logger counts as missing.
type Deps struct {
	Logger     zerolog.Logger
	APIHandler http.Handler // serves the feed API, probes and metrics
}

// Validate reports the first missing dependency.
func (d Deps) Validate() error {
	switch {
	case d.Logger.GetLevel() == zerolog.Disabled:
		return ErrMissingLogger
	case d.APIHandler == nil:
		return ErrMissingAPIHandler
	}
	return nil
}
