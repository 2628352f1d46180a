// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package handler

import "errors"

// errNoHandlersAreCreated is returned by NewHandlers when the ops listener
// has no address. The caller treats it as "listener disabled".
var errNoHandlersAreCreated = errors.New("no handlers are created")

// IsDisabled reports whether err means that no listener was configured.
func IsDisabled(err error) bool {
	return errors.Is(err, errNoHandlersAreCreated)
}
