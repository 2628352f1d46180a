// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import "errors"

// errBackupsDisabled is reported by /backups when the keeper runs without a
// backup store.
var errBackupsDisabled = errors.New("backups are disabled")
