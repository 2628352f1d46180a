// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package validators enforces input rules for users, roles and licenses
// before the services touch the store.
//
// A [Validator] accepts any supported value plus an optional list of field
// names; when fields are given only those rules run. Unsupported values are
// rejected with [ErrUnsupportedType], unknown field names with
// [ErrUnknownField].
package validators

import "context"

// Validator validates the provided value, optionally restricted to the
// named fields.
type Validator interface {
	Validate(ctx context.Context, value any, fields ...string) error
}
