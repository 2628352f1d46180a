package config

import "errors"

// Validation errors returned by [StructuredConfig.validate] when required
// configuration groups are incomplete or invalid.
var (
	// ErrInvalidStorageConfigs indicates invalid storage settings
	// (for example, an unknown backend or a postgres backend without DSN).
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidSecurityConfigs indicates invalid password hashing settings
	// (for example, too few PBKDF2 iterations).
	ErrInvalidSecurityConfigs = errors.New("invalid security configuration")
	// ErrInvalidBootstrapConfigs indicates half-specified first-run
	// administrator credentials.
	ErrInvalidBootstrapConfigs = errors.New("invalid bootstrap configuration")
)
