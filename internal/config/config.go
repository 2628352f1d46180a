// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"
)

// Storage backend names.
const (
	BackendJSON     = "json"
	BackendBolt     = "bolt"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Defaults applied to settings no source provided.
const (
	DefaultRoot            = "./data"
	DefaultBackend         = BackendJSON
	DefaultKeysDirName     = "keys"
	DefaultSQLiteFileName  = "keeper.sqlite"
	DefaultPBKDFIterations = 100_000
	DefaultSweepInterval   = time.Hour
	DefaultBackupInterval  = 24 * time.Hour
)

// StructuredConfig is the top-level configuration container for the
// license keeper. It aggregates all sub-configurations and is populated by
// merging values from environment variables, command-line flags, and an
// optional JSON file.
//
// Struct tags:
//   - envPrefix — prefix applied to all nested env tag lookups (caarlos0/env).
//   - env       — direct environment variable name for scalar fields.
type StructuredConfig struct {
	// Storage selects the persistence backend and where it keeps its data.
	Storage Storage `envPrefix:"STORAGE_"`

	// Security holds password hashing parameters.
	Security Security `envPrefix:"SECURITY_"`

	// Workers holds the intervals of the periodic background tasks.
	Workers Workers `envPrefix:"WORKERS_"`

	// Bootstrap holds the credentials of the first administrator, created
	// only when the store has no users.
	Bootstrap Bootstrap `envPrefix:"BOOTSTRAP_"`

	// Metrics holds the optional ops listener settings.
	Metrics Metrics `envPrefix:"METRICS_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged on top of the values
	// already loaded from environment variables and flags.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// Storage groups the persistence settings.
type Storage struct {
	// Root is the directory holding the JSON documents, the bolt database
	// and the backups.
	// Env: STORAGE_ROOT
	Root string `env:"ROOT"`

	// Backend is one of json, bolt, sqlite or postgres.
	// Env: STORAGE_BACKEND
	Backend string `env:"BACKEND"`

	// DSN is the database connection string for the SQL backends. For
	// sqlite it is a file path and defaults to <root>/keeper.sqlite.
	// Env: STORAGE_DSN
	DSN string `env:"DSN"`

	// KeysDir is the directory of the keyring file, kept apart from the
	// configuration. Defaults to <root>/keys.
	// Env: STORAGE_KEYS_DIR
	KeysDir string `env:"KEYS_DIR"`
}

// Security holds password hashing settings. Existing users keep the
// parameters they were hashed with.
type Security struct {
	// PBKDFIterations is the PBKDF2-SHA256 iteration count for new hashes.
	// Env: SECURITY_PBKDF_ITERATIONS
	PBKDFIterations uint32 `env:"PBKDF_ITERATIONS"`

	// HashAlgorithm is pbkdf2-sha256 or argon2id.
	// Env: SECURITY_HASH_ALGORITHM
	HashAlgorithm string `env:"HASH_ALGORITHM"`
}

// Workers holds the periodic task intervals. A negative interval disables
// the task; zero means "not set" and falls back to the default.
type Workers struct {
	// Env: WORKERS_SWEEP_INTERVAL
	SweepInterval time.Duration `env:"SWEEP_INTERVAL"`

	// Env: WORKERS_BACKUP_INTERVAL
	BackupInterval time.Duration `env:"BACKUP_INTERVAL"`
}

// Bootstrap holds first-run administrator credentials.
type Bootstrap struct {
	// Env: BOOTSTRAP_ADMIN_USERNAME
	AdminUsername string `env:"ADMIN_USERNAME"`

	// Env: BOOTSTRAP_ADMIN_PASSWORD
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

// Metrics holds the ops listener settings.
type Metrics struct {
	// Address is the host:port of the health and metrics listener. Empty
	// disables the listener.
	// Env: METRICS_ADDRESS
	Address string `env:"ADDRESS"`
}

// GetStructuredConfig loads, merges, and validates the application
// configuration from all available sources in the following priority order
// (last source wins for non-zero fields):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
//
// Returns a fully populated *StructuredConfig or an error if any source
// fails to load or the final config fails validation.
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		build()
}
