// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/MKhiriev/go-license-keeper/models"
)

// applyDefaults fills every setting no source provided.
func (cfg *StructuredConfig) applyDefaults() {
	if cfg.Storage.Root == "" {
		cfg.Storage.Root = DefaultRoot
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultBackend
	}
	if cfg.Storage.KeysDir == "" {
		cfg.Storage.KeysDir = filepath.Join(cfg.Storage.Root, DefaultKeysDirName)
	}
	if cfg.Storage.Backend == BackendSQLite && cfg.Storage.DSN == "" {
		cfg.Storage.DSN = filepath.Join(cfg.Storage.Root, DefaultSQLiteFileName)
	}
	if cfg.Security.HashAlgorithm == "" {
		cfg.Security.HashAlgorithm = models.HashPBKDF2SHA256
	}
	if cfg.Security.PBKDFIterations == 0 {
		cfg.Security.PBKDFIterations = DefaultPBKDFIterations
	}
	if cfg.Workers.SweepInterval == 0 {
		cfg.Workers.SweepInterval = DefaultSweepInterval
	}
	if cfg.Workers.BackupInterval == 0 {
		cfg.Workers.BackupInterval = DefaultBackupInterval
	}
}

// validate checks that the final merged [StructuredConfig] satisfies all
// application invariants before it is used at startup.
func (cfg *StructuredConfig) validate() error {
	if !slices.Contains([]string{BackendJSON, BackendBolt, BackendSQLite, BackendPostgres}, cfg.Storage.Backend) {
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidStorageConfigs, cfg.Storage.Backend)
	}
	if cfg.Storage.Backend == BackendPostgres && cfg.Storage.DSN == "" {
		return fmt.Errorf("%w: postgres backend needs a dsn", ErrInvalidStorageConfigs)
	}

	switch cfg.Security.HashAlgorithm {
	case models.HashPBKDF2SHA256:
		if cfg.Security.PBKDFIterations < DefaultPBKDFIterations {
			return fmt.Errorf("%w: at least %d pbkdf iterations are required", ErrInvalidSecurityConfigs, DefaultPBKDFIterations)
		}
	case models.HashArgon2id:
	default:
		return fmt.Errorf("%w: unknown hash algorithm %q", ErrInvalidSecurityConfigs, cfg.Security.HashAlgorithm)
	}

	if (cfg.Bootstrap.AdminUsername == "") != (cfg.Bootstrap.AdminPassword == "") {
		return fmt.Errorf("%w: admin username and password must be set together", ErrInvalidBootstrapConfigs)
	}

	return nil
}
