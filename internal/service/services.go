// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"

	"github.com/MKhiriev/go-license-keeper/internal/audit"
	"github.com/MKhiriev/go-license-keeper/internal/clock"
	"github.com/MKhiriev/go-license-keeper/internal/crypto"
	"github.com/MKhiriev/go-license-keeper/internal/logger"
	"github.com/MKhiriev/go-license-keeper/internal/store"
	"github.com/MKhiriev/go-license-keeper/internal/validators"
	"github.com/MKhiriev/go-license-keeper/models"
)

// Deps are the collaborators the services are built from. Repository,
// Keys and Hasher are required; the rest fall back to defaults.
type Deps struct {
	Repository store.Repository
	Backups    BackupStore
	Keys       crypto.KeyManager
	Hasher     crypto.PasswordHasher
	Validator  validators.Validator
	Clock      clock.Clock
	Audit      audit.Sink
	BuildInfo  models.BuildInfo
	Logger     *logger.Logger
}

// Services groups the keeper's services. They share one in-memory state,
// so every mutation made through one of them is visible to the others.
type Services struct {
	CredentialStore    CredentialStore
	PermissionResolver PermissionResolver
	LicenseManager     LicenseManager
	EncryptionService  EncryptionService
	BackupManager      BackupManager
	AppInfoService     AppInfoService
}

// NewServices loads the persisted state and builds the services on top of
// it. Missing built-in roles are seeded and persisted.
func NewServices(ctx context.Context, deps Deps) (*Services, error) {
	if deps.Repository == nil || deps.Keys == nil || deps.Hasher == nil {
		return nil, errors.New("service: repository, keys and hasher are required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Validator == nil {
		deps.Validator = validators.NewDomainValidator()
	}

	st, err := newState(ctx, deps.Repository, deps.Clock, audit.NewAuditor(deps.Audit, deps.Clock), deps.Logger)
	if err != nil {
		return nil, err
	}

	services := &Services{
		CredentialStore:    newCredentialStore(st, deps.Hasher, deps.Validator, deps.Logger),
		PermissionResolver: newPermissionResolver(st, deps.Validator, deps.Logger),
		LicenseManager:     newLicenseManager(st, deps.Validator, deps.Logger),
		EncryptionService:  newEncryptionService(st, deps.Keys, deps.Backups, deps.Logger),
		AppInfoService:     NewAppInfoService(deps.BuildInfo, deps.Logger),
	}
	if deps.Backups != nil {
		services.BackupManager = newBackupManager(st, deps.Backups, deps.Logger)
	}

	return services, nil
}
