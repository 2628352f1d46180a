package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/MKhiriev/go-license-keeper/internal/audit"
	"github.com/MKhiriev/go-license-keeper/internal/clock"
	"github.com/MKhiriev/go-license-keeper/internal/crypto"
	"github.com/MKhiriev/go-license-keeper/internal/logger"
	"github.com/MKhiriev/go-license-keeper/internal/store"
	"github.com/MKhiriev/go-license-keeper/models"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fixture wires the services over a real JSON store, keyring and backup
// store in a temporary directory, driven by a fake clock.
type fixture struct {
	dir      string
	clock    *clock.Fake
	keys     *crypto.Keyring
	hasher   crypto.PasswordHasher
	repo     *store.SealedRepository
	backups  *store.BackupStore
	audit    *audit.Recorder
	services *Services
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		dir:   t.TempDir(),
		clock: clock.NewFake(testNow),
	}
	hasher, err := crypto.NewPasswordHasher(models.HashPBKDF2SHA256, crypto.MinPBKDF2Iterations)
	require.NoError(t, err)
	f.hasher = hasher

	f.open(t)
	return f
}

// open (re)builds every component from what is on disk.
func (f *fixture) open(t *testing.T) {
	t.Helper()

	keys, err := crypto.OpenKeyring(filepath.Join(f.dir, "keys"), f.clock, logger.Nop())
	require.NoError(t, err)
	records, err := store.NewFileRecordStore(f.dir, logger.Nop())
	require.NoError(t, err)

	f.keys = keys
	f.repo = store.NewRepository(records, keys, logger.Nop())
	f.backups = store.NewBackupStore(filepath.Join(f.dir, store.BackupsDirName), keys, f.clock, logger.Nop())
	f.audit = audit.NewRecorder(0)

	services, err := NewServices(context.Background(), Deps{
		Repository: f.repo,
		Backups:    f.backups,
		Keys:       keys,
		Hasher:     f.hasher,
		Clock:      f.clock,
		Audit:      f.audit,
		BuildInfo:  models.NewBuildInfo("1.2.3", "2026-03-01", "abc123"),
		Logger:     logger.Nop(),
	})
	require.NoError(t, err)
	f.services = services
}

func (f *fixture) credentials() CredentialStore { return f.services.CredentialStore }
func (f *fixture) permissions() PermissionResolver { return f.services.PermissionResolver }
func (f *fixture) licenses() LicenseManager { return f.services.LicenseManager }
func (f *fixture) encryption() EncryptionService { return f.services.EncryptionService }
func (f *fixture) backupManager() BackupManager { return f.services.BackupManager }

// state exposes the shared state behind the services.
func (f *fixture) state() *state {
	return f.services.CredentialStore.(*credentialStore).state
}

// register creates a user with the given role and fails the test on error.
func (f *fixture) register(t *testing.T, username, role string) int64 {
	t.Helper()
	id, err := f.credentials().Register(context.Background(), username, "pa55word!", role)
	require.NoError(t, err)
	return id
}

// persisted loads the snapshot straight from disk.
func (f *fixture) persisted(t *testing.T) models.Snapshot {
	t.Helper()
	snap, err := f.repo.Load(context.Background())
	require.NoError(t, err)
	return snap
}
