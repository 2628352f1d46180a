package service

import (
	"context"

	"github.com/MKhiriev/go-license-keeper/models"
)

// CredentialStore owns user records and verifies passwords.
type CredentialStore interface {
	Register(ctx context.Context, username, password, role string) (int64, error)
	Authenticate(ctx context.Context, username, password string) (int64, error)
	ChangePassword(ctx context.Context, userID int64, current, next string) error
	UpdateProfile(ctx context.Context, userID int64, patch models.ProfilePatch) error
	ApplyPatchMap(ctx context.Context, userID int64, fields map[string]any) ([]string, error)
	DeleteUser(ctx context.Context, userID int64) error
	HasUsers(ctx context.Context) bool

	GetUser(ctx context.Context, userID int64) (models.User, error)
	ListUsers(ctx context.Context, filter models.UserFilter) []models.User
	BootstrapAdmin(ctx context.Context, username, password string) (int64, bool, error)
}

// PermissionResolver answers capability checks and manages roles.
type PermissionResolver interface {
	HasPermission(ctx context.Context, userID int64, permission models.Permission) bool
	GetPermissions(ctx context.Context, userID int64) []models.Permission

	AddRole(ctx context.Context, name string, permissions []models.Permission) error
	UpdateRole(ctx context.Context, name string, permissions []models.Permission) error
	DeleteRole(ctx context.Context, name string) error
	ListRoles(ctx context.Context) []models.Role
	KnownPermissions() []models.Permission
}

// LicenseManager issues licenses and tracks their lifecycle.
type LicenseManager interface {
	Issue(ctx context.Context, userID int64, durationDays int, features []string) (string, error)
	IssueWithOptions(ctx context.Context, req models.IssueRequest) (string, error)
	Validate(ctx context.Context, key string) (models.ValidationOutcome, error)
	Renew(ctx context.Context, key string, durationDays int) error
	Suspend(ctx context.Context, key string) error
	BulkUpdate(ctx context.Context, keys []string, patch models.LicensePatch) (int, error)
	Statistics(ctx context.Context) models.Statistics

	Get(ctx context.Context, key string) (models.License, error)
	ListByUser(ctx context.Context, userID int64) []models.License
	List(ctx context.Context, filter models.LicenseFilter) []models.License
	EffectiveLicense(ctx context.Context, userID int64) (models.License, error)
	HasFeature(ctx context.Context, userID int64, feature string) bool
	Delete(ctx context.Context, key string) error
	Sweep(ctx context.Context) (int, error)
}

// EncryptionService exposes the keyring to callers and rotates keys.
type EncryptionService interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
	ReEncrypt(ciphertext []byte) ([]byte, error)
	RotateKey(ctx context.Context) (models.KeyHandle, error)
	DiscardKey(ctx context.Context, handle models.KeyHandle) error
	CurrentKeyID() uint32
	RetiredKeys() []uint32
}

// BackupManager creates and restores point-in-time copies of the state.
type BackupManager interface {
	Backup(ctx context.Context) (string, error)
	ListBackups(ctx context.Context) ([]string, error)
	Restore(ctx context.Context, name string) error
	DeleteBackup(ctx context.Context, name string) error
}

// BackupStore is the storage behind [BackupManager].
type BackupStore interface {
	Create(ctx context.Context, snap models.Snapshot) (string, error)
	List(ctx context.Context) ([]string, error)
	Load(ctx context.Context, name string) (models.Snapshot, error)
	Delete(ctx context.Context, name string) error
	KeysInUse(ctx context.Context) (map[uint32]int, error)
}

// AppInfoService reports build metadata.
type AppInfoService interface {
	BuildInfo(ctx context.Context) models.BuildInfo
}
