package service

import (
	"errors"

	"github.com/MKhiriev/go-license-keeper/internal/crypto"
	"github.com/MKhiriev/go-license-keeper/internal/store"
)

// Errors returned by the services. Callers match them with [errors.Is] or
// map them to an [ErrorKind] with [KindOf].
var (
	ErrInvalidInput = errors.New("invalid input")

	ErrDuplicateUsername  = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrLastUserProtected  = errors.New("the last remaining user cannot be deleted")

	ErrRoleNotFound = errors.New("role not found")
	ErrRoleExists   = errors.New("role already exists")
	ErrRoleInUse    = errors.New("role is assigned to users")
	ErrBuiltinRole  = errors.New("built-in roles cannot be deleted")

	ErrLicenseNotFound     = errors.New("license not found")
	ErrInvalidDuration     = errors.New("duration must be a positive number of days")
	ErrInvalidLicenseKey   = errors.New("invalid license key")
	ErrDuplicateLicenseKey = errors.New("license key already exists")

	ErrKeyInUse   = errors.New("encryption key is still in use")
	ErrUnknownKey = crypto.ErrUnknownKey

	ErrIntegrity      = crypto.ErrIntegrity
	ErrStorage        = store.ErrStorage
	ErrBackupNotFound = store.ErrBackupNotFound
)

// errUnchanged aborts an update without persisting anything.
var errUnchanged = errors.New("nothing changed")

// ErrorKind is a stable classification of service errors for presentation
// layers.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindInvalidInput
	KindDuplicateUsername
	KindInvalidCredentials
	KindLastUserProtected
	KindRoleInUse
	KindNotFound
	KindConflict
	KindInvalidDuration
	KindKeyInUse
	KindIntegrity
	KindStorage
	KindInternal
)

var kindNames = map[ErrorKind]string{
	KindNone:               "none",
	KindInvalidInput:       "invalid_input",
	KindDuplicateUsername:  "duplicate_username",
	KindInvalidCredentials: "invalid_credentials",
	KindLastUserProtected:  "last_user_protected",
	KindRoleInUse:          "role_in_use",
	KindNotFound:           "not_found",
	KindConflict:           "conflict",
	KindInvalidDuration:    "invalid_duration",
	KindKeyInUse:           "key_in_use",
	KindIntegrity:          "integrity",
	KindStorage:            "storage",
	KindInternal:           "internal",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// KindOf maps err to its [ErrorKind]. A nil error is [KindNone]; errors not
// produced by the services are [KindInternal].
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrIntegrity):
		return KindIntegrity
	case errors.Is(err, ErrStorage):
		return KindStorage
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, ErrDuplicateUsername):
		return KindDuplicateUsername
	case errors.Is(err, ErrLastUserProtected):
		return KindLastUserProtected
	case errors.Is(err, ErrRoleInUse):
		return KindRoleInUse
	case errors.Is(err, ErrInvalidDuration):
		return KindInvalidDuration
	case errors.Is(err, ErrKeyInUse):
		return KindKeyInUse
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrRoleNotFound),
		errors.Is(err, ErrLicenseNotFound),
		errors.Is(err, ErrBackupNotFound),
		errors.Is(err, ErrUnknownKey):
		return KindNotFound
	case errors.Is(err, ErrRoleExists),
		errors.Is(err, ErrDuplicateLicenseKey),
		errors.Is(err, ErrBuiltinRole):
		return KindConflict
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidLicenseKey):
		return KindInvalidInput
	default:
		return KindInternal
	}
}
