package validators

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported type for validation")
	ErrUnknownField    = errors.New("unknown field for validation")

	ErrInvalidUsername   = errors.New("invalid username")
	ErrInvalidPassword   = errors.New("invalid password")
	ErrInvalidUserID     = errors.New("invalid user ID")
	ErrEmptyRole         = errors.New("role is required")
	ErrInvalidEmail      = errors.New("invalid email")
	ErrInvalidPhone      = errors.New("invalid phone number")
	ErrInvalidRoleName   = errors.New("invalid role name")
	ErrInvalidPermission = errors.New("invalid permission")
	ErrInvalidLicenseKey = errors.New("invalid license key format")
	ErrInvalidStatus     = errors.New("invalid license status")
	ErrInvalidDates      = errors.New("license end date must be after its start date")
	ErrInvalidDuration   = errors.New("duration must be a positive number of days")
	ErrInvalidMaxUsers   = errors.New("max users cannot be negative")
)
