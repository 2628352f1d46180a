package validators

import "regexp"

// Field name constants used to restrict validation to a subset of fields.
const (
	FieldUsername    = "username"
	FieldUserID      = "user_id"
	FieldRole        = "role"
	FieldEmail       = "email"
	FieldPhone       = "phone"
	FieldName        = "name"
	FieldPermissions = "permissions"
	FieldKey         = "key"
	FieldStatus      = "status"
	FieldDates       = "dates"
	FieldDuration    = "duration"
	FieldMaxUsers    = "max_users"
)

var (
	usernamePattern   = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._@-]{0,63}$`)
	roleNamePattern   = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,31}$`)
	emailPattern      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern      = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
	licenseKeyPattern = regexp.MustCompile(`^[A-Z0-9]{5}-[A-Z0-9]{5}-[A-Z0-9]{5}-[A-Z0-9]{5}$`)
)

// IsLicenseKey reports whether key has the XXXXX-XXXXX-XXXXX-XXXXX form.
func IsLicenseKey(key string) bool {
	return licenseKeyPattern.MatchString(key)
}

// ValidatePassword rejects empty passwords and passwords made only of
// whitespace. Strength policy is left to the caller.
func ValidatePassword(password string) error {
	for _, r := range password {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return nil
		}
	}
	return ErrInvalidPassword
}
