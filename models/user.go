package models

import (
	"maps"
	"strings"
	"time"
)

// Password hashing algorithms understood by the credential store.
const (
	HashPBKDF2SHA256 = "pbkdf2-sha256"
	HashArgon2id     = "argon2id"
)

// HashParams records how a password hash was derived. It is stored next to
// every user so that changing the configured cost does not invalidate
// existing hashes.
type HashParams struct {
	Algorithm  string `json:"algorithm"`
	Iterations uint32 `json:"iterations"`
	Memory     uint32 `json:"memory,omitempty"`
	Threads    uint8  `json:"threads,omitempty"`
	KeyLen     uint32 `json:"key_len"`
}

// User represents an account entity used for authentication and authorization.
// PasswordHash, Salt and Secrets are sensitive and must never leave trusted
// boundaries; they are hidden from the JSON view.
type User struct {
	// ID is the unique, monotonically assigned user identifier.
	ID int64 `json:"id"`

	// Username is unique across all users.
	Username string `json:"username"`

	// PasswordHash is the KDF output; the plaintext password is never stored.
	PasswordHash []byte     `json:"-"`
	Salt         []byte     `json:"-"`
	HashParams   HashParams `json:"-"`

	// Role names the role whose permissions apply to this user. A role that
	// no longer exists resolves to an empty permission set.
	Role string `json:"role"`

	// IsActive must be true for the user to authenticate or hold permissions.
	IsActive bool `json:"is_active"`

	// Attributes holds non-secret profile data (full name, email, department).
	Attributes map[string]string `json:"attributes,omitempty"`

	// Secrets holds secondary secret fields. They are sealed at rest.
	Secrets map[string]string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of u.
func (u User) Clone() User {
	c := u
	c.PasswordHash = cloneBytes(u.PasswordHash)
	c.Salt = cloneBytes(u.Salt)
	c.Attributes = maps.Clone(u.Attributes)
	c.Secrets = maps.Clone(u.Secrets)
	return c
}

// Public returns a copy of u without credential material.
func (u User) Public() User {
	c := u.Clone()
	c.PasswordHash = nil
	c.Salt = nil
	c.HashParams = HashParams{}
	return c
}

// ProfilePatch describes a partial profile update. Identity and credential
// fields are intentionally not part of it.
//
// Attributes and Secrets are merged key by key; an empty value removes the key.
type ProfilePatch struct {
	Role       *string
	IsActive   *bool
	Attributes map[string]string
	Secrets    map[string]string
}

// IsEmpty reports whether the patch changes nothing.
func (p ProfilePatch) IsEmpty() bool {
	return p.Role == nil && p.IsActive == nil && len(p.Attributes) == 0 && len(p.Secrets) == 0
}

// protectedUserFields are never writable through a profile update. The
// password only changes through ChangePassword.
var protectedUserFields = map[string]struct{}{
	"id":            {},
	"username":      {},
	"password":      {},
	"password_hash": {},
	"salt":          {},
	"created_at":    {},
	"updated_at":    {},
	"hash_params":   {},
}

// IsProtectedUserField reports whether name is one of the fields that a
// profile update must leave untouched. Case is ignored.
func IsProtectedUserField(name string) bool {
	_, ok := protectedUserFields[strings.ToLower(name)]
	return ok
}

// ProfilePatchFromMap builds a ProfilePatch from a loosely typed field map.
// Protected fields are dropped and reported in ignored. Known fields with an
// unexpected type are ignored as well. Any other string-valued key becomes an
// attribute, and keys under the "secret." prefix become secrets; a bare
// "secret." is ignored.
func ProfilePatchFromMap(fields map[string]any) (patch ProfilePatch, ignored []string) {
	for name, value := range fields {
		if IsProtectedUserField(name) {
			ignored = append(ignored, name)
			continue
		}

		switch name {
		case "role":
			if s, ok := value.(string); ok {
				patch.Role = &s
				continue
			}
		case "is_active":
			if b, ok := value.(bool); ok {
				patch.IsActive = &b
				continue
			}
		default:
			s, ok := value.(string)
			if !ok {
				break
			}
			if key, found := strings.CutPrefix(name, secretFieldPrefix); found {
				if key == "" {
					break
				}
				if patch.Secrets == nil {
					patch.Secrets = make(map[string]string)
				}
				patch.Secrets[key] = s
				continue
			}
			if patch.Attributes == nil {
				patch.Attributes = make(map[string]string)
			}
			patch.Attributes[name] = s
			continue
		}

		ignored = append(ignored, name)
	}

	return patch, ignored
}

const secretFieldPrefix = "secret."

// UserFilter narrows ListUsers results. Zero values match everything.
type UserFilter struct {
	Role       string
	ActiveOnly bool
}

// Match reports whether u passes the filter.
func (f UserFilter) Match(u User) bool {
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	if f.ActiveOnly && !u.IsActive {
		return false
	}
	return true
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
