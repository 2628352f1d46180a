package store

import "github.com/MKhiriev/go-license-keeper/models"

// Records is the persisted form of a snapshot. Secret fields are sealed
// blobs; everything else stays human-inspectable.
type Records struct {
	NextUserID int64
	Users      []UserRecord
	Roles      []RoleRecord
	Licenses   []LicenseRecord
}

// UserRecord is a user as persisted.
type UserRecord struct {
	ID           int64             `json:"id"`
	Username     string            `json:"username"`
	PasswordHash string            `json:"password_hash"` // hex
	Salt         string            `json:"salt"`          // hex
	HashParams   models.HashParams `json:"hash_params"`
	Role         string            `json:"role"`
	IsActive     bool              `json:"is_active"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	Secrets      []byte            `json:"secrets,omitempty"` // sealed JSON object
	CreatedAt    string            `json:"created_at"`        // RFC 3339
	UpdatedAt    string            `json:"updated_at"`
}

// RoleRecord is a role as persisted. Permission names are validated when
// the record is decoded.
type RoleRecord struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
	Description string   `json:"description,omitempty"`
}

// LicenseRecord is a license as persisted.
type LicenseRecord struct {
	Key       string `json:"license_key"`
	UserID    int64  `json:"user_id"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	StartDate string `json:"start_date"` // YYYY-MM-DD
	EndDate   string `json:"end_date"`
	Features  []byte `json:"features,omitempty"` // sealed JSON array
	MaxUsers  int    `json:"max_users,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// sealedBlobs returns every sealed blob in r.
func (r Records) sealedBlobs() [][]byte {
	var blobs [][]byte
	for _, u := range r.Users {
		if len(u.Secrets) > 0 {
			blobs = append(blobs, u.Secrets)
		}
	}
	for _, l := range r.Licenses {
		if len(l.Features) > 0 {
			blobs = append(blobs, l.Features)
		}
	}
	return blobs
}
