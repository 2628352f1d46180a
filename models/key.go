package models

import "time"

// KeyHandle identifies an encryption key retired by a rotation. The retired
// key stays in the keyring until it is discarded explicitly.
type KeyHandle struct {
	// KeyID is the identifier of the retired key.
	KeyID uint32 `json:"key_id"`

	// CurrentKeyID is the identifier of the key that replaced it.
	CurrentKeyID uint32 `json:"current_key_id"`

	// BackupPath is a copy of the key file taken before the rotation.
	BackupPath string `json:"backup_path"`

	RotatedAt time.Time `json:"rotated_at"`
}
