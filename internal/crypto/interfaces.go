package crypto

import "github.com/MKhiriev/go-license-keeper/models"

//go:generate mockgen -source=interfaces.go -destination=../mock/crypto_mock.go -package=mock

// Cipher seals and opens opaque blobs with the keyring's keys.
//
// Blob layout:
//
//	version (1 byte) ‖ key id (4 bytes, big endian) ‖ nonce (12 bytes) ‖ ciphertext+tag
//
// The version and key id are authenticated as additional data, so any
// modification of the blob is reported as [ErrIntegrity].
type Cipher interface {
	// Encrypt seals plaintext under the current key.
	Encrypt(plaintext []byte) ([]byte, error)

	// Decrypt opens a blob sealed under the current or any retired key.
	Decrypt(ciphertext []byte) ([]byte, error)

	// KeyID reports which key sealed the blob without opening it.
	KeyID(ciphertext []byte) (uint32, error)

	// CurrentKeyID returns the identifier of the key used by Encrypt.
	CurrentKeyID() uint32
}

// KeyManager is a Cipher whose key can be rotated.
type KeyManager interface {
	Cipher

	// Rotate generates a new current key. The previous key is retained as a
	// retired key so that existing blobs stay readable; the returned handle
	// identifies it and the backup copy of the key file.
	Rotate() (models.KeyHandle, error)

	// Discard removes a retired key. The caller is responsible for making
	// sure no persisted blob still references it.
	Discard(keyID uint32) error

	// RetiredKeys lists retired key ids in ascending order.
	RetiredKeys() []uint32
}

// PasswordHasher derives and verifies password hashes.
type PasswordHasher interface {
	// Hash derives a hash of password with a fresh random salt.
	Hash(password string) (hash, salt []byte, params models.HashParams, err error)

	// Verify re-derives the hash with the stored salt and parameters and
	// compares it in constant time.
	Verify(password string, hash, salt []byte, params models.HashParams) (bool, error)

	// Burn performs one derivation with the current parameters and discards
	// the result. It keeps the cost of a failed lookup equal to a real check.
	Burn(password string)
}
