package crypto

import "errors"

var (
	// ErrIntegrity is returned when a blob is truncated, malformed, sealed
	// under an unknown key or fails authentication.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrUnknownKey is returned when a key id is not present in the keyring.
	ErrUnknownKey = errors.New("unknown encryption key")

	// ErrCurrentKey is returned on an attempt to discard the current key.
	ErrCurrentKey = errors.New("current encryption key cannot be discarded")

	// ErrCorruptedKeyring is returned when the key file cannot be decoded or
	// describes an inconsistent keyring.
	ErrCorruptedKeyring = errors.New("keyring file is corrupted")

	// ErrUnsupportedAlgorithm is returned for an unknown hash algorithm.
	ErrUnsupportedAlgorithm = errors.New("unsupported password hash algorithm")

	// ErrWeakParameters is returned when hashing parameters are below the
	// accepted minimum.
	ErrWeakParameters = errors.New("password hash parameters are too weak")
)
