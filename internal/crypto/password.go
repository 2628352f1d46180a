// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"io"

	"github.com/MKhiriev/go-license-keeper/models"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltSize is the length of every password salt, in bytes.
	SaltSize = 16

	// HashKeyLen is the length of every derived password hash, in bytes.
	HashKeyLen = 32

	// MinPBKDF2Iterations is the lowest PBKDF2 iteration count accepted for
	// new hashes.
	MinPBKDF2Iterations = 100_000
)

// passwordHasher is the private implementation of [PasswordHasher]. The
// parameters it holds are used for new hashes only; verification always
// uses the parameters stored with the hash.
type passwordHasher struct {
	params models.HashParams
}

// NewPasswordHasher constructs a [PasswordHasher] for algorithm.
//
// For PBKDF2-HMAC-SHA256 iterations defaults to [MinPBKDF2Iterations] when
// zero and is rejected with [ErrWeakParameters] when lower. For Argon2id the
// OWASP (2024) parameters are used: 1 pass, 64 MiB, 4 threads.
func NewPasswordHasher(algorithm string, iterations uint32) (PasswordHasher, error) {
	switch algorithm {
	case "", models.HashPBKDF2SHA256:
		if iterations == 0 {
			iterations = MinPBKDF2Iterations
		}
		if iterations < MinPBKDF2Iterations {
			return nil, fmt.Errorf("%w: %d pbkdf2 iterations, need at least %d",
				ErrWeakParameters, iterations, MinPBKDF2Iterations)
		}
		return &passwordHasher{params: models.HashParams{
			Algorithm:  models.HashPBKDF2SHA256,
			Iterations: iterations,
			KeyLen:     HashKeyLen,
		}}, nil

	case models.HashArgon2id:
		return &passwordHasher{params: models.HashParams{
			Algorithm:  models.HashArgon2id,
			Iterations: 1,
			Memory:     64 * 1024, // 64 MiB
			Threads:    4,
			KeyLen:     HashKeyLen,
		}}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
}

// Hash implements [PasswordHasher].
func (h *passwordHasher) Hash(password string) ([]byte, []byte, models.HashParams, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, nil, models.HashParams{}, fmt.Errorf("generate salt: %w", err)
	}

	hash, err := derive(password, salt, h.params)
	if err != nil {
		return nil, nil, models.HashParams{}, err
	}

	return hash, salt, h.params, nil
}

// Verify implements [PasswordHasher].
func (h *passwordHasher) Verify(password string, hash, salt []byte, params models.HashParams) (bool, error) {
	if params.KeyLen == 0 {
		params.KeyLen = uint32(len(hash))
	}

	candidate, err := derive(password, salt, params)
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare(candidate, hash) == 1, nil
}

// Burn implements [PasswordHasher].
func (h *passwordHasher) Burn(password string) {
	var salt [SaltSize]byte
	_, _ = derive(password, salt[:], h.params)
}

func derive(password string, salt []byte, params models.HashParams) ([]byte, error) {
	if params.KeyLen == 0 || params.Iterations == 0 {
		return nil, fmt.Errorf("%w: zero key length or iterations", ErrWeakParameters)
	}

	switch params.Algorithm {
	case models.HashPBKDF2SHA256:
		return pbkdf2.Key([]byte(password), salt, int(params.Iterations), int(params.KeyLen), sha256.New), nil
	case models.HashArgon2id:
		if params.Memory == 0 || params.Threads == 0 {
			return nil, fmt.Errorf("%w: zero argon2 memory or threads", ErrWeakParameters)
		}
		return argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Threads, params.KeyLen), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, params.Algorithm)
}
