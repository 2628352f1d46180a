// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import (
	"cmp"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/MKhiriev/go-license-keeper/internal/clock"
	"github.com/MKhiriev/go-license-keeper/internal/logger"
	"github.com/MKhiriev/go-license-keeper/internal/utils"
	"github.com/MKhiriev/go-license-keeper/models"
	"github.com/fxamacker/cbor/v2"
)

const (
	// KeyringFileName is the name of the key file inside the keys directory.
	KeyringFileName = "keyring.cbor"

	blobVersion byte = 1
	keyIDSize        = 4
	headerSize       = 1 + keyIDSize
	nonceSize        = 12
	tagSize          = 16
	keySize          = 32 // AES-256

	keyringFormat = 1
	keyFileMode   = 0o600
	keyDirMode    = 0o700
)

type keyRecord struct {
	ID        uint32 `cbor:"1,keyasint"`
	Key       []byte `cbor:"2,keyasint"`
	CreatedAt int64  `cbor:"3,keyasint"`
	RetiredAt int64  `cbor:"4,keyasint,omitempty"`
}

type keyringFile struct {
	Format  int         `cbor:"1,keyasint"`
	Current uint32      `cbor:"2,keyasint"`
	Keys    []keyRecord `cbor:"3,keyasint"`
}

// Keyring is the file-backed implementation of [KeyManager]. All keys are
// AES-256 keys used in GCM mode. The key file is written atomically with
// mode 0600 and must live outside the configuration directory.
type Keyring struct {
	mu      sync.RWMutex
	path    string
	current uint32
	keys    map[uint32]keyRecord
	aeads   map[uint32]cipher.AEAD

	clock  clock.Clock
	logger *logger.Logger
}

// OpenKeyring loads the keyring from dir, creating dir and a fresh keyring
// with a single key when none exists yet.
func OpenKeyring(dir string, clk clock.Clock, log *logger.Logger) (*Keyring, error) {
	if err := os.MkdirAll(dir, keyDirMode); err != nil {
		return nil, fmt.Errorf("create keys directory: %w", err)
	}

	k := &Keyring{
		path:   filepath.Join(dir, KeyringFileName),
		clock:  clk,
		logger: log,
	}

	data, err := os.ReadFile(k.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		first, err := newKeyRecord(1, clk.Now().Unix())
		if err != nil {
			return nil, err
		}
		file := keyringFile{Format: keyringFormat, Current: first.ID, Keys: []keyRecord{first}}
		if err := k.write(file); err != nil {
			return nil, fmt.Errorf("create keyring: %w", err)
		}
		if err := k.apply(file); err != nil {
			return nil, err
		}
		log.Info().Str("func", "OpenKeyring").Str("path", k.path).Msg("created new keyring")
		return k, nil

	case err != nil:
		return nil, fmt.Errorf("read keyring: %w", err)
	}

	k.tightenPermissions()

	var file keyringFile
	if err := cbor.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptedKeyring, err)
	}
	if err := k.apply(file); err != nil {
		return nil, err
	}

	log.Debug().Str("func", "OpenKeyring").
		Uint32("current_key", k.current).
		Int("keys", len(k.keys)).
		Msg("keyring loaded")

	return k, nil
}

// Path returns the location of the key file.
func (k *Keyring) Path() string {
	return k.path
}

// Encrypt implements [Cipher].
func (k *Keyring) Encrypt(plaintext []byte) ([]byte, error) {
	k.mu.RLock()
	id := k.current
	aead := k.aeads[id]
	k.mu.RUnlock()

	var header [headerSize]byte
	header[0] = blobVersion
	binary.BigEndian.PutUint32(header[1:], id)

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, headerSize+nonceSize+len(plaintext)+tagSize)
	out = append(out, header[:]...)
	out = append(out, nonce...)

	return aead.Seal(out, nonce, plaintext, header[:]), nil
}

// Decrypt implements [Cipher].
func (k *Keyring) Decrypt(ciphertext []byte) ([]byte, error) {
	id, err := k.KeyID(ciphertext)
	if err != nil {
		return nil, err
	}

	k.mu.RLock()
	aead, ok := k.aeads[id]
	k.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %w %d", ErrIntegrity, ErrUnknownKey, id)
	}

	header := ciphertext[:headerSize]
	nonce := ciphertext[headerSize : headerSize+nonceSize]
	plaintext, err := aead.Open(nil, nonce, ciphertext[headerSize+nonceSize:], header)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIntegrity, err)
	}

	return plaintext, nil
}

// KeyID implements [Cipher].
func (k *Keyring) KeyID(ciphertext []byte) (uint32, error) {
	if len(ciphertext) < headerSize+nonceSize+tagSize {
		return 0, fmt.Errorf("%w: blob too short", ErrIntegrity)
	}
	if ciphertext[0] != blobVersion {
		return 0, fmt.Errorf("%w: unsupported blob version %d", ErrIntegrity, ciphertext[0])
	}
	return binary.BigEndian.Uint32(ciphertext[1:headerSize]), nil
}

// CurrentKeyID implements [Cipher].
func (k *Keyring) CurrentKeyID() uint32 {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.current
}

// Rotate implements [KeyManager]. Before the key file is replaced, its
// previous content is copied next to it with the rotation time as suffix.
func (k *Keyring) Rotate() (models.KeyHandle, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.clock.Now()
	file := k.snapshot()

	nextID := slices.Max(slices.Collect(maps.Keys(k.keys))) + 1
	next, err := newKeyRecord(nextID, now.Unix())
	if err != nil {
		return models.KeyHandle{}, err
	}

	retired := k.current
	for i := range file.Keys {
		if file.Keys[i].ID == retired {
			file.Keys[i].RetiredAt = now.Unix()
		}
	}
	file.Keys = append(file.Keys, next)
	file.Current = next.ID

	backupPath := fmt.Sprintf("%s.%d", k.path, now.UnixNano())
	if err := k.backup(backupPath); err != nil {
		return models.KeyHandle{}, fmt.Errorf("backup keyring: %w", err)
	}
	if err := k.write(file); err != nil {
		return models.KeyHandle{}, fmt.Errorf("write keyring: %w", err)
	}
	if err := k.apply(file); err != nil {
		return models.KeyHandle{}, err
	}

	k.logger.Info().Str("func", "Keyring.Rotate").
		Uint32("retired_key", retired).
		Uint32("current_key", next.ID).
		Msg("encryption key rotated")

	return models.KeyHandle{
		KeyID:        retired,
		CurrentKeyID: next.ID,
		BackupPath:   backupPath,
		RotatedAt:    now.UTC(),
	}, nil
}

// Discard implements [KeyManager].
func (k *Keyring) Discard(keyID uint32) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if keyID == k.current {
		return ErrCurrentKey
	}
	if _, ok := k.keys[keyID]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownKey, keyID)
	}

	file := k.snapshot()
	file.Keys = slices.DeleteFunc(file.Keys, func(r keyRecord) bool { return r.ID == keyID })

	if err := k.write(file); err != nil {
		return fmt.Errorf("write keyring: %w", err)
	}
	if err := k.apply(file); err != nil {
		return err
	}

	k.logger.Info().Str("func", "Keyring.Discard").Uint32("key", keyID).Msg("retired key discarded")
	return nil
}

// RetiredKeys implements [KeyManager].
func (k *Keyring) RetiredKeys() []uint32 {
	k.mu.RLock()
	defer k.mu.RUnlock()

	ids := make([]uint32, 0, len(k.keys))
	for id := range k.keys {
		if id != k.current {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// apply validates file and installs it as the in-memory state.
func (k *Keyring) apply(file keyringFile) error {
	if file.Format != keyringFormat {
		return fmt.Errorf("%w: unsupported format %d", ErrCorruptedKeyring, file.Format)
	}

	keys := make(map[uint32]keyRecord, len(file.Keys))
	aeads := make(map[uint32]cipher.AEAD, len(file.Keys))
	for _, rec := range file.Keys {
		if len(rec.Key) != keySize {
			return fmt.Errorf("%w: key %d has length %d", ErrCorruptedKeyring, rec.ID, len(rec.Key))
		}
		if _, dup := keys[rec.ID]; dup {
			return fmt.Errorf("%w: duplicate key id %d", ErrCorruptedKeyring, rec.ID)
		}
		aead, err := newAEAD(rec.Key)
		if err != nil {
			return err
		}
		keys[rec.ID] = rec
		aeads[rec.ID] = aead
	}
	if _, ok := keys[file.Current]; !ok {
		return fmt.Errorf("%w: current key %d is missing", ErrCorruptedKeyring, file.Current)
	}

	k.current = file.Current
	k.keys = keys
	k.aeads = aeads
	return nil
}

// snapshot returns the persisted form of the in-memory state.
func (k *Keyring) snapshot() keyringFile {
	file := keyringFile{Format: keyringFormat, Current: k.current}
	for _, rec := range k.keys {
		file.Keys = append(file.Keys, rec)
	}
	slices.SortFunc(file.Keys, func(a, b keyRecord) int { return cmp.Compare(a.ID, b.ID) })
	return file
}

func (k *Keyring) write(file keyringFile) error {
	data, err := cbor.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode keyring: %w", err)
	}
	return utils.AtomicWriteFile(k.path, data, keyFileMode)
}

func (k *Keyring) backup(path string) error {
	data, err := os.ReadFile(k.path)
	if err != nil {
		return err
	}
	return utils.AtomicWriteFile(path, data, keyFileMode)
}

func (k *Keyring) tightenPermissions() {
	info, err := os.Stat(k.path)
	if err != nil || info.Mode().Perm()&0o077 == 0 {
		return
	}
	if err := os.Chmod(k.path, keyFileMode); err != nil {
		k.logger.Warn().Err(err).Str("func", "OpenKeyring").Msg("cannot restrict key file permissions")
		return
	}
	k.logger.Warn().Str("func", "OpenKeyring").
		Str("mode", info.Mode().Perm().String()).
		Msg("key file permissions were too open, restricted to 0600")
}

func newKeyRecord(id uint32, createdAt int64) (keyRecord, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return keyRecord{}, fmt.Errorf("generate key: %w", err)
	}
	return keyRecord{ID: id, Key: key, CreatedAt: createdAt}, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}
