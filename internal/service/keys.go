package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/MKhiriev/go-license-keeper/internal/crypto"
	"github.com/MKhiriev/go-license-keeper/internal/logger"
	"github.com/MKhiriev/go-license-keeper/models"
)

type encryptionService struct {
	state   *state
	keys    crypto.KeyManager
	backups BackupStore

	logger *logger.Logger
}

func newEncryptionService(st *state, keys crypto.KeyManager, backups BackupStore, log *logger.Logger) *encryptionService {
	return &encryptionService{state: st, keys: keys, backups: backups, logger: log}
}

func (e *encryptionService) Encrypt(plaintext []byte) ([]byte, error) {
	return e.keys.Encrypt(plaintext)
}

func (e *encryptionService) Decrypt(ciphertext []byte) ([]byte, error) {
	return e.keys.Decrypt(ciphertext)
}

// ReEncrypt opens ciphertext and seals it again under the current key.
func (e *encryptionService) ReEncrypt(ciphertext []byte) ([]byte, error) {
	plaintext, err := e.keys.Decrypt(ciphertext)
	if err != nil {
		return nil, err
	}
	return e.keys.Encrypt(plaintext)
}

func (e *encryptionService) CurrentKeyID() uint32 {
	return e.keys.CurrentKeyID()
}

func (e *encryptionService) RetiredKeys() []uint32 {
	return e.keys.RetiredKeys()
}

// RotateKey makes a new key current and re-seals the persisted state under
// it before returning. The previous key stays available for decryption
// until it is discarded.
func (e *encryptionService) RotateKey(ctx context.Context) (models.KeyHandle, error) {
	var handle models.KeyHandle

	err := e.state.update(ctx, func(_ *models.Snapshot) error {
		var err error
		handle, err = e.keys.Rotate()
		if err != nil {
			e.logger.Err(err).Str("func", "encryptionService.RotateKey").Msg("error rotating key")
			return fmt.Errorf("rotate key: %w", err)
		}
		// the unchanged snapshot is saved to re-seal it under the new key
		return nil
	})
	if err != nil {
		e.state.auditor.Failure(ctx, models.AuditRotateKey, models.AuditEvent{}, err)
		return handle, err
	}

	e.state.auditor.Success(ctx, models.AuditRotateKey, models.AuditEvent{
		Subject: fmt.Sprintf("key %d -> %d", handle.KeyID, handle.CurrentKeyID),
	})
	e.logger.Info().Str("func", "encryptionService.RotateKey").
		Uint32("retired_key_id", handle.KeyID).Uint32("current_key_id", handle.CurrentKeyID).
		Msg("encryption key rotated")
	return handle, nil
}

// DiscardKey removes a retired key once no persisted state or backup is
// sealed under it.
func (e *encryptionService) DiscardKey(ctx context.Context, handle models.KeyHandle) error {
	event := models.AuditEvent{Subject: fmt.Sprintf("key %d", handle.KeyID)}

	// no save may run while the key usage is counted
	err := e.state.exclusive(func(models.Snapshot) error {
		return e.discard(ctx, handle.KeyID)
	})
	if err != nil {
		e.state.auditor.Failure(ctx, models.AuditDiscardKey, event, err)
		return err
	}

	e.state.auditor.Success(ctx, models.AuditDiscardKey, event)
	return nil
}

func (e *encryptionService) discard(ctx context.Context, keyID uint32) error {
	if keyID == e.keys.CurrentKeyID() {
		return fmt.Errorf("%w: key %d is the current key", ErrKeyInUse, keyID)
	}
	if !slices.Contains(e.keys.RetiredKeys(), keyID) {
		return fmt.Errorf("%w: key %d", ErrUnknownKey, keyID)
	}

	inUse, err := e.state.repo.KeysInUse(ctx)
	if err != nil {
		return fmt.Errorf("count sealed data: %w", err)
	}
	if n := inUse[keyID]; n > 0 {
		return fmt.Errorf("%w: %d persisted value(s) sealed under key %d", ErrKeyInUse, n, keyID)
	}

	if e.backups != nil {
		inBackups, err := e.backups.KeysInUse(ctx)
		if err != nil {
			return fmt.Errorf("count sealed backup data: %w", err)
		}
		if n := inBackups[keyID]; n > 0 {
			return fmt.Errorf("%w: %d backed up value(s) sealed under key %d", ErrKeyInUse, n, keyID)
		}
	}

	if err := e.keys.Discard(keyID); err != nil {
		if errors.Is(err, crypto.ErrCurrentKey) {
			return fmt.Errorf("%w: %w", ErrKeyInUse, err)
		}
		return err
	}
	return nil
}
