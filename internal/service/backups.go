package service

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-license-keeper/internal/logger"
	"github.com/MKhiriev/go-license-keeper/models"
)

type backupManager struct {
	state *state
	store BackupStore

	logger *logger.Logger
}

func newBackupManager(st *state, store BackupStore, log *logger.Logger) *backupManager {
	return &backupManager{state: st, store: store, logger: log}
}

// Backup writes a copy of the current state and returns its name.
func (b *backupManager) Backup(ctx context.Context) (string, error) {
	var snap models.Snapshot
	b.state.read(func(current *models.Snapshot) {
		snap = current.Clone()
	})

	name, err := b.store.Create(ctx, snap)
	if err != nil {
		b.logger.Err(err).Str("func", "backupManager.Backup").Msg("error creating backup")
		b.state.auditor.Failure(ctx, models.AuditBackup, models.AuditEvent{}, err)
		return "", err
	}

	b.state.auditor.Success(ctx, models.AuditBackup, models.AuditEvent{Subject: name})
	return name, nil
}

// ListBackups returns backup names, newest first.
func (b *backupManager) ListBackups(ctx context.Context) ([]string, error) {
	return b.store.List(ctx)
}

// Restore replaces the current state with the named backup. The current
// state is backed up first so a restore can itself be undone.
func (b *backupManager) Restore(ctx context.Context, name string) error {
	event := models.AuditEvent{Subject: name}

	err := b.restore(ctx, name)
	if err != nil {
		b.state.auditor.Failure(ctx, models.AuditRestore, event, err)
		return err
	}

	b.state.auditor.Success(ctx, models.AuditRestore, event)
	b.logger.Info().Str("func", "backupManager.Restore").Str("backup", name).Msg("state restored from backup")
	return nil
}

func (b *backupManager) restore(ctx context.Context, name string) error {
	restored, err := b.store.Load(ctx, name)
	if err != nil {
		return err
	}
	if err := validateRestored(restored); err != nil {
		return err
	}
	restored, _ = seedRoles(restored)

	return b.state.replace(ctx, func(current models.Snapshot) (models.Snapshot, error) {
		previous, err := b.store.Create(ctx, current)
		if err != nil {
			return models.Snapshot{}, fmt.Errorf("back up current state: %w", err)
		}
		b.logger.Info().Str("func", "backupManager.restore").Str("backup", previous).Msg("current state backed up before restore")
		return restored, nil
	})
}

func (b *backupManager) DeleteBackup(ctx context.Context, name string) error {
	event := models.AuditEvent{Subject: name}

	if err := b.store.Delete(ctx, name); err != nil {
		b.state.auditor.Failure(ctx, models.AuditDeleteBackup, event, err)
		return err
	}

	b.state.auditor.Success(ctx, models.AuditDeleteBackup, event)
	return nil
}

// validateRestored rejects snapshots that would leave the keeper unusable or
// inconsistent.
func validateRestored(snap models.Snapshot) error {
	if len(snap.Users) == 0 {
		return fmt.Errorf("%w: backup has no users", ErrInvalidInput)
	}

	usernames := make(map[string]struct{}, len(snap.Users))
	ids := make(map[int64]struct{}, len(snap.Users))
	for _, u := range snap.Users {
		if _, dup := usernames[u.Username]; dup {
			return fmt.Errorf("%w: backup has duplicate username %q", ErrInvalidInput, u.Username)
		}
		if _, dup := ids[u.ID]; dup {
			return fmt.Errorf("%w: backup has duplicate user id %d", ErrInvalidInput, u.ID)
		}
		usernames[u.Username] = struct{}{}
		ids[u.ID] = struct{}{}
	}

	keys := make(map[string]struct{}, len(snap.Licenses))
	for _, l := range snap.Licenses {
		if _, dup := keys[l.Key]; dup {
			return fmt.Errorf("%w: backup has duplicate license key %q", ErrInvalidInput, l.Key)
		}
		keys[l.Key] = struct{}{}
	}
	return nil
}
