package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/MKhiriev/go-license-keeper/internal/clock"
	"github.com/MKhiriev/go-license-keeper/internal/crypto"
	"github.com/MKhiriev/go-license-keeper/internal/logger"
	"github.com/MKhiriev/go-license-keeper/internal/utils"
	"github.com/MKhiriev/go-license-keeper/models"
)

const (
	// BackupsDirName is the directory under the storage root holding backups.
	BackupsDirName = "backups"

	backupPrefix     = "backup_"
	backupTimeLayout = "20060102_150405"
)

// BackupStore keeps point-in-time copies of the snapshot, each as a
// directory of JSON documents sealed like the live data.
type BackupStore struct {
	dir    string
	cipher crypto.Cipher
	clock  clock.Clock
	ids    *utils.UUIDGenerator
	logger *logger.Logger
}

// NewBackupStore returns a backup store rooted at dir. The directory is
// created lazily by the first backup.
func NewBackupStore(dir string, cipher crypto.Cipher, clk clock.Clock, log *logger.Logger) *BackupStore {
	return &BackupStore{
		dir:    dir,
		cipher: cipher,
		clock:  clk,
		ids:    utils.NewUUIDGenerator(),
		logger: log,
	}
}

// Create writes snap as a new backup and returns its name.
func (b *BackupStore) Create(ctx context.Context, snap models.Snapshot) (string, error) {
	name := backupPrefix + b.clock.Now().UTC().Format(backupTimeLayout) + "_" + b.ids.Short()

	repo, err := b.open(name)
	if err != nil {
		return "", err
	}
	if err := repo.Save(ctx, snap); err != nil {
		b.logger.Err(err).Str("func", "BackupStore.Create").Str("backup", name).Msg("error writing backup")
		_ = os.RemoveAll(filepath.Join(b.dir, name))
		return "", err
	}

	b.logger.Info().Str("func", "BackupStore.Create").Str("backup", name).Msg("backup created")
	return name, nil
}

// List returns backup names, newest first.
func (b *BackupStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(b.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: list backups: %w", ErrStorage, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), backupPrefix) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	slices.Reverse(names)
	return names, nil
}

// Load reads the named backup.
func (b *BackupStore) Load(ctx context.Context, name string) (models.Snapshot, error) {
	if err := b.exists(name); err != nil {
		return models.Snapshot{}, err
	}
	repo, err := b.open(name)
	if err != nil {
		return models.Snapshot{}, err
	}
	return repo.Load(ctx)
}

// Delete removes the named backup.
func (b *BackupStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.exists(name); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(b.dir, name)); err != nil {
		return fmt.Errorf("%w: delete backup %s: %w", ErrStorage, name, err)
	}
	return nil
}

// KeysInUse counts sealed blobs per key id across every backup, so that a
// key is not discarded while a backup still needs it.
func (b *BackupStore) KeysInUse(ctx context.Context) (map[uint32]int, error) {
	names, err := b.List(ctx)
	if err != nil {
		return nil, err
	}

	usage := make(map[uint32]int)
	for _, name := range names {
		repo, err := b.open(name)
		if err != nil {
			return nil, err
		}
		counts, err := repo.KeysInUse(ctx)
		if err != nil {
			return nil, fmt.Errorf("backup %s: %w", name, err)
		}
		for id, n := range counts {
			usage[id] += n
		}
	}
	return usage, nil
}

func (b *BackupStore) open(name string) (*SealedRepository, error) {
	records, err := NewFileRecordStore(filepath.Join(b.dir, name), b.logger)
	if err != nil {
		return nil, err
	}
	return NewRepository(records, b.cipher, b.logger), nil
}

func (b *BackupStore) exists(name string) error {
	if !strings.HasPrefix(name, backupPrefix) || name != filepath.Base(name) {
		return fmt.Errorf("%w: %q", ErrBackupNotFound, name)
	}
	info, err := os.Stat(filepath.Join(b.dir, name))
	if errors.Is(err, os.ErrNotExist) || (err == nil && !info.IsDir()) {
		return fmt.Errorf("%w: %q", ErrBackupNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("%w: stat backup %s: %w", ErrStorage, name, err)
	}
	return nil
}
