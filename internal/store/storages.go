package store

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/MKhiriev/go-license-keeper/internal/clock"
	"github.com/MKhiriev/go-license-keeper/internal/config"
	"github.com/MKhiriev/go-license-keeper/internal/crypto"
	"github.com/MKhiriev/go-license-keeper/internal/logger"
)

// Storages bundles the live repository and the backup store of one storage
// root.
type Storages struct {
	Repository Repository
	Backups    *BackupStore
}

// NewRecordStore opens the backend named by cfg.Backend.
func NewRecordStore(ctx context.Context, cfg config.Storage, log *logger.Logger) (RecordStore, error) {
	switch cfg.Backend {
	case config.BackendJSON, "":
		return NewFileRecordStore(cfg.Root, log)
	case config.BackendBolt:
		return NewBoltRecordStore(filepath.Join(cfg.Root, BoltFileName), log)
	case config.BackendSQLite:
		db, err := NewConnectSQLite(ctx, cfg.DSN, log)
		if err != nil {
			return nil, err
		}
		return openSQLRecordStore(db, log)
	case config.BackendPostgres:
		db, err := NewConnectPostgres(ctx, cfg.DSN, log)
		if err != nil {
			return nil, err
		}
		return openSQLRecordStore(db, log)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, cfg.Backend)
	}
}

// NewStorages opens the configured backend, seals it with cipher, reports
// saves to observer (which may be nil) and attaches the backup store under
// <root>/backups.
func NewStorages(ctx context.Context, cfg config.Storage, cipher crypto.Cipher, observer SaveObserver, clk clock.Clock, log *logger.Logger) (*Storages, error) {
	records, err := NewRecordStore(ctx, cfg, log)
	if err != nil {
		log.Err(err).Str("func", "NewStorages").Str("backend", cfg.Backend).Msg("error opening storage backend")
		return nil, err
	}
	log.Info().Str("func", "NewStorages").Str("backend", cfg.Backend).Str("root", cfg.Root).Msg("storage opened")

	return &Storages{
		Repository: Instrument(NewRepository(records, cipher, log), observer),
		Backups:    NewBackupStore(filepath.Join(cfg.Root, BackupsDirName), cipher, clk, log),
	}, nil
}

func openSQLRecordStore(db *DB, log *logger.Logger) (RecordStore, error) {
	s, err := NewSQLRecordStore(db, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}
