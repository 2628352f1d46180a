// Package store persists the keeper's state.
//
// A [Repository] loads and saves the whole [models.Snapshot] as a unit with
// atomic replace semantics. Repositories are layered: a [RecordStore]
// backend (JSON files, bbolt or SQL) keeps [Records], the sealed on-disk
// form, and [SealedRepository] converts between records and snapshots,
// encrypting user secrets and license features with the keyring.
package store

import (
	"context"
	"time"

	"github.com/MKhiriev/go-license-keeper/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// Repository loads and saves the complete keeper state.
type Repository interface {
	// Load returns the persisted snapshot, or an empty snapshot when
	// nothing was stored yet.
	Load(ctx context.Context) (models.Snapshot, error)

	// Save durably replaces the persisted snapshot. Either all of it is
	// stored or none of it; on error the previous state is kept.
	Save(ctx context.Context, snapshot models.Snapshot) error

	// KeysInUse counts persisted sealed blobs per encryption key id.
	KeysInUse(ctx context.Context) (map[uint32]int, error)

	// Close releases backend resources.
	Close() error
}

// RecordStore is a storage backend for sealed records.
type RecordStore interface {
	LoadRecords(ctx context.Context) (Records, error)
	SaveRecords(ctx context.Context, records Records) error
	Close() error
}

// SaveObserver is notified after every save attempt.
type SaveObserver interface {
	ObserveSave(d time.Duration, err error)
}
