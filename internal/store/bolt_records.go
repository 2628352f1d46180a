package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"
	"go.etcd.io/bbolt"

	"github.com/MKhiriev/go-license-keeper/internal/logger"
)

// BoltFileName is the database file used by the bolt backend inside the
// storage root.
const BoltFileName = "keeper.db"

var (
	bucketUsers    = []byte("users")
	bucketRoles    = []byte("roles")
	bucketLicenses = []byte("licenses")
	bucketMeta     = []byte("meta")

	metaNextUserID = []byte("next_user_id")
)

// BoltRecordStore keeps records in a single bbolt database with cbor-encoded
// values. Every save runs in one write transaction.
type BoltRecordStore struct {
	db     *bbolt.DB
	logger *logger.Logger
}

// NewBoltRecordStore opens (or creates) the database at path.
func NewBoltRecordStore(path string, log *logger.Logger) (*BoltRecordStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), dataDirMode); err != nil {
		return nil, fmt.Errorf("%w: create storage root: %w", ErrStorage, err)
	}

	db, err := bbolt.Open(path, dataFileMode, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		log.Err(err).Str("func", "NewBoltRecordStore").Str("path", path).Msg("error opening bolt database")
		return nil, fmt.Errorf("%w: open bolt database: %w", ErrStorage, err)
	}

	return &BoltRecordStore{db: db, logger: log}, nil
}

// LoadRecords implements [RecordStore].
func (s *BoltRecordStore) LoadRecords(ctx context.Context) (Records, error) {
	if err := ctx.Err(); err != nil {
		return Records{}, err
	}

	var recs Records
	err := s.db.View(func(tx *bbolt.Tx) error {
		if meta := tx.Bucket(bucketMeta); meta != nil {
			if v := meta.Get(metaNextUserID); len(v) == 8 {
				recs.NextUserID = int64(binary.BigEndian.Uint64(v))
			}
		}

		if err := forEachRecord(tx, bucketUsers, func(u UserRecord) { recs.Users = append(recs.Users, u) }); err != nil {
			return err
		}
		if err := forEachRecord(tx, bucketRoles, func(r RoleRecord) { recs.Roles = append(recs.Roles, r) }); err != nil {
			return err
		}
		return forEachRecord(tx, bucketLicenses, func(l LicenseRecord) { recs.Licenses = append(recs.Licenses, l) })
	})
	if err != nil {
		s.logger.Err(err).Str("func", "BoltRecordStore.LoadRecords").Msg("error reading records")
		return Records{}, err
	}

	return recs, nil
}

// SaveRecords implements [RecordStore]. Buckets are recreated inside the
// transaction so removed records disappear together with the write.
func (s *BoltRecordStore) SaveRecords(ctx context.Context, recs Records) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketUsers, bucketRoles, bucketLicenses, bucketMeta} {
			if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
				return err
			}
		}

		users, err := tx.CreateBucket(bucketUsers)
		if err != nil {
			return err
		}
		for _, u := range recs.Users {
			if err := putRecord(users, userKey(u.ID), u); err != nil {
				return err
			}
		}

		roles, err := tx.CreateBucket(bucketRoles)
		if err != nil {
			return err
		}
		for _, r := range recs.Roles {
			if err := putRecord(roles, []byte(r.Name), r); err != nil {
				return err
			}
		}

		licenses, err := tx.CreateBucket(bucketLicenses)
		if err != nil {
			return err
		}
		for _, l := range recs.Licenses {
			if err := putRecord(licenses, []byte(l.Key), l); err != nil {
				return err
			}
		}

		meta, err := tx.CreateBucket(bucketMeta)
		if err != nil {
			return err
		}
		return meta.Put(metaNextUserID, binary.BigEndian.AppendUint64(nil, uint64(recs.NextUserID)))
	})
	if err != nil {
		s.logger.Err(err).Str("func", "BoltRecordStore.SaveRecords").Msg("error writing records")
		return fmt.Errorf("%w: bolt update: %w", ErrStorage, err)
	}

	return nil
}

// Close implements [RecordStore].
func (s *BoltRecordStore) Close() error {
	return s.db.Close()
}

func userKey(id int64) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(id))
}

func putRecord(b *bbolt.Bucket, key []byte, v any) error {
	data, err := cbor.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", key, err)
	}
	return b.Put(key, data)
}

func forEachRecord[T any](tx *bbolt.Tx, bucket []byte, fn func(T)) error {
	b := tx.Bucket(bucket)
	if b == nil {
		return nil
	}
	return b.ForEach(func(k, v []byte) error {
		var rec T
		if err := cbor.Unmarshal(v, &rec); err != nil {
			return corrupted("%s record %x: %v", bucket, k, err)
		}
		fn(rec)
		return nil
	})
}
