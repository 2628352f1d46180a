package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/MKhiriev/go-license-keeper/internal/logger"
	"github.com/MKhiriev/go-license-keeper/internal/utils"
)

// Names of the JSON documents inside the storage root.
const (
	UsersFileName    = "users.json"
	RolesFileName    = "roles.json"
	LicensesFileName = "licenses.json"

	dataFileMode = 0o600
	dataDirMode  = 0o700
)

// Every document of one save carries the same revision, so documents left
// behind by an interrupted rename are detected at load.
type usersDocument struct {
	Revision   string       `json:"revision,omitempty"`
	NextUserID int64        `json:"next_user_id"`
	Users      []UserRecord `json:"users"`
}

type rolesDocument struct {
	Revision string       `json:"revision,omitempty"`
	Roles    []RoleRecord `json:"roles"`
}

type licensesDocument struct {
	Revision string          `json:"revision,omitempty"`
	Licenses []LicenseRecord `json:"licenses"`
}

type document interface {
	revision() string
}

func (d *usersDocument) revision() string    { return d.Revision }
func (d *rolesDocument) revision() string    { return d.Revision }
func (d *licensesDocument) revision() string { return d.Revision }

// FileRecordStore keeps records as three indented JSON documents. All three
// are staged before any of them is renamed into place.
type FileRecordStore struct {
	dir       string
	revisions *utils.UUIDGenerator
	logger    *logger.Logger
}

// NewFileRecordStore creates dir when missing and returns a store rooted
// there.
func NewFileRecordStore(dir string, log *logger.Logger) (*FileRecordStore, error) {
	if err := os.MkdirAll(dir, dataDirMode); err != nil {
		return nil, fmt.Errorf("%w: create storage root: %w", ErrStorage, err)
	}
	return &FileRecordStore{dir: dir, revisions: utils.NewUUIDGenerator(), logger: log}, nil
}

// Dir returns the storage root.
func (s *FileRecordStore) Dir() string {
	return s.dir
}

// LoadRecords implements [RecordStore]. Missing documents read as empty.
// Documents written by different saves are reported as [ErrCorrupted].
func (s *FileRecordStore) LoadRecords(ctx context.Context) (Records, error) {
	if err := ctx.Err(); err != nil {
		return Records{}, err
	}

	var (
		users    usersDocument
		roles    rolesDocument
		licenses licensesDocument
	)
	revisions := make(map[string]string, 3)
	for name, target := range map[string]document{
		UsersFileName:    &users,
		RolesFileName:    &roles,
		LicensesFileName: &licenses,
	} {
		found, err := s.readDocument(name, target)
		if err != nil {
			s.logger.Err(err).Str("func", "FileRecordStore.LoadRecords").Str("file", name).Msg("error reading document")
			return Records{}, err
		}
		if found {
			revisions[name] = target.revision()
		}
	}
	if err := sameRevision(revisions); err != nil {
		s.logger.Err(err).Str("func", "FileRecordStore.LoadRecords").Msg("documents belong to different saves; restore a backup")
		return Records{}, err
	}

	return Records{
		NextUserID: users.NextUserID,
		Users:      users.Users,
		Roles:      roles.Roles,
		Licenses:   licenses.Licenses,
	}, nil
}

// SaveRecords implements [RecordStore].
func (s *FileRecordStore) SaveRecords(ctx context.Context, recs Records) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rev := s.revisions.Generate()
	files := make(map[string][]byte, 3)
	for name, doc := range map[string]any{
		UsersFileName:    usersDocument{Revision: rev, NextUserID: recs.NextUserID, Users: nonNil(recs.Users)},
		RolesFileName:    rolesDocument{Revision: rev, Roles: nonNil(recs.Roles)},
		LicensesFileName: licensesDocument{Revision: rev, Licenses: nonNil(recs.Licenses)},
	} {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("%w: encode %s: %w", ErrStorage, name, err)
		}
		files[filepath.Join(s.dir, name)] = append(data, '\n')
	}

	if err := utils.AtomicWriteFiles(files, dataFileMode); err != nil {
		s.logger.Err(err).Str("func", "FileRecordStore.SaveRecords").Msg("error writing documents")
		return fmt.Errorf("%w: write documents: %w", ErrStorage, err)
	}

	return nil
}

// Close implements [RecordStore].
func (s *FileRecordStore) Close() error {
	return nil
}

func (s *FileRecordStore) readDocument(name string, target any) (bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: read %s: %w", ErrStorage, name, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return false, fmt.Errorf("%w: %w: decode %s: %w", ErrStorage, ErrCorrupted, name, err)
	}
	return true, nil
}

// sameRevision checks that every document found on disk came from one save.
func sameRevision(revisions map[string]string) error {
	names := slices.Sorted(maps.Keys(revisions))
	for _, name := range names[min(1, len(names)):] {
		if revisions[name] != revisions[names[0]] {
			return fmt.Errorf("%w: %w: %s is from revision %q, %s from %q",
				ErrStorage, ErrCorrupted, names[0], revisions[names[0]], name, revisions[name])
		}
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
