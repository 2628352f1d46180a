// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MKhiriev/go-license-keeper/internal/crypto"
	"github.com/MKhiriev/go-license-keeper/internal/logger"
	"github.com/MKhiriev/go-license-keeper/models"
)

// SealedRepository implements [Repository] on top of a [RecordStore],
// sealing secrets and features with the current key on every save.
type SealedRepository struct {
	records RecordStore
	cipher  crypto.Cipher
	logger  *logger.Logger
}

// NewRepository wraps records so that snapshots are sealed with cipher.
func NewRepository(records RecordStore, cipher crypto.Cipher, log *logger.Logger) *SealedRepository {
	return &SealedRepository{records: records, cipher: cipher, logger: log}
}

// Load implements [Repository].
func (r *SealedRepository) Load(ctx context.Context) (models.Snapshot, error) {
	recs, err := r.records.LoadRecords(ctx)
	if err != nil {
		return models.Snapshot{}, err
	}

	snap, err := DecodeRecords(recs, r.cipher, r.logger)
	if err != nil {
		r.logger.Err(err).Str("func", "SealedRepository.Load").Msg("error decoding persisted records")
		return models.Snapshot{}, err
	}

	return snap, nil
}

// Save implements [Repository].
func (r *SealedRepository) Save(ctx context.Context, snapshot models.Snapshot) error {
	recs, err := EncodeSnapshot(snapshot, r.cipher)
	if err != nil {
		return err
	}
	return r.records.SaveRecords(ctx, recs)
}

// KeysInUse implements [Repository].
func (r *SealedRepository) KeysInUse(ctx context.Context) (map[uint32]int, error) {
	recs, err := r.records.LoadRecords(ctx)
	if err != nil {
		return nil, err
	}

	usage := make(map[uint32]int)
	for _, blob := range recs.sealedBlobs() {
		id, err := r.cipher.KeyID(blob)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorage, err)
		}
		usage[id]++
	}
	return usage, nil
}

// Close implements [Repository].
func (r *SealedRepository) Close() error {
	return r.records.Close()
}

// EncodeSnapshot converts snap into records, sealing secret fields.
func EncodeSnapshot(snap models.Snapshot, cipher crypto.Cipher) (Records, error) {
	recs := Records{
		NextUserID: snap.NextUserID,
		Users:      make([]UserRecord, 0, len(snap.Users)),
		Roles:      make([]RoleRecord, 0, len(snap.Roles)),
		Licenses:   make([]LicenseRecord, 0, len(snap.Licenses)),
	}

	for _, u := range snap.Users {
		rec := UserRecord{
			ID:           u.ID,
			Username:     u.Username,
			PasswordHash: hex.EncodeToString(u.PasswordHash),
			Salt:         hex.EncodeToString(u.Salt),
			HashParams:   u.HashParams,
			Role:         u.Role,
			IsActive:     u.IsActive,
			Attributes:   u.Attributes,
			CreatedAt:    formatTime(u.CreatedAt),
			UpdatedAt:    formatTime(u.UpdatedAt),
		}
		if len(u.Secrets) > 0 {
			sealed, err := seal(cipher, u.Secrets)
			if err != nil {
				return Records{}, fmt.Errorf("seal secrets of user %d: %w", u.ID, err)
			}
			rec.Secrets = sealed
		}
		recs.Users = append(recs.Users, rec)
	}

	for _, role := range snap.Roles {
		perms := make([]string, len(role.Permissions))
		for i, p := range role.Permissions {
			perms[i] = string(p)
		}
		recs.Roles = append(recs.Roles, RoleRecord{
			Name:        role.Name,
			Permissions: perms,
			Description: role.Description,
		})
	}

	for _, l := range snap.Licenses {
		rec := LicenseRecord{
			Key:       l.Key,
			UserID:    l.UserID,
			Type:      string(l.Type),
			Status:    string(l.Status),
			StartDate: l.StartDate.String(),
			EndDate:   l.EndDate.String(),
			MaxUsers:  l.MaxUsers,
			CreatedAt: formatTime(l.CreatedAt),
			UpdatedAt: formatTime(l.UpdatedAt),
		}
		if l.Features != nil {
			sealed, err := seal(cipher, l.Features)
			if err != nil {
				return Records{}, fmt.Errorf("seal features of license %s: %w", l.Key, err)
			}
			rec.Features = sealed
		}
		recs.Licenses = append(recs.Licenses, rec)
	}

	return recs, nil
}

// DecodeRecords converts recs back into a snapshot, opening sealed fields.
// Unknown permission names are dropped with a warning; a blob that fails
// authentication yields [crypto.ErrIntegrity].
func DecodeRecords(recs Records, cipher crypto.Cipher, log *logger.Logger) (models.Snapshot, error) {
	snap := models.Snapshot{NextUserID: recs.NextUserID}

	for _, rec := range recs.Users {
		hash, err := hex.DecodeString(rec.PasswordHash)
		if err != nil {
			return models.Snapshot{}, corrupted("password hash of user %d: %w", rec.ID, err)
		}
		salt, err := hex.DecodeString(rec.Salt)
		if err != nil {
			return models.Snapshot{}, corrupted("salt of user %d: %w", rec.ID, err)
		}
		createdAt, err := parseTime(rec.CreatedAt)
		if err != nil {
			return models.Snapshot{}, corrupted("created_at of user %d: %w", rec.ID, err)
		}
		updatedAt, err := parseTime(rec.UpdatedAt)
		if err != nil {
			return models.Snapshot{}, corrupted("updated_at of user %d: %w", rec.ID, err)
		}

		u := models.User{
			ID:           rec.ID,
			Username:     rec.Username,
			PasswordHash: hash,
			Salt:         salt,
			HashParams:   rec.HashParams,
			Role:         rec.Role,
			IsActive:     rec.IsActive,
			Attributes:   rec.Attributes,
			CreatedAt:    createdAt,
			UpdatedAt:    updatedAt,
		}
		if len(rec.Secrets) > 0 {
			if err := open(cipher, rec.Secrets, &u.Secrets); err != nil {
				return models.Snapshot{}, fmt.Errorf("open secrets of user %d: %w", rec.ID, err)
			}
		}
		if u.ID >= snap.NextUserID {
			snap.NextUserID = u.ID + 1
		}
		snap.Users = append(snap.Users, u)
	}

	for _, rec := range recs.Roles {
		role := models.Role{Name: rec.Name, Description: rec.Description, Permissions: []models.Permission{}}
		for _, name := range rec.Permissions {
			p, err := models.ParsePermission(name)
			if err != nil {
				log.Warn().Str("func", "DecodeRecords").
					Str("role", rec.Name).
					Str("permission", name).
					Msg("dropping unknown permission")
				continue
			}
			role.Permissions = append(role.Permissions, p)
		}
		snap.Roles = append(snap.Roles, role)
	}

	for _, rec := range recs.Licenses {
		start, err := models.ParseDate(rec.StartDate)
		if err != nil {
			return models.Snapshot{}, corrupted("start_date of license %s: %w", rec.Key, err)
		}
		end, err := models.ParseDate(rec.EndDate)
		if err != nil {
			return models.Snapshot{}, corrupted("end_date of license %s: %w", rec.Key, err)
		}
		status := models.LicenseStatus(rec.Status)
		if !status.IsValid() {
			return models.Snapshot{}, corrupted("status of license %s: %q", rec.Key, rec.Status)
		}
		createdAt, err := parseTime(rec.CreatedAt)
		if err != nil {
			return models.Snapshot{}, corrupted("created_at of license %s: %w", rec.Key, err)
		}
		updatedAt, err := parseTime(rec.UpdatedAt)
		if err != nil {
			return models.Snapshot{}, corrupted("updated_at of license %s: %w", rec.Key, err)
		}

		l := models.License{
			Key:       rec.Key,
			UserID:    rec.UserID,
			Type:      models.LicenseType(rec.Type),
			Status:    status,
			StartDate: start,
			EndDate:   end,
			MaxUsers:  rec.MaxUsers,
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
		}
		if len(rec.Features) > 0 {
			if err := open(cipher, rec.Features, &l.Features); err != nil {
				return models.Snapshot{}, fmt.Errorf("open features of license %s: %w", rec.Key, err)
			}
		}
		snap.Licenses = append(snap.Licenses, l)
	}

	return snap, nil
}

func seal(cipher crypto.Cipher, v any) ([]byte, error) {
	plain, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	return cipher.Encrypt(plain)
}

func open(cipher crypto.Cipher, blob []byte, target any) error {
	plain, err := cipher.Decrypt(blob)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(plain, target); err != nil {
		return fmt.Errorf("%w: %w", crypto.ErrIntegrity, err)
	}
	return nil
}

func corrupted(format string, args ...any) error {
	return fmt.Errorf("%w: %w: "+format, append([]any{ErrStorage, ErrCorrupted}, args...)...)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
