// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/MKhiriev/go-license-keeper/internal/logger"
	"github.com/MKhiriev/go-license-keeper/models"
)

const (
	sqlSaveRetries = 3
	sqlRetryBase   = 50 * time.Millisecond
)

// SQLRecordStore keeps records in four tables. A save replaces every table
// inside one transaction; transient failures reported as retryable by the
// connection's classifier are retried with exponential backoff.
type SQLRecordStore struct {
	db      *DB
	logger  *logger.Logger
	backoff func() retry.Backoff
}

// NewSQLRecordStore migrates db and returns a record store on top of it.
func NewSQLRecordStore(db *DB, log *logger.Logger) (*SQLRecordStore, error) {
	if err := db.Migrate(); err != nil {
		log.Err(err).Str("func", "NewSQLRecordStore").Msg("error migrating database")
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return newSQLRecordStore(db, log), nil
}

func newSQLRecordStore(db *DB, log *logger.Logger) *SQLRecordStore {
	return &SQLRecordStore{
		db:     db,
		logger: log,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(sqlSaveRetries, retry.NewExponential(sqlRetryBase))
		},
	}
}

// LoadRecords implements [RecordStore].
func (s *SQLRecordStore) LoadRecords(ctx context.Context) (Records, error) {
	var recs Records

	nextUserID, err := s.loadNextUserID(ctx)
	if err != nil {
		return Records{}, err
	}
	recs.NextUserID = nextUserID

	if recs.Users, err = s.loadUsers(ctx); err != nil {
		return Records{}, err
	}
	if recs.Roles, err = s.loadRoles(ctx); err != nil {
		return Records{}, err
	}
	if recs.Licenses, err = s.loadLicenses(ctx); err != nil {
		return Records{}, err
	}

	return recs, nil
}

// SaveRecords implements [RecordStore].
func (s *SQLRecordStore) SaveRecords(ctx context.Context, recs Records) error {
	users := make([]sqlUserRow, 0, len(recs.Users))
	for _, u := range recs.Users {
		row, err := toUserRow(u)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrStorage, err)
		}
		users = append(users, row)
	}
	roles := make([]sqlRoleRow, 0, len(recs.Roles))
	for _, r := range recs.Roles {
		row, err := toRoleRow(r)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrStorage, err)
		}
		roles = append(roles, row)
	}
	licenses := make([]sqlLicenseRow, 0, len(recs.Licenses))
	for _, l := range recs.Licenses {
		licenses = append(licenses, toLicenseRow(l))
	}

	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		err := s.replaceAll(ctx, recs.NextUserID, users, roles, licenses)
		if err != nil && s.db.retryable(err) {
			s.logger.Warn().Err(err).Str("func", "SQLRecordStore.SaveRecords").
				Str("code", postgresError(err)).
				Msg("retrying save after transient database error")
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		s.logger.Err(err).Str("func", "SQLRecordStore.SaveRecords").Msg("error saving records")
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	return nil
}

// Close implements [RecordStore].
func (s *SQLRecordStore) Close() error {
	return s.db.Close()
}

func (s *SQLRecordStore) replaceAll(ctx context.Context, nextUserID int64, users []sqlUserRow, roles []sqlRoleRow, licenses []sqlLicenseRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	ph := s.db.placeholder
	exec := func(query string, args []any, err error) error {
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
		return nil
	}

	for _, table := range []string{tableLicenses, tableUsers, tableRoles, tableMeta} {
		if err := exec(buildDeleteAllQuery(ph, table)); err != nil {
			return err
		}
	}

	if err := exec(buildInsertMetaQuery(ph, metaKeyNextUserID, strconv.FormatInt(nextUserID, 10))); err != nil {
		return err
	}
	for _, u := range users {
		if err := exec(buildInsertUserQuery(ph, u)); err != nil {
			return err
		}
	}
	for _, r := range roles {
		if err := exec(buildInsertRoleQuery(ph, r)); err != nil {
			return err
		}
	}
	for _, l := range licenses {
		if err := exec(buildInsertLicenseQuery(ph, l)); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}
	return nil
}

func (s *SQLRecordStore) loadNextUserID(ctx context.Context) (int64, error) {
	query, args, err := buildSelectMetaQuery(s.db.placeholder, metaKeyNextUserID)
	if err != nil {
		return 0, fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
	}

	var value string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		s.logger.Err(err).Str("func", "SQLRecordStore.loadNextUserID").Msg("error reading meta")
		return 0, fmt.Errorf("%w: %w: %w", ErrStorage, ErrExecutingQuery, err)
	}

	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, corrupted("next user id %q: %w", value, err)
	}
	return id, nil
}

func (s *SQLRecordStore) loadUsers(ctx context.Context) ([]UserRecord, error) {
	query, args, err := buildSelectUsersQuery(s.db.placeholder)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
	}

	return queryRows(ctx, s, query, args, func(rows *sql.Rows) (UserRecord, error) {
		var row sqlUserRow
		if err := rows.Scan(&row.ID, &row.Username, &row.PasswordHash, &row.Salt, &row.HashParams, &row.Role,
			&row.IsActive, &row.Attributes, &row.Secrets, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return UserRecord{}, fmt.Errorf("%w: %w: %w", ErrStorage, ErrScanningRows, err)
		}
		return fromUserRow(row)
	})
}

func (s *SQLRecordStore) loadRoles(ctx context.Context) ([]RoleRecord, error) {
	query, args, err := buildSelectRolesQuery(s.db.placeholder)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
	}

	return queryRows(ctx, s, query, args, func(rows *sql.Rows) (RoleRecord, error) {
		var row sqlRoleRow
		if err := rows.Scan(&row.Name, &row.Permissions, &row.Description); err != nil {
			return RoleRecord{}, fmt.Errorf("%w: %w: %w", ErrStorage, ErrScanningRows, err)
		}
		return fromRoleRow(row)
	})
}

func (s *SQLRecordStore) loadLicenses(ctx context.Context) ([]LicenseRecord, error) {
	query, args, err := buildSelectLicensesQuery(s.db.placeholder)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
	}

	return queryRows(ctx, s, query, args, func(rows *sql.Rows) (LicenseRecord, error) {
		var row sqlLicenseRow
		if err := rows.Scan(&row.Key, &row.UserID, &row.Type, &row.Status, &row.StartDate, &row.EndDate,
			&row.Features, &row.MaxUsers, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return LicenseRecord{}, fmt.Errorf("%w: %w: %w", ErrStorage, ErrScanningRows, err)
		}
		return fromLicenseRow(row)
	})
}

func queryRows[T any](ctx context.Context, s *SQLRecordStore, query string, args []any, scan func(*sql.Rows) (T, error)) ([]T, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Err(err).Str("func", "SQLRecordStore.queryRows").Str("query", query).Msg("error executing query")
		return nil, fmt.Errorf("%w: %w: %w", ErrStorage, ErrExecutingQuery, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w: %w", ErrStorage, ErrScanningRows, err)
	}
	return out, nil
}

func toUserRow(u UserRecord) (sqlUserRow, error) {
	params, err := json.Marshal(u.HashParams)
	if err != nil {
		return sqlUserRow{}, fmt.Errorf("encode hash params of user %d: %w", u.ID, err)
	}
	attrs := u.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	attributes, err := json.Marshal(attrs)
	if err != nil {
		return sqlUserRow{}, fmt.Errorf("encode attributes of user %d: %w", u.ID, err)
	}
	return sqlUserRow{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Salt:         u.Salt,
		HashParams:   string(params),
		Role:         u.Role,
		IsActive:     u.IsActive,
		Attributes:   string(attributes),
		Secrets:      base64.StdEncoding.EncodeToString(u.Secrets),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}, nil
}

func fromUserRow(row sqlUserRow) (UserRecord, error) {
	rec := UserRecord{
		ID:           row.ID,
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
		Salt:         row.Salt,
		Role:         row.Role,
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	var params models.HashParams
	if err := json.Unmarshal([]byte(row.HashParams), &params); err != nil {
		return UserRecord{}, corrupted("hash params of user %d: %w", row.ID, err)
	}
	rec.HashParams = params
	if row.Attributes != "" {
		if err := json.Unmarshal([]byte(row.Attributes), &rec.Attributes); err != nil {
			return UserRecord{}, corrupted("attributes of user %d: %w", row.ID, err)
		}
		if len(rec.Attributes) == 0 {
			rec.Attributes = nil
		}
	}
	secrets, err := base64.StdEncoding.DecodeString(row.Secrets)
	if err != nil {
		return UserRecord{}, corrupted("secrets of user %d: %w", row.ID, err)
	}
	if len(secrets) > 0 {
		rec.Secrets = secrets
	}
	return rec, nil
}

func toRoleRow(r RoleRecord) (sqlRoleRow, error) {
	perms := r.Permissions
	if perms == nil {
		perms = []string{}
	}
	data, err := json.Marshal(perms)
	if err != nil {
		return sqlRoleRow{}, fmt.Errorf("encode permissions of role %s: %w", r.Name, err)
	}
	return sqlRoleRow{Name: r.Name, Permissions: string(data), Description: r.Description}, nil
}

func fromRoleRow(row sqlRoleRow) (RoleRecord, error) {
	rec := RoleRecord{Name: row.Name, Description: row.Description}
	if err := json.Unmarshal([]byte(row.Permissions), &rec.Permissions); err != nil {
		return RoleRecord{}, corrupted("permissions of role %s: %w", row.Name, err)
	}
	return rec, nil
}

func toLicenseRow(l LicenseRecord) sqlLicenseRow {
	return sqlLicenseRow{
		Key:       l.Key,
		UserID:    l.UserID,
		Type:      l.Type,
		Status:    l.Status,
		StartDate: l.StartDate,
		EndDate:   l.EndDate,
		Features:  base64.StdEncoding.EncodeToString(l.Features),
		MaxUsers:  l.MaxUsers,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

func fromLicenseRow(row sqlLicenseRow) (LicenseRecord, error) {
	features, err := base64.StdEncoding.DecodeString(row.Features)
	if err != nil {
		return LicenseRecord{}, corrupted("features of license %s: %w", row.Key, err)
	}
	rec := LicenseRecord{
		Key:       row.Key,
		UserID:    row.UserID,
		Type:      row.Type,
		Status:    row.Status,
		StartDate: row.StartDate,
		EndDate:   row.EndDate,
		MaxUsers:  row.MaxUsers,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if len(features) > 0 {
		rec.Features = features
	}
	return rec, nil
}
