package store

import (
	sq "github.com/Masterminds/squirrel"
)

const (
	tableMeta     = "keeper_meta"
	tableUsers    = "users"
	tableRoles    = "roles"
	tableLicenses = "licenses"

	metaKeyNextUserID = "next_user_id"
)

var (
	userColumns = []string{
		"id", "username", "password_hash", "salt", "hash_params", "role",
		"is_active", "attributes", "secrets", "created_at", "updated_at",
	}
	roleColumns    = []string{"name", "permissions", "description"}
	licenseColumns = []string{
		"license_key", "user_id", "type", "status", "start_date", "end_date",
		"features", "max_users", "created_at", "updated_at",
	}
)

// sqlUserRow is a user record flattened to column values.
type sqlUserRow struct {
	ID           int64
	Username     string
	PasswordHash string
	Salt         string
	HashParams   string // JSON
	Role         string
	IsActive     bool
	Attributes   string // JSON
	Secrets      string // base64
	CreatedAt    string
	UpdatedAt    string
}

type sqlRoleRow struct {
	Name        string
	Permissions string // JSON
	Description string
}

type sqlLicenseRow struct {
	Key       string
	UserID    int64
	Type      string
	Status    string
	StartDate string
	EndDate   string
	Features  string // base64
	MaxUsers  int
	CreatedAt string
	UpdatedAt string
}

func buildSelectMetaQuery(ph sq.PlaceholderFormat, key string) (string, []any, error) {
	return sq.Select("meta_value").
		From(tableMeta).
		Where(sq.Eq{"meta_key": key}).
		PlaceholderFormat(ph).
		ToSql()
}

func buildSelectUsersQuery(ph sq.PlaceholderFormat) (string, []any, error) {
	return sq.Select(userColumns...).From(tableUsers).OrderBy("id").PlaceholderFormat(ph).ToSql()
}

func buildSelectRolesQuery(ph sq.PlaceholderFormat) (string, []any, error) {
	return sq.Select(roleColumns...).From(tableRoles).OrderBy("name").PlaceholderFormat(ph).ToSql()
}

func buildSelectLicensesQuery(ph sq.PlaceholderFormat) (string, []any, error) {
	return sq.Select(licenseColumns...).From(tableLicenses).OrderBy("created_at", "license_key").PlaceholderFormat(ph).ToSql()
}

func buildDeleteAllQuery(ph sq.PlaceholderFormat, table string) (string, []any, error) {
	return sq.Delete(table).PlaceholderFormat(ph).ToSql()
}

func buildInsertMetaQuery(ph sq.PlaceholderFormat, key, value string) (string, []any, error) {
	return sq.Insert(tableMeta).
		Columns("meta_key", "meta_value").
		Values(key, value).
		PlaceholderFormat(ph).
		ToSql()
}

func buildInsertUserQuery(ph sq.PlaceholderFormat, u sqlUserRow) (string, []any, error) {
	return sq.Insert(tableUsers).
		Columns(userColumns...).
		Values(u.ID, u.Username, u.PasswordHash, u.Salt, u.HashParams, u.Role,
			u.IsActive, u.Attributes, u.Secrets, u.CreatedAt, u.UpdatedAt).
		PlaceholderFormat(ph).
		ToSql()
}

func buildInsertRoleQuery(ph sq.PlaceholderFormat, r sqlRoleRow) (string, []any, error) {
	return sq.Insert(tableRoles).
		Columns(roleColumns...).
		Values(r.Name, r.Permissions, r.Description).
		PlaceholderFormat(ph).
		ToSql()
}

func buildInsertLicenseQuery(ph sq.PlaceholderFormat, l sqlLicenseRow) (string, []any, error) {
	return sq.Insert(tableLicenses).
		Columns(licenseColumns...).
		Values(l.Key, l.UserID, l.Type, l.Status, l.StartDate, l.EndDate,
			l.Features, l.MaxUsers, l.CreatedAt, l.UpdatedAt).
		PlaceholderFormat(ph).
		ToSql()
}
