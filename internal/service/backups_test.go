package service

import (
	"context"
	"testing"
	"time"

	"github.com/MKhiriev/go-license-keeper/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupAndRestore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice", models.RoleAdmin)
	key := f.issue(t, alice, 30, "export")

	name, err := f.backupManager().Backup(ctx)
	require.NoError(t, err)
	assert.Contains(t, name, "backup_20260301_120000_")

	// diverge from the backup
	f.clock.Advance(time.Minute)
	f.register(t, "bob", models.RoleUser)
	require.NoError(t, f.licenses().Delete(ctx, key))

	require.NoError(t, f.backupManager().Restore(ctx, name))

	users := f.credentials().ListUsers(ctx, models.UserFilter{})
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
	assert.True(t, f.license(t, key).HasFeature("export"))

	// restored state is what is persisted now
	assert.Len(t, f.persisted(t).Users, 1)

	// the pre-restore state was backed up first, newest first
	names, err := f.backupManager().ListBackups(ctx)
	require.NoError(t, err)
	require.Len(t, names, 2)
	assert.Equal(t, name, names[1])

	// and can itself be restored
	require.NoError(t, f.backupManager().Restore(ctx, names[0]))
	assert.Len(t, f.credentials().ListUsers(ctx, models.UserFilter{}), 2)

	events := f.audit.Filter(models.AuditRestore)
	require.Len(t, events, 2)
	assert.Equal(t, models.AuditSuccess, events[0].Outcome)
}

func TestRestore_UnknownBackup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", models.RoleAdmin)

	for _, name := range []string{"backup_19990101_000000_deadbeef", "../users.json", "nope"} {
		err := f.backupManager().Restore(ctx, name)
		assert.ErrorIs(t, err, ErrBackupNotFound, name)
		assert.Equal(t, KindNotFound, KindOf(err))
	}
	assert.ErrorIs(t, f.backupManager().DeleteBackup(ctx, "nope"), ErrBackupNotFound)
}

func TestDeleteBackup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", models.RoleAdmin)

	name, err := f.backupManager().Backup(ctx)
	require.NoError(t, err)

	require.NoError(t, f.backupManager().DeleteBackup(ctx, name))
	names, err := f.backupManager().ListBackups(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	assert.ErrorIs(t, f.backupManager().Restore(ctx, name), ErrBackupNotFound)
	require.Len(t, f.audit.Filter(models.AuditDeleteBackup), 1)
}

func TestRestore_RejectsEmptyBackup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	name, err := f.backupManager().Backup(ctx)
	require.NoError(t, err)
	f.register(t, "alice", models.RoleAdmin)

	err = f.backupManager().Restore(ctx, name)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.True(t, f.credentials().HasUsers(ctx))
}

func TestValidateRestored(t *testing.T) {
	user := func(id int64, name string) models.User { return models.User{ID: id, Username: name} }

	tests := []struct {
		name    string
		snap    models.Snapshot
		wantErr bool
	}{
		{name: "valid", snap: models.Snapshot{Users: []models.User{user(1, "a"), user(2, "b")}}},
		{name: "no users", snap: models.Snapshot{}, wantErr: true},
		{name: "duplicate username", snap: models.Snapshot{Users: []models.User{user(1, "a"), user(2, "a")}}, wantErr: true},
		{name: "duplicate id", snap: models.Snapshot{Users: []models.User{user(1, "a"), user(1, "b")}}, wantErr: true},
		{
			name: "duplicate license",
			snap: models.Snapshot{
				Users:    []models.User{user(1, "a")},
				Licenses: []models.License{{Key: "K"}, {Key: "K"}},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRestored(tt.snap)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}
