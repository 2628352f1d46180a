package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/MKhiriev/go-license-keeper/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRecordStore_EmptyRootLoadsEmpty(t *testing.T) {
	s, err := NewFileRecordStore(filepath.Join(t.TempDir(), "data"), logger.Nop())
	require.NoError(t, err)

	recs, err := s.LoadRecords(context.Background())
	require.NoError(t, err)
	assert.Zero(t, recs.NextUserID)
	assert.Empty(t, recs.Users)
	assert.Empty(t, recs.Roles)
	assert.Empty(t, recs.Licenses)
}

func TestFileRecordStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileRecordStore(t.TempDir(), logger.Nop())
	require.NoError(t, err)

	recs := Records{
		NextUserID: 8,
		Users:      []UserRecord{{ID: 7, Username: "carol", PasswordHash: "aa", Salt: "bb", Role: "user", CreatedAt: "2026-03-01T12:00:00Z"}},
		Roles:      []RoleRecord{{Name: "user", Permissions: []string{"view_licenses"}}},
		Licenses:   []LicenseRecord{{Key: "ABCDE-12345-FGHIJ-67890", UserID: 7, Status: "ACTIVE", StartDate: "2026-03-01", EndDate: "2026-04-01"}},
	}
	require.NoError(t, s.SaveRecords(ctx, recs))

	got, err := s.LoadRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, recs, got)

	for _, name := range []string{UsersFileName, RolesFileName, LicensesFileName} {
		info, err := os.Stat(filepath.Join(s.Dir(), name))
		require.NoError(t, err, name)
		assert.Equal(t, os.FileMode(dataFileMode), info.Mode().Perm(), name)
	}
}

func TestFileRecordStore_DocumentsAreReadable(t *testing.T) {
	s, err := NewFileRecordStore(t.TempDir(), logger.Nop())
	require.NoError(t, err)
	require.NoError(t, s.SaveRecords(context.Background(), Records{NextUserID: 1}))

	data, err := os.ReadFile(filepath.Join(s.Dir(), UsersFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"next_user_id": 1`)
	assert.Contains(t, string(data), `"users": []`)
}

func TestFileRecordStore_CorruptedDocument(t *testing.T) {
	s, err := NewFileRecordStore(t.TempDir(), logger.Nop())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), LicensesFileName), []byte("{not json"), 0o600))

	_, err = s.LoadRecords(context.Background())
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, ErrCorrupted)
}

func TestFileRecordStore_CancelledContext(t *testing.T) {
	s, err := NewFileRecordStore(t.TempDir(), logger.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.SaveRecords(ctx, Records{}), context.Canceled)
	_, err = s.LoadRecords(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileRecordStore_DocumentsFromDifferentSaves(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileRecordStore(t.TempDir(), logger.Nop())
	require.NoError(t, err)

	require.NoError(t, s.SaveRecords(ctx, Records{NextUserID: 1}))
	stale, err := os.ReadFile(filepath.Join(s.Dir(), LicensesFileName))
	require.NoError(t, err)

	require.NoError(t, s.SaveRecords(ctx, Records{
		NextUserID: 2,
		Licenses:   []LicenseRecord{{Key: "ABCDE-12345-FGHIJ-67890", UserID: 1, Status: "ACTIVE", StartDate: "2026-03-01", EndDate: "2026-04-01"}},
	}))
	// licenses.json left over from the earlier save, as after an interrupted rename
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), LicensesFileName), stale, 0o600))

	_, err = s.LoadRecords(ctx)
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, ErrCorrupted)
}

func TestFileRecordStore_DocumentsWithoutRevision(t *testing.T) {
	s, err := NewFileRecordStore(t.TempDir(), logger.Nop())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), UsersFileName), []byte(`{"next_user_id": 4, "users": []}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), RolesFileName), []byte(`{"roles": []}`), 0o600))

	recs, err := s.LoadRecords(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), recs.NextUserID)
}
