package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/MKhiriev/go-license-keeper/internal/store"
	"github.com/MKhiriev/go-license-keeper/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	f := newFixture(t)

	for _, plaintext := range [][]byte{{}, []byte("license blob")} {
		blob, err := f.encryption().Encrypt(plaintext)
		require.NoError(t, err)
		got, err := f.encryption().Decrypt(blob)
		require.NoError(t, err)
		assert.Equal(t, len(plaintext), len(got))
		assert.Equal(t, string(plaintext), string(got))
	}

	blob, err := f.encryption().Encrypt([]byte("license blob"))
	require.NoError(t, err)
	blob[len(blob)-1] ^= 0x01
	_, err = f.encryption().Decrypt(blob)
	assert.ErrorIs(t, err, ErrIntegrity)
	assert.Equal(t, KindIntegrity, KindOf(err))
}

func TestRotateKey_ReSealsPersistedState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "alice", models.RoleUser)
	key := f.issue(t, user, 30, "export")
	require.NoError(t, f.credentials().UpdateProfile(ctx, user, models.ProfilePatch{
		Secrets: map[string]string{"pin": "1234"},
	}))

	oldBlob, err := f.encryption().Encrypt([]byte("held by caller"))
	require.NoError(t, err)

	handle, err := f.encryption().RotateKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), handle.KeyID)
	assert.Equal(t, uint32(2), handle.CurrentKeyID)
	assert.Equal(t, uint32(2), f.encryption().CurrentKeyID())
	assert.Equal(t, []uint32{1}, f.encryption().RetiredKeys())
	assert.FileExists(t, handle.BackupPath)

	// old ciphertext still opens
	plain, err := f.encryption().Decrypt(oldBlob)
	require.NoError(t, err)
	assert.Equal(t, "held by caller", string(plain))

	// everything persisted is sealed under the new key
	usage, err := f.repo.KeysInUse(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[uint32]int{2: 2}, usage)

	// re-encrypting caller data moves it to the new key
	fresh, err := f.encryption().ReEncrypt(oldBlob)
	require.NoError(t, err)
	id, err := f.keys.KeyID(fresh)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), id)

	f.open(t)
	assert.True(t, f.license(t, key).HasFeature("export"))
	u, err := f.credentials().GetUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "1234", u.Secrets["pin"])
}

func TestDiscardKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "alice", models.RoleUser)
	f.issue(t, user, 30)

	// the current key can never go
	err := f.encryption().DiscardKey(ctx, models.KeyHandle{KeyID: 1})
	assert.ErrorIs(t, err, ErrKeyInUse)
	assert.Equal(t, KindKeyInUse, KindOf(err))

	handle, err := f.encryption().RotateKey(ctx)
	require.NoError(t, err)

	require.NoError(t, f.encryption().DiscardKey(ctx, handle))
	assert.Empty(t, f.encryption().RetiredKeys())

	err = f.encryption().DiscardKey(ctx, handle)
	assert.ErrorIs(t, err, ErrUnknownKey)
	assert.Equal(t, KindNotFound, KindOf(err))

	events := f.audit.Filter(models.AuditDiscardKey)
	require.Len(t, events, 3)
	assert.Equal(t, models.AuditSuccess, events[1].Outcome)
}

// TestDiscardKey_RefusedWhileSealedData verifies that data still sealed
// under a retired key blocks its removal.
func TestDiscardKey_RefusedWhileSealedData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "alice", models.RoleUser)
	f.issue(t, user, 30)

	// a backup taken before the rotation keeps key 1 in use
	name, err := f.backupManager().Backup(ctx)
	require.NoError(t, err)

	handle, err := f.encryption().RotateKey(ctx)
	require.NoError(t, err)

	err = f.encryption().DiscardKey(ctx, handle)
	assert.ErrorIs(t, err, ErrKeyInUse)
	assert.Equal(t, []uint32{1}, f.encryption().RetiredKeys())

	require.NoError(t, f.backupManager().DeleteBackup(ctx, name))
	require.NoError(t, f.encryption().DiscardKey(ctx, handle))
}

func TestDiscardKey_RefusedWhileLiveDataSealed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "alice", models.RoleUser)
	f.issue(t, user, 30)

	// rotate the keyring behind the service so the live files stay on key 1
	handle, err := f.keys.Rotate()
	require.NoError(t, err)

	err = f.encryption().DiscardKey(ctx, handle)
	assert.ErrorIs(t, err, ErrKeyInUse)

	// any save re-seals under the current key
	require.NoError(t, f.licenses().Renew(ctx, f.licenses().List(ctx, models.LicenseFilter{})[0].Key, 1))
	assert.NoError(t, f.encryption().DiscardKey(ctx, handle))
}

func TestSealedFieldsNotReadableOnDisk(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "alice", models.RoleUser)
	f.issue(t, user, 30, "top-secret-feature")
	require.NoError(t, f.credentials().UpdateProfile(ctx, user, models.ProfilePatch{
		Secrets: map[string]string{"token": "hunter2-token"},
	}))

	users, err := os.ReadFile(filepath.Join(f.dir, store.UsersFileName))
	require.NoError(t, err)
	licenses, err := os.ReadFile(filepath.Join(f.dir, store.LicensesFileName))
	require.NoError(t, err)

	assert.NotContains(t, string(users), "hunter2-token")
	assert.NotContains(t, string(users), "pa55word!")
	assert.NotContains(t, string(licenses), "top-secret-feature")
}
