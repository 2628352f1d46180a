package crypto

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MKhiriev/go-license-keeper/internal/clock"
	"github.com/MKhiriev/go-license-keeper/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKeyring(t *testing.T) (*Keyring, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "keys")
	clk := clock.NewFake(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	k, err := OpenKeyring(dir, clk, logger.Nop())
	require.NoError(t, err)
	return k, dir
}

// ── OpenKeyring ───────────────────────────────────────────────────────────────

func TestOpenKeyring_CreatesKeyFileWith0600(t *testing.T) {
	k, dir := newTestKeyring(t)

	info, err := os.Stat(filepath.Join(dir, KeyringFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	assert.Equal(t, uint32(1), k.CurrentKeyID())
	assert.Empty(t, k.RetiredKeys())
}

func TestOpenKeyring_ReloadsSameKey(t *testing.T) {
	k, dir := newTestKeyring(t)
	blob, err := k.Encrypt([]byte("secret"))
	require.NoError(t, err)

	reopened, err := OpenKeyring(dir, clock.Real(), logger.Nop())
	require.NoError(t, err)

	plain, err := reopened.Decrypt(blob)
	require.NoError(t, err)
	assert.Equal(t, "secret", string(plain))
}

func TestOpenKeyring_RestrictsLoosePermissions(t *testing.T) {
	_, dir := newTestKeyring(t)
	path := filepath.Join(dir, KeyringFileName)
	require.NoError(t, os.Chmod(path, 0o644))

	_, err := OpenKeyring(dir, clock.Real(), logger.Nop())
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestOpenKeyring_CorruptedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, KeyringFileName), []byte("not cbor at all"), 0o600))

	_, err := OpenKeyring(dir, clock.Real(), logger.Nop())
	assert.ErrorIs(t, err, ErrCorruptedKeyring)
}

// ── Encrypt / Decrypt ─────────────────────────────────────────────────────────

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	k, _ := newTestKeyring(t)

	for _, plain := range [][]byte{[]byte("hello"), {}, make([]byte, 4096)} {
		blob, err := k.Encrypt(plain)
		require.NoError(t, err)

		got, err := k.Decrypt(blob)
		require.NoError(t, err)
		assert.Equal(t, len(plain), len(got))
	}
}

func TestEncrypt_NonceIsRandom(t *testing.T) {
	k, _ := newTestKeyring(t)
	a, err := k.Encrypt([]byte("same"))
	require.NoError(t, err)
	b, err := k.Encrypt([]byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

// TestDecrypt_TamperingIsDetected flips one bit in every region of the blob.
func TestDecrypt_TamperingIsDetected(t *testing.T) {
	k, _ := newTestKeyring(t)
	blob, err := k.Encrypt([]byte("license features"))
	require.NoError(t, err)

	for _, pos := range []int{0, 2, headerSize + 1, headerSize + nonceSize + 1, len(blob) - 1} {
		tampered := append([]byte(nil), blob...)
		tampered[pos] ^= 0x01

		_, err := k.Decrypt(tampered)
		assert.ErrorIs(t, err, ErrIntegrity, "byte %d", pos)
	}
}

func TestDecrypt_TruncatedBlob(t *testing.T) {
	k, _ := newTestKeyring(t)
	blob, err := k.Encrypt([]byte("x"))
	require.NoError(t, err)

	_, err = k.Decrypt(blob[:10])
	assert.ErrorIs(t, err, ErrIntegrity)

	_, err = k.Decrypt(nil)
	assert.ErrorIs(t, err, ErrIntegrity)
}

// ── Rotate / Discard ──────────────────────────────────────────────────────────

func TestRotate_OldBlobsStayReadable(t *testing.T) {
	k, dir := newTestKeyring(t)
	old, err := k.Encrypt([]byte("before rotation"))
	require.NoError(t, err)

	handle, err := k.Rotate()
	require.NoError(t, err)

	assert.Equal(t, uint32(1), handle.KeyID)
	assert.Equal(t, uint32(2), handle.CurrentKeyID)
	assert.Equal(t, uint32(2), k.CurrentKeyID())
	assert.Equal(t, []uint32{1}, k.RetiredKeys())
	assert.FileExists(t, handle.BackupPath)
	assert.Equal(t, dir, filepath.Dir(handle.BackupPath))

	got, err := k.Decrypt(old)
	require.NoError(t, err)
	assert.Equal(t, "before rotation", string(got))

	fresh, err := k.Encrypt([]byte("after"))
	require.NoError(t, err)
	id, err := k.KeyID(fresh)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), id)
}

func TestRotate_PersistsAcrossReopen(t *testing.T) {
	k, dir := newTestKeyring(t)
	_, err := k.Rotate()
	require.NoError(t, err)

	reopened, err := OpenKeyring(dir, clock.Real(), logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, uint32(2), reopened.CurrentKeyID())
	assert.Equal(t, []uint32{1}, reopened.RetiredKeys())
}

func TestDiscard(t *testing.T) {
	k, _ := newTestKeyring(t)
	old, err := k.Encrypt([]byte("x"))
	require.NoError(t, err)

	assert.ErrorIs(t, k.Discard(1), ErrCurrentKey)

	_, err = k.Rotate()
	require.NoError(t, err)

	assert.ErrorIs(t, k.Discard(42), ErrUnknownKey)
	require.NoError(t, k.Discard(1))
	assert.Empty(t, k.RetiredKeys())

	_, err = k.Decrypt(old)
	assert.ErrorIs(t, err, ErrIntegrity)
	assert.ErrorIs(t, err, ErrUnknownKey)
}
