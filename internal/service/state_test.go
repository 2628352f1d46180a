package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/MKhiriev/go-license-keeper/internal/clock"
	"github.com/MKhiriev/go-license-keeper/internal/logger"
	"github.com/MKhiriev/go-license-keeper/internal/mock"
	"github.com/MKhiriev/go-license-keeper/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// seededSnapshot is what a fresh store holds after the first start.
func seededSnapshot() models.Snapshot {
	return models.Snapshot{NextUserID: 1, Roles: models.DefaultRoles()}
}

func newMockedServices(t *testing.T, repo *mock.MockRepository, keys *mock.MockKeyManager, hasher *mock.MockPasswordHasher) *Services {
	t.Helper()
	services, err := NewServices(context.Background(), Deps{
		Repository: repo,
		Keys:       keys,
		Hasher:     hasher,
		Clock:      clock.NewFake(testNow),
		Logger:     logger.Nop(),
	})
	require.NoError(t, err)
	return services
}

// ── NewServices ───────────────────────────────────────────────────────────────

func TestNewServices_RequiresCollaborators(t *testing.T) {
	_, err := NewServices(context.Background(), Deps{})
	assert.Error(t, err)
}

func TestNewServices_LoadError(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mock.NewMockRepository(ctrl)

	repo.EXPECT().Load(gomock.Any()).Return(models.Snapshot{}, fmt.Errorf("%w: disk on fire", ErrStorage))

	_, err := NewServices(context.Background(), Deps{
		Repository: repo,
		Keys:       mock.NewMockKeyManager(ctrl),
		Hasher:     mock.NewMockPasswordHasher(ctrl),
	})
	assert.ErrorIs(t, err, ErrStorage)
}

func TestNewServices_SeedsEmptyStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mock.NewMockRepository(ctrl)

	repo.EXPECT().Load(gomock.Any()).Return(models.Snapshot{}, nil)
	repo.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, snap models.Snapshot) error {
		assert.Equal(t, int64(1), snap.NextUserID)
		assert.Len(t, snap.Roles, 3)
		return nil
	})

	newMockedServices(t, repo, mock.NewMockKeyManager(ctrl), mock.NewMockPasswordHasher(ctrl))
}

func TestNewServices_NoSaveWhenSeeded(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mock.NewMockRepository(ctrl)

	repo.EXPECT().Load(gomock.Any()).Return(seededSnapshot(), nil)
	repo.EXPECT().Save(gomock.Any(), gomock.Any()).Times(0)

	newMockedServices(t, repo, mock.NewMockKeyManager(ctrl), mock.NewMockPasswordHasher(ctrl))
}

// ── copy-on-write ─────────────────────────────────────────────────────────────

// TestFailedSave_KeepsPreviousState verifies that a mutation whose save fails
// is not visible afterwards.
func TestFailedSave_KeepsPreviousState(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mock.NewMockRepository(ctrl)
	hasher := mock.NewMockPasswordHasher(ctrl)

	repo.EXPECT().Load(gomock.Any()).Return(seededSnapshot(), nil)
	hasher.EXPECT().Hash("secret").Return([]byte("hash"), []byte("salt"), models.HashParams{}, nil)
	repo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("no space left on device"))

	services := newMockedServices(t, repo, mock.NewMockKeyManager(ctrl), hasher)
	ctx := context.Background()

	_, err := services.CredentialStore.Register(ctx, "alice", "secret", models.RoleUser)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, KindStorage, KindOf(err))

	assert.False(t, services.CredentialStore.HasUsers(ctx))
	assert.Empty(t, services.CredentialStore.ListUsers(ctx, models.UserFilter{}))
}

func TestFailedSave_NextIDNotConsumed(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mock.NewMockRepository(ctrl)
	hasher := mock.NewMockPasswordHasher(ctrl)

	repo.EXPECT().Load(gomock.Any()).Return(seededSnapshot(), nil)
	hasher.EXPECT().Hash(gomock.Any()).Return([]byte("hash"), []byte("salt"), models.HashParams{}, nil).Times(2)
	gomock.InOrder(
		repo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(fmt.Errorf("%w: locked", ErrStorage)),
		repo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil),
	)

	services := newMockedServices(t, repo, mock.NewMockKeyManager(ctrl), hasher)
	ctx := context.Background()

	_, err := services.CredentialStore.Register(ctx, "alice", "secret", models.RoleUser)
	require.ErrorIs(t, err, ErrStorage)

	id, err := services.CredentialStore.Register(ctx, "alice", "secret", models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestValidate_ReturnsStorageErrorOnFailedFlip(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mock.NewMockRepository(ctrl)

	snap := seededSnapshot()
	snap.Users = []models.User{{ID: 1, Username: "alice", Role: models.RoleUser, IsActive: true}}
	snap.Licenses = []models.License{{
		Key:       "ABCDE-12345-FGHIJ-67890",
		UserID:    1,
		Status:    models.LicenseActive,
		StartDate: testToday.AddDays(-10),
		EndDate:   testToday.AddDays(-1),
	}}
	repo.EXPECT().Load(gomock.Any()).Return(snap, nil)
	repo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("read-only file system"))

	services := newMockedServices(t, repo, mock.NewMockKeyManager(ctrl), mock.NewMockPasswordHasher(ctrl))

	outcome, err := services.LicenseManager.Validate(context.Background(), "ABCDE-12345-FGHIJ-67890")
	assert.Equal(t, models.OutcomeExpired, outcome)
	assert.ErrorIs(t, err, ErrStorage)
}

func TestRotateKey_FailureSkipsSave(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mock.NewMockRepository(ctrl)
	keys := mock.NewMockKeyManager(ctrl)

	repo.EXPECT().Load(gomock.Any()).Return(seededSnapshot(), nil)
	keys.EXPECT().Rotate().Return(models.KeyHandle{}, errors.New("permission denied"))
	repo.EXPECT().Save(gomock.Any(), gomock.Any()).Times(0)

	services := newMockedServices(t, repo, keys, mock.NewMockPasswordHasher(ctrl))

	_, err := services.EncryptionService.RotateKey(context.Background())
	assert.Error(t, err)
}

func TestDiscardKey_KeysInUseError(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mock.NewMockRepository(ctrl)
	keys := mock.NewMockKeyManager(ctrl)

	repo.EXPECT().Load(gomock.Any()).Return(seededSnapshot(), nil)
	keys.EXPECT().CurrentKeyID().Return(uint32(2))
	keys.EXPECT().RetiredKeys().Return([]uint32{1})
	repo.EXPECT().KeysInUse(gomock.Any()).Return(nil, ErrStorage)
	keys.EXPECT().Discard(gomock.Any()).Times(0)

	services := newMockedServices(t, repo, keys, mock.NewMockPasswordHasher(ctrl))

	err := services.EncryptionService.DiscardKey(context.Background(), models.KeyHandle{KeyID: 1})
	assert.ErrorIs(t, err, ErrStorage)
}

// ── concurrency ───────────────────────────────────────────────────────────────

// TestConcurrentReadersAndWriters runs validations, issues and sweeps side
// by side; run with -race.
func TestConcurrentReadersAndWriters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "alice", models.RoleUser)
	key := f.issue(t, user, 30)

	const writers = 8
	var wg sync.WaitGroup
	for range writers {
		wg.Add(3)
		go func() {
			defer wg.Done()
			_, err := f.licenses().Issue(ctx, user, 5, []string{"x"})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			outcome, err := f.licenses().Validate(ctx, key)
			assert.NoError(t, err)
			assert.Equal(t, models.OutcomeValid, outcome)
			_ = f.licenses().Statistics(ctx)
		}()
		go func() {
			defer wg.Done()
			_, err := f.licenses().Sweep(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, writers+1, f.licenses().Statistics(ctx).Total)
	assert.Len(t, f.persisted(t).Licenses, writers+1)
}
