package store

import (
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/MKhiriev/go-license-keeper/internal/clock"
	"github.com/MKhiriev/go-license-keeper/internal/crypto"
	"github.com/MKhiriev/go-license-keeper/internal/logger"
	"github.com/MKhiriev/go-license-keeper/models"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestKeyring(t *testing.T) *crypto.Keyring {
	t.Helper()
	k, err := crypto.OpenKeyring(t.TempDir(), clock.NewFake(testNow), logger.Nop())
	require.NoError(t, err)
	return k
}

// sampleSnapshot is ordered the way every backend returns it: users by id,
// roles by name and licenses by creation time.
func sampleSnapshot() models.Snapshot {
	roles := models.DefaultRoles()
	slices.SortFunc(roles, func(a, b models.Role) int { return strings.Compare(a.Name, b.Name) })

	params := models.HashParams{Algorithm: "pbkdf2-sha256", Iterations: 100_000, KeyLen: 32}
	return models.Snapshot{
		NextUserID: 3,
		Users: []models.User{
			{
				ID:           1,
				Username:     "alice",
				PasswordHash: []byte{0xde, 0xad, 0xbe, 0xef},
				Salt:         []byte{0x01, 0x02, 0x03, 0x04},
				HashParams:   params,
				Role:         models.RoleAdmin,
				IsActive:     true,
				Attributes:   map[string]string{"email": "alice@example.com"},
				Secrets:      map[string]string{"recovery_code": "tiger-lily-42"},
				CreatedAt:    testNow,
				UpdatedAt:    testNow,
			},
			{
				ID:           2,
				Username:     "bob",
				PasswordHash: []byte{0xca, 0xfe},
				Salt:         []byte{0xba, 0xbe},
				HashParams:   params,
				Role:         models.RoleUser,
				CreatedAt:    testNow.Add(time.Hour),
				UpdatedAt:    testNow.Add(2 * time.Hour),
			},
		},
		Roles: roles,
		Licenses: []models.License{
			{
				Key:       "ABCDE-12345-FGHIJ-67890",
				UserID:    1,
				Type:      models.LicenseEnterprise,
				Status:    models.LicenseActive,
				StartDate: models.NewDate(2026, time.March, 1),
				EndDate:   models.NewDate(2027, time.March, 1),
				Features:  []string{"export", "reports"},
				MaxUsers:  25,
				CreatedAt: testNow,
				UpdatedAt: testNow,
			},
			{
				Key:       "ZZZZZ-00000-YYYYY-11111",
				UserID:    2,
				Type:      models.LicenseIndividual,
				Status:    models.LicenseSuspended,
				StartDate: models.NewDate(2026, time.January, 1),
				EndDate:   models.NewDate(2026, time.February, 1),
				Features:  []string{},
				CreatedAt: testNow.Add(time.Minute),
				UpdatedAt: testNow.Add(time.Minute),
			},
		},
	}
}
