package service

import (
	"context"
	"testing"

	"github.com/MKhiriev/go-license-keeper/internal/logger"
	"github.com/MKhiriev/go-license-keeper/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─────────────────────────────────────────────
// NewAppInfoService
// ─────────────────────────────────────────────

func TestNewAppInfoService_ReturnsAppInfoServiceInterface(t *testing.T) {
	svc := NewAppInfoService(models.NewBuildInfo("2.5.1", "", ""), logger.Nop())

	require.NotNil(t, svc)
	// compile-time check: returned value must satisfy the interface
	var _ AppInfoService = svc
}

// ─────────────────────────────────────────────
// BuildInfo
// ─────────────────────────────────────────────

func TestBuildInfo_ReturnsConfiguredInfo(t *testing.T) {
	svc := NewAppInfoService(models.NewBuildInfo("3.1.4", "2026-03-01", "abc123"), logger.Nop())

	got := svc.BuildInfo(context.Background())

	assert.Equal(t, "3.1.4", got.Version())
	assert.Equal(t, "2026-03-01", got.Date())
	assert.Equal(t, "abc123", got.Commit())
}

func TestBuildInfo_MissingValuesAreNotAvailable(t *testing.T) {
	svc := NewAppInfoService(models.NewBuildInfo("", "", ""), logger.Nop())

	got := svc.BuildInfo(context.Background())

	assert.Equal(t, "N/A", got.Version())
	assert.Equal(t, "N/A", got.Commit())
}

func TestBuildInfo_CancelledContext_StillReturnsInfo(t *testing.T) {
	svc := NewAppInfoService(models.NewBuildInfo("1.0.0", "", ""), logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	// BuildInfo does not use ctx, so it must still return the info
	assert.Equal(t, "1.0.0", svc.BuildInfo(ctx).Version())
}

func TestServices_ShareBuildInfo(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "1.2.3", f.services.AppInfoService.BuildInfo(context.Background()).Version())
}
