package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MKhiriev/go-license-keeper/internal/logger"
	"github.com/MKhiriev/go-license-keeper/internal/metrics"
	"github.com/MKhiriev/go-license-keeper/internal/service"
	"github.com/MKhiriev/go-license-keeper/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── stubs ─────────────────────────────────────────────────────────────────────

// The embedded interfaces are nil: calling anything but the overridden
// methods panics, which the router's Recoverer turns into a 500.

type stubCredentials struct {
	service.CredentialStore
	hasUsers bool
}

func (s stubCredentials) HasUsers(context.Context) bool { return s.hasUsers }

type stubEncryption struct {
	service.EncryptionService
	keyID uint32
}

func (s stubEncryption) CurrentKeyID() uint32 { return s.keyID }

type stubLicenses struct {
	service.LicenseManager
	stats models.Statistics
}

func (s stubLicenses) Statistics(context.Context) models.Statistics { return s.stats }

type stubBackups struct {
	service.BackupManager
	names []string
	err   error
}

func (s stubBackups) ListBackups(context.Context) ([]string, error) { return s.names, s.err }

func newOpsHandler(t *testing.T, backups service.BackupManager) *Handler {
	t.Helper()
	services := &service.Services{
		CredentialStore:   stubCredentials{hasUsers: true},
		EncryptionService: stubEncryption{keyID: 3},
		LicenseManager: stubLicenses{stats: models.Statistics{
			Total:  2,
			Active: 1,
			ByType: map[models.LicenseType]int{models.LicenseIndividual: 2},
		}},
		BackupManager:  backups,
		AppInfoService: service.NewAppInfoService(models.NewBuildInfo("1.4.0", "2026-03-01", "abc123"), logger.Nop()),
	}
	return NewHandler(services, metrics.New().Handler(), logger.Nop())
}

func serve(t *testing.T, h *Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.Init().ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

// ── routes ────────────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	rr := serve(t, newOpsHandler(t, nil), http.MethodGet, "/healthz")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.NotEmpty(t, rr.Header().Get(traceIDHeader))
	assert.JSONEq(t, `{"status":"ok","has_users":true,"current_key_id":3}`, rr.Body.String())
}

func TestVersion(t *testing.T) {
	rr := serve(t, newOpsHandler(t, nil), http.MethodGet, "/version")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"version":"1.4.0","date":"2026-03-01","commit":"abc123"}`, rr.Body.String())
}

func TestStatistics(t *testing.T) {
	rr := serve(t, newOpsHandler(t, nil), http.MethodGet, "/stats")
	require.Equal(t, http.StatusOK, rr.Code)

	var got models.Statistics
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, 1, got.Active)
	assert.Equal(t, 2, got.ByType[models.LicenseIndividual])
}

func TestListBackups(t *testing.T) {
	tests := []struct {
		name       string
		backups    service.BackupManager
		wantStatus int
		wantBody   string
	}{
		{
			name:       "names",
			backups:    stubBackups{names: []string{"backup_20260301_120000_000001", "backup_20260302_120000_000002"}},
			wantStatus: http.StatusOK,
			wantBody:   `["backup_20260301_120000_000001","backup_20260302_120000_000002"]`,
		},
		{
			name:       "empty list is an array",
			backups:    stubBackups{},
			wantStatus: http.StatusOK,
			wantBody:   `[]`,
		},
		{
			name:       "storage failure hides the cause",
			backups:    stubBackups{err: fmt.Errorf("%w: disk on fire", service.ErrStorage)},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"error":"Service Unavailable","kind":"storage"}`,
		},
		{
			name:       "disabled",
			backups:    nil,
			wantStatus: http.StatusNotFound,
			wantBody:   `{"error":"backups are disabled"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(t, newOpsHandler(t, tt.backups), http.MethodGet, "/backups")

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.JSONEq(t, tt.wantBody, rr.Body.String())
		})
	}
}

func TestMetrics(t *testing.T) {
	rr := serve(t, newOpsHandler(t, nil), http.MethodGet, "/metrics")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestMetrics_NotRoutedWithoutHandler(t *testing.T) {
	h := newOpsHandler(t, nil)
	h.metrics = nil

	rr := serve(t, h, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestWrongMethodIsHidden(t *testing.T) {
	rr := serve(t, newOpsHandler(t, nil), http.MethodPost, "/stats")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// ── statusFromError ───────────────────────────────────────────────────────────

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrInvalidInput, http.StatusBadRequest},
		{service.ErrInvalidDuration, http.StatusBadRequest},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrLicenseNotFound, http.StatusNotFound},
		{fmt.Errorf("wrap: %w", service.ErrBackupNotFound), http.StatusNotFound},
		{service.ErrDuplicateUsername, http.StatusConflict},
		{service.ErrKeyInUse, http.StatusConflict},
		{service.ErrIntegrity, http.StatusInternalServerError},
		{service.ErrStorage, http.StatusServiceUnavailable},
		{errBackupsDisabled, http.StatusNotFound},
		{assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFromError(tt.err))
		})
	}
}
