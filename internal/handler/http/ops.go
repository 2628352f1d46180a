package http

import (
	"encoding/json"
	"net/http"

	"github.com/MKhiriev/go-license-keeper/internal/logger"
)

type healthResponse struct {
	Status   string `json:"status"`
	HasUsers bool   `json:"has_users"`
	KeyID    uint32 `json:"current_key_id"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, healthResponse{
		Status:   "ok",
		HasUsers: h.services.CredentialStore.HasUsers(r.Context()),
		KeyID:    h.services.EncryptionService.CurrentKeyID(),
	})
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.services.LicenseManager.Statistics(r.Context()))
}

func (h *Handler) listBackups(w http.ResponseWriter, r *http.Request) {
	if h.services.BackupManager == nil {
		h.writeError(w, r, errBackupsDisabled)
		return
	}

	names, err := h.services.BackupManager.ListBackups(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, r, http.StatusOK, names)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.FromRequest(r).Err(err).Str("func", "writeJSON").Msg("error encoding response")
	}
}
