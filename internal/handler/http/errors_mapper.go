package http

import (
	"errors"
	"net/http"

	"github.com/MKhiriev/go-license-keeper/internal/logger"
	"github.com/MKhiriev/go-license-keeper/internal/service"
)

var kindStatusMap = map[service.ErrorKind]int{
	service.KindInvalidInput:       http.StatusBadRequest,
	service.KindInvalidDuration:    http.StatusBadRequest,
	service.KindDuplicateUsername:  http.StatusConflict,
	service.KindConflict:           http.StatusConflict,
	service.KindRoleInUse:          http.StatusConflict,
	service.KindKeyInUse:           http.StatusConflict,
	service.KindLastUserProtected:  http.StatusConflict,
	service.KindInvalidCredentials: http.StatusUnauthorized,
	service.KindNotFound:           http.StatusNotFound,
	service.KindIntegrity:          http.StatusInternalServerError,
	service.KindStorage:            http.StatusServiceUnavailable,
	service.KindInternal:           http.StatusInternalServerError,
}

func statusFromError(err error) int {
	if errors.Is(err, errBackupsDisabled) {
		return http.StatusNotFound
	}
	if status, ok := kindStatusMap[service.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// writeError answers with the status of err's kind. Server-side failures are
// logged; their text is not sent to the caller.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFromError(err)
	resp := errorResponse{Error: err.Error()}
	if !errors.Is(err, errBackupsDisabled) {
		resp.Kind = service.KindOf(err).String()
	}

	if status >= http.StatusInternalServerError {
		logger.FromRequest(r).Err(err).Str("func", "writeError").Int("status", status).Msg("request failed")
		resp.Error = http.StatusText(status)
	}

	writeJSON(w, r, status, resp)
}
