package http

import (
	"net/http"
)

func (h *Handler) getServerVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.services.AppInfoService.BuildInfo(r.Context()))
}
