package http

import (
	"net/http"

	"github.com/MKhiriev/go-license-keeper/internal/logger"
	"github.com/MKhiriev/go-license-keeper/internal/service"
)

type Handler struct {
	services *service.Services
	metrics  http.Handler

	logger *logger.Logger
}

// NewHandler builds the ops handler. metrics may be nil, in which case
// /metrics is not routed.
func NewHandler(services *service.Services, metrics http.Handler, logger *logger.Logger) *Handler {
	logger.Info().Msg("http handler created")
	return &Handler{
		services: services,
		metrics:  metrics,
		logger:   logger,
	}
}
