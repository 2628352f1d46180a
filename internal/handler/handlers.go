package handler

import (
	stdhttp "net/http"

	"github.com/MKhiriev/go-license-keeper/internal/config"
	"github.com/MKhiriev/go-license-keeper/internal/handler/http"
	"github.com/MKhiriev/go-license-keeper/internal/logger"
	"github.com/MKhiriev/go-license-keeper/internal/service"
)

type Handlers struct {
	HTTP *http.Handler
}

// NewHandlers builds the transport handlers enabled by cfg. metrics is the
// Prometheus scrape handler and may be nil.
func NewHandlers(services *service.Services, metrics stdhttp.Handler, cfg config.Metrics, logger *logger.Logger) (*Handlers, error) {
	logger.Info().Msg("creating new handlers...")

	if cfg.Address == "" {
		return nil, errNoHandlersAreCreated
	}

	return &Handlers{
		HTTP: http.NewHandler(services, metrics, logger),
	}, nil
}
