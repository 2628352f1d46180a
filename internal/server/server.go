package server

import (
	"context"

	"github.com/MKhiriev/go-license-keeper/internal/config"
	"github.com/MKhiriev/go-license-keeper/internal/handler"
	"github.com/MKhiriev/go-license-keeper/internal/logger"
)

type server struct {
	httpServer *httpServer
	logger     *logger.Logger
}

func NewServer(handlers *handler.Handlers, cfg config.Metrics, logger *logger.Logger) (Server, error) {
	logger.Info().Msg("creating new server...")

	if handlers == nil || handlers.HTTP == nil || cfg.Address == "" {
		return nil, errNoServersAreCreated
	}

	return &server{
		httpServer: newHTTPServer(handlers.HTTP.Init(), cfg, logger),
		logger:     logger,
	}, nil
}

func (s *server) RunServer(ctx context.Context) error {
	failed := make(chan error, 1)

	s.logger.Info().Str("address", s.httpServer.server.Addr).Msg("Launching HTTP server")
	go func() {
		failed <- s.httpServer.RunServer()
	}()

	select {
	case err := <-failed:
		return err
	case <-ctx.Done():
	}

	s.Shutdown()
	<-failed
	s.logger.Info().Msg("server Shutdown gracefully")

	return nil
}

func (s *server) Shutdown() {
	s.httpServer.Shutdown()
}
