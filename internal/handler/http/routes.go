package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID, h.withLogging)

	router.Get("/healthz", h.health)
	router.Get("/version", h.getServerVersion)
	router.Get("/stats", h.statistics)
	router.Get("/backups", h.listBackups)

	if h.metrics != nil {
		router.Method(http.MethodGet, "/metrics", h.metrics)
	}

	router.MethodNotAllowed(CheckHTTPMethod(router))

	return router
}
