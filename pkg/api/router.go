package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/mindmesh/mindmesh/pkg/logger"
)

// NewRouter creates a chi router with middleware and routes.
func NewRouter(log logger.Logger, h *Handlers) chi.Router {
	r := chi.NewRouter()

	r.Use(RequestID())
	r.Use(RequestLogger(log))
	r.Use(Recovery(log))
	if h.Metrics != nil {
		r.Use(Metrics(h.Metrics))
	}

	r.Get("/healthz", h.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/concepts", h.FindConcept)
		r.Get("/concepts/{id}/stats", h.ConceptStats)
		r.Post("/query", h.Query)
		r.Post("/ingest", h.Ingest)
	})

	if h.Events != nil {
		r.Get("/events", h.Events.Serve)
	}

	return r
}
