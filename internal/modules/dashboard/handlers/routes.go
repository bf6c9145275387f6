package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the run and state routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/simulation/run", h.HandleRun)
	r.Get("/simulation/state", h.HandleGetState)
}

// RegisterStreamRoutes registers the long-lived state stream. It must not sit
// behind request timeouts or response compression.
func (h *Handler) RegisterStreamRoutes(r chi.Router) {
	r.Get("/simulation/stream", h.HandleStream)
}
