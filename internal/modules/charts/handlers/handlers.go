// Package handlers provides HTTP handlers for chart views and images.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/lossdash/internal/modules/charts"
)

// Handler handles chart HTTP requests
type Handler struct {
	service *charts.Service
	log     zerolog.Logger
}

// NewHandler creates a new charts handler
func NewHandler(service *charts.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "charts").Logger(),
	}
}

// HandleGetChart handles GET /api/charts/{chart}
// "histogram" returns the JSON view; "histogram.png" or "histogram.svg"
// returns the rendered image.
func (h *Handler) HandleGetChart(w http.ResponseWriter, r *http.Request, name string) {
	kindName, formatName, hasExt := strings.Cut(name, ".")

	kind, err := charts.ParseKind(kindName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	if !hasExt {
		h.serveView(w, kind)
		return
	}

	format, err := charts.ParseFormat(formatName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	h.serveImage(w, kind, format)
}

func (h *Handler) serveView(w http.ResponseWriter, kind charts.Kind) {
	handle, ok := h.service.Handle(kind)
	if !ok {
		http.Error(w, "No simulation has been run yet", http.StatusNotFound)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"run_id": handle.RunID(),
			"view":   handle.View(),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

func (h *Handler) serveImage(w http.ResponseWriter, kind charts.Kind, format charts.Format) {
	var (
		data  []byte
		runID string
		err   error
	)
	// A run can replace the handle between lookup and render; try the new one.
	for attempt := 0; attempt < 2; attempt++ {
		handle, ok := h.service.Handle(kind)
		if !ok {
			http.Error(w, "No simulation has been run yet", http.StatusNotFound)
			return
		}
		runID = handle.RunID()
		data, err = handle.Render(format)
		if !errors.Is(err, charts.ErrHandleDestroyed) {
			break
		}
	}

	switch {
	case errors.Is(err, charts.ErrEmptyView):
		http.Error(w, "Chart has no data", http.StatusNotFound)
		return
	case err != nil:
		h.log.Error().Err(err).Str("kind", string(kind)).Msg("Failed to render chart")
		http.Error(w, "Failed to render chart", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("ETag", `"`+runID+"-"+string(kind)+"."+string(format)+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.log.Debug().Err(err).Msg("Failed to write chart image")
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
