// Package handlers provides HTTP handlers for the simulation run cycle.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/aristath/lossdash/internal/modules/dashboard"
)

// Runner is the part of the dashboard service the handlers drive.
type Runner interface {
	Run(ctx context.Context) (dashboard.Status, error)
	Status() dashboard.Status
	Subscribe() (<-chan dashboard.Status, func())
}

// Handler handles simulation run HTTP requests
type Handler struct {
	service Runner
	log     zerolog.Logger
}

// NewHandler creates a new simulation handler
func NewHandler(service Runner, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "simulation").Logger(),
	}
}

// HandleRun handles POST /api/simulation/run
// Returns 409 while another run is in flight and 502 with an empty body when
// the simulator fails.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Run(r.Context())
	switch {
	case errors.Is(err, dashboard.ErrRunInProgress):
		h.writeJSON(w, http.StatusConflict, envelope(status))
		return
	case err != nil:
		// Already logged by the service; the page shows no message.
		w.WriteHeader(http.StatusBadGateway)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(status))
}

// HandleGetState handles GET /api/simulation/state
func (h *Handler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, envelope(h.service.Status()))
}

// HandleStream handles GET /api/simulation/stream
// Sends the current state, then every transition, as JSON text frames.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to accept websocket")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	updates, unsubscribe := h.service.Subscribe()
	defer unsubscribe()

	// The stream is write-only; CloseRead handles pings and cancels ctx
	// when the client goes away.
	ctx := conn.CloseRead(r.Context())

	if err := h.send(ctx, conn, h.service.Status()); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case status, ok := <-updates:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := h.send(ctx, conn, status); err != nil {
				return
			}
		}
	}
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, status dashboard.Status) error {
	data, err := json.Marshal(status)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal state update")
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		h.log.Debug().Err(err).Msg("State stream closed")
		return err
	}
	return nil
}

func envelope(status dashboard.Status) map[string]interface{} {
	return map[string]interface{}{
		"data": status,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
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
