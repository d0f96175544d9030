package checkin_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ms-volunteer/internal/logger"
	"ms-volunteer/internal/sse"
	"ms-volunteer/internal/utils"

	"github.com/go-chi/chi/v5"
)

// SSEHandler streams scan results for an event to operator dashboards.
type SSEHandler struct {
	Logger       *logger.Logger
	EventEmitter *sse.ScanEventEmitter
}

func NewSSEHandler(log *logger.Logger, emitter *sse.ScanEventEmitter) *SSEHandler {
	return &SSEHandler{Logger: log, EventEmitter: emitter}
}

// HandleEventScans streams scan events for a specific event
func (h *SSEHandler) HandleEventScans(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	if eventID == "" {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request", "event id is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.WriteError(w, http.StatusInternalServerError, "Streaming unsupported", "response writer cannot flush")
		return
	}

	setupSSEHeaders(w)

	ctx := r.Context()
	eventChan := h.EventEmitter.SubscribeToEvent(ctx, eventID)

	connected, _ := json.Marshal(map[string]string{"status": "connected", "event_id": eventID})
	fmt.Fprintf(w, "event: connected\ndata: %s\n\n", connected)
	flusher.Flush()

	h.Logger.Info("SSE", fmt.Sprintf("Client connected to scan feed for event: %s", eventID))

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				h.Logger.Debug("SSE", fmt.Sprintf("Channel closed for event: %s", eventID))
				return
			}

			jsonData, err := json.Marshal(event)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize scan event: %v", err))
				continue
			}

			fmt.Fprintf(w, "event: scan\ndata: %s\n\n", jsonData)
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Client disconnected from scan feed for: %s", eventID))
			return
		}
	}
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Accel-Buffering", "no")
}
