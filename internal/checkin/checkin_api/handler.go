package checkin_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-volunteer/internal/auth"
	"ms-volunteer/internal/checkin"
	"ms-volunteer/internal/logger"
	"ms-volunteer/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Sessions *checkin.Controller
	Logger   *logger.Logger
}

func NewHandler(sessions *checkin.Controller, log *logger.Logger) *Handler {
	return &Handler{Sessions: sessions, Logger: log}
}

// Mount registers the operator-only check-in routes under /checkin.
func (h *Handler) Mount(r chi.Router, feed *SSEHandler) {
	r.Route("/checkin", func(r chi.Router) {
		r.Use(auth.RequireOperator(h.Logger))

		r.Post("/sessions", h.OpenSession)
		r.Get("/sessions/{sessionId}", h.GetSession)
		r.Post("/sessions/{sessionId}/scans", h.Scan)
		r.Post("/sessions/{sessionId}/ack", h.Acknowledge)
		r.Delete("/sessions/{sessionId}", h.CloseSession)
		if feed != nil {
			r.Get("/events/{eventId}/feed", feed.HandleEventScans)
		}
	})
}

type openSessionRequest struct {
	EventID string `json:"event_id"`
}

type scanRequest struct {
	Payload string `json:"payload"`
}

func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	session, err := h.Sessions.Open(r.Context(), req.EventID, auth.UserID(r.Context()))
	if errors.Is(err, checkin.ErrEventRequired) {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	if err != nil {
		h.Logger.Error("SCAN", fmt.Sprintf("Failed to open session for %s: %v", req.EventID, err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to open session", "internal error")
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Session opened", session)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.Sessions.Get(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Session", session)
}

// Scan submits one decoded camera read. While a result is on screen the session is locked
// and the read is refused with 409.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	result, processed, err := h.Sessions.Scan(r.Context(), sessionID, req.Payload)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	if !processed {
		utils.WriteError(w, http.StatusConflict, "Session locked", "acknowledge the current result before scanning again")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Scan processed", result)
}

func (h *Handler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	if err := h.Sessions.Acknowledge(r.Context(), sessionID); err != nil {
		h.writeSessionError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Session ready", nil)
}

func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	if err := h.Sessions.Close(r.Context(), sessionID); err != nil {
		h.writeSessionError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Session closed", nil)
}

func (h *Handler) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, checkin.ErrSessionNotFound):
		utils.WriteError(w, http.StatusNotFound, "Session not found", err.Error())
	case errors.Is(err, checkin.ErrSessionClosed):
		utils.WriteError(w, http.StatusGone, "Session closed", err.Error())
	default:
		h.Logger.Error("SCAN", fmt.Sprintf("Check-in request failed: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Check-in failed", "internal error")
	}
}
