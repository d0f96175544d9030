package registration_api

import (
	"errors"
	"fmt"
	"net/http"

	"ms-volunteer/internal/auth"
	"ms-volunteer/internal/logger"
	"ms-volunteer/internal/models"
	"ms-volunteer/internal/registrations/service"
	"ms-volunteer/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service *service.RegistrationService
	Logger  *logger.Logger
}

func NewHandler(svc *service.RegistrationService, log *logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: log}
}

// Mount registers the routes on r. Callers put auth.Middleware in front.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/events/{eventId}/registrations", h.Register)
	r.With(auth.RequireOperator(h.Logger)).Get("/events/{eventId}/registrations", h.Roster)
	r.Get("/me/registrations", h.MyRegistrations)
	r.Get("/registrations/{registrationId}/ticket", h.Ticket)
}

// Register signs the caller up for the event. A repeat registration answers 200 with the
// existing record instead of 201.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	userID := auth.UserID(r.Context())

	reg, err := h.Service.Register(r.Context(), userID, eventID)
	var already *service.AlreadyRegisteredError
	switch {
	case err == nil:
		utils.WriteSuccess(w, http.StatusCreated, "Registered", reg)
	case errors.As(err, &already):
		utils.WriteSuccess(w, http.StatusOK, "Already registered", already.Existing)
	case errors.Is(err, service.ErrInvalidInput):
		utils.WriteError(w, http.StatusBadRequest, "Invalid request", err.Error())
	case errors.Is(err, service.ErrEventNotFound):
		utils.WriteError(w, http.StatusNotFound, "Event not found", err.Error())
	default:
		h.Logger.Error("REGISTER", fmt.Sprintf("Failed to register %s for %s: %v", userID, eventID, err))
		utils.WriteError(w, http.StatusInternalServerError, "Registration failed", "internal error")
	}
}

func (h *Handler) Roster(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")

	roster, err := h.Service.Roster(r.Context(), eventID)
	if err != nil {
		h.Logger.Error("REGISTER", fmt.Sprintf("Failed to load roster for %s: %v", eventID, err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to load roster", "internal error")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Roster", roster)
}

func (h *Handler) MyRegistrations(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	regs, err := h.Service.ListByUser(r.Context(), userID)
	if err != nil {
		h.Logger.Error("REGISTER", fmt.Sprintf("Failed to list registrations for %s: %v", userID, err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to list registrations", "internal error")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Registrations", regs)
}

type ticketResponse struct {
	RegistrationID string `json:"registration_id"`
	Payload        string `json:"payload"`
}

// Ticket returns the scannable payload, or its QR image with ?format=png. Only the
// registration's owner or an operator may fetch it.
func (h *Handler) Ticket(w http.ResponseWriter, r *http.Request) {
	registrationID := chi.URLParam(r, "registrationId")

	reg, err := h.Service.GetRegistration(r.Context(), registrationID)
	if errors.Is(err, service.ErrRegistrationNotFound) {
		utils.WriteError(w, http.StatusNotFound, "Registration not found", err.Error())
		return
	}
	if err != nil {
		h.Logger.Error("TICKET", fmt.Sprintf("Failed to load registration %s: %v", registrationID, err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to load ticket", "internal error")
		return
	}

	if !canViewTicket(r, reg) {
		h.Logger.LogSecurity("TICKET_DENIED", fmt.Sprintf("%s requested ticket %s", auth.UserID(r.Context()), registrationID))
		utils.WriteError(w, http.StatusForbidden, "Forbidden", "not your ticket")
		return
	}

	if r.URL.Query().Get("format") == "png" {
		png, err := h.Service.TicketQR(reg)
		if err != nil {
			h.Logger.Error("TICKET", fmt.Sprintf("Failed to render QR for %s: %v", registrationID, err))
			utils.WriteError(w, http.StatusInternalServerError, "Failed to render ticket", "internal error")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		w.Write(png)
		return
	}

	payload, err := h.Service.TicketPayload(reg)
	if err != nil {
		h.Logger.Error("TICKET", fmt.Sprintf("Failed to encode ticket %s: %v", registrationID, err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to encode ticket", "internal error")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Ticket", ticketResponse{RegistrationID: reg.RegistrationID, Payload: payload})
}

func canViewTicket(r *http.Request, reg *models.Registration) bool {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		return false
	}
	return identity.UserID == reg.UserID || identity.IsOperator()
}
