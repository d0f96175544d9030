package main

import (
	"net/http"

	"ms-volunteer/internal/auth"
	"ms-volunteer/internal/checkin/checkin_api"
	"ms-volunteer/internal/logger"
	"ms-volunteer/internal/registrations/registration_api"
	"ms-volunteer/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func newRouter(log *logger.Logger, verifier auth.TokenVerifier, registrations *registration_api.Handler, checkins *checkin_api.Handler, feed *checkin_api.SSEHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(log.RequestLogger)

	// --- Public Routes ---
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteSuccess(w, http.StatusOK, "ok", nil)
	})

	// --- Protected Routes ---
	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(verifier, log))
		registrations.Mount(r)
		checkins.Mount(r, feed)
	})
	log.Info("ROUTER", "Registration and check-in routes registered under /api")

	return r
}
