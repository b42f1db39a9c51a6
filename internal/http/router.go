// Package http exposes the scheduling API over HTTP and websockets.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"voice-appointment-service/internal/app"
)

// NewRouter constructs the HTTP router for the service.
func NewRouter(application *app.Application) http.Handler {
	h := newHandlers(application)
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := application.Ready(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// Websocket routes are kept out of the timeout middleware.
	r.Get("/v1/sessions/ws", h.sessionSocket)
	r.Get("/v1/appointments/ws", h.appointmentFeed)

	// API routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(15 * time.Second))

		r.Post("/parse", h.parse)
		r.Post("/disambiguate", h.disambiguate)
		r.Post("/availability", h.availability)
		r.Get("/catalog", h.catalog)

		r.Route("/appointments", func(r chi.Router) {
			r.Get("/", h.listAppointments)
			r.Post("/", h.createAppointment)
			r.Delete("/{id}", h.deleteAppointment)
		})
	})

	return r
}
