/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/shifts/*         Shift lifecycle + ride tracking
  /api/location/*       Simulated GPS feed
  /api/transfers/*      Ownership transfer workflow
  /api/leaves/*         Leave workflow
  /api/notifications/*  Per-recipient mailbox
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Shift lifecycle
		r.Route("/shifts", func(r chi.Router) {
			r.Get("/", h.ListShifts)
			r.Post("/", h.CreateShift)
			r.Get("/{id}", h.GetShift)
			r.Post("/{id}/confirm", h.ConfirmShift)
			r.Post("/{id}/lock", h.LockShift)
			r.Post("/{id}/report-access", h.GrantReportAccess)
			r.Post("/{id}/clock-in", h.ClockIn)
			r.Post("/{id}/clock-out", h.ClockOut)
			r.Post("/{id}/cancel", h.CancelShift)

			// Ride tracking (transportation shifts)
			r.Route("/{id}/ride", func(r chi.Router) {
				r.Post("/start", h.StartRide)
				r.Post("/end", h.EndRide)
				r.Post("/cancel", h.CancelRide)
				r.Post("/waypoints/{name}", h.ConfirmWaypoint)
				r.Get("/progress", h.RideProgress)
				r.Get("/mileage", h.RideMileage)
			})
		})

		// Location feed (simulated device GPS)
		r.Route("/location", func(r chi.Router) {
			r.Post("/", h.PushPosition)
			r.Post("/offline", h.SetOffline)
		})

		// Transfer workflow
		r.Route("/transfers", func(r chi.Router) {
			r.Post("/", h.CreateTransfer)
			r.Get("/pending", h.ListPendingTransfers)
			r.Post("/{id}/approve", h.ApproveTransfer)
			r.Post("/{id}/reject", h.RejectTransfer)
		})

		// Leave workflow
		r.Route("/leaves", func(r chi.Router) {
			r.Post("/", h.CreateLeave)
			r.Get("/pending", h.ListPendingLeaves)
			r.Post("/{id}/approve", h.ApproveLeave)
			r.Post("/{id}/decline", h.DeclineLeave)
		})

		// Notification mailbox
		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.ListNotifications)
			r.Post("/{id}/read", h.MarkNotificationRead)
		})

		// Demo scenarios
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
