package httpapi

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tripagenda/bookings/internal/observability"
	"github.com/tripagenda/bookings/internal/rategate"
)

func SetupRouter(h *Handlers, logger observability.Logger, gate rategate.Gate) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(ClientIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)

	r.Group(func(r chi.Router) {
		r.Use(RateGateMiddleware(gate))

		r.With(IdempotencyKeyMiddleware).Post("/v1/bookings", h.CreateBooking)
		r.Delete("/v1/bookings/{id}", h.CancelBooking)
		r.Get("/v1/bookings/{id}", h.GetBooking)
		r.Post("/v1/tickets/validate", h.ValidateTicket)
		r.Get("/v1/activities/{id}", h.GetActivity)
		r.Get("/v1/holders/{id}/bookings", h.HolderBookings)
	})

	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
