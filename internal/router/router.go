package router // route registration for the reservation API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/restaurant-table-reservation/internal/config"
	"github.com/iliyamo/restaurant-table-reservation/internal/handler"
	"github.com/iliyamo/restaurant-table-reservation/internal/middleware"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Reservations *handler.ReservationHandler
	Availability *handler.AvailabilityHandler
	Realtime     *handler.RealtimeHandler
}

// Register mounts all routes on the Echo instance.
//
// Unauthenticated: health, metrics and the websocket endpoint, which does
// its own token check because browsers cannot send headers on an upgrade.
// Everything else lives under /v1 behind JWT auth; the booking POSTs also
// pass the Redis token bucket.
func Register(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/v1/realtime", h.Realtime.Serve)

	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(cfg.JWTSecret))
	v1.Use(middleware.RequireRole(
		middleware.RoleCustomer,
		middleware.RoleStaff,
		middleware.RoleAdmin,
		middleware.RoleDelivery,
	))

	limited := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	v1.POST("/reservations", h.Reservations.Create, limited)
	v1.POST("/reservations/quick", h.Reservations.CreateQuick, limited)

	v1.GET("/reservations/:id", h.Reservations.Get)
	v1.PATCH("/reservations/:id", h.Reservations.UpdateStatus)
	v1.DELETE("/reservations/:id", h.Reservations.Delete,
		middleware.RequireRole(middleware.RoleStaff, middleware.RoleAdmin))
	v1.POST("/reservations/:id/complete", h.Reservations.Complete,
		middleware.RequireRole(middleware.RoleStaff, middleware.RoleAdmin))

	v1.GET("/branches/:id/availability", h.Availability.Check)
	v1.GET("/branches/:id/timeslots", h.Availability.TimeSlots)
}
