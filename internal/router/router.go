package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/cinema-seats/reservation-engine/internal/config"
	"github.com/cinema-seats/reservation-engine/internal/handler"
	"github.com/cinema-seats/reservation-engine/internal/middleware"
)

// RegisterRoutes wires the reservation engine's thin HTTP surface:
// health check, Reserve, Confirm-Payment and the computed seat view.
// Auth and request validation beyond minimal binding are out of scope;
// rate limiting and response caching are still applied since they are
// ambient, not functional, concerns.
func RegisterRoutes(e *echo.Echo, h *handler.ReservationHandler, rdb *redis.Client, rl config.RateLimitConfig, cache config.CacheConfig) {
	e.GET("/healthz", handler.Health)

	v1 := e.Group("/v1")
	v1.Use(middleware.NewTokenBucket(rl, rdb))

	v1.POST("/sessions/:id/reservations", h.CreateReservation)
	v1.POST("/reservations/:id/confirm", h.ConfirmPayment)
	v1.GET("/sessions/:id/seats", h.SessionSeats, middleware.NewRedisCache(cache, rdb))
}
