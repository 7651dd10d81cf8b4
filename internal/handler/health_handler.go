package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Pinger is an interface for health check ping operations.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	db    Pinger
	cache Pinger
}

// NewHealthHandler creates a new HealthHandler over the database pool and
// the product cache.
func NewHealthHandler(db, cache Pinger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

// Check performs a health check by pinging the database and the cache.
// Returns 200 OK when the database is reachable; the cache is best-effort,
// so an unreachable cache is reported but does not fail the check.
// Returns 503 Service Unavailable when the database is unreachable.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	if err := h.db.Ping(c.Context()); err != nil {
		log.Error().Err(err).Msg("health check failed: database unreachable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  "database connection failed",
		})
	}

	cacheStatus := "healthy"
	if err := h.cache.Ping(c.Context()); err != nil {
		log.Warn().Err(err).Msg("health check: product cache unreachable")
		cacheStatus = "unreachable"
	}

	return c.JSON(fiber.Map{
		"status": "healthy",
		"cache":  cacheStatus,
	})
}
