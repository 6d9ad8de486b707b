package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-service/internal/observability"
	"github.com/spec-kit/repair-service/internal/persistence"
)

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	postgres    *persistence.Postgres
	redis       *persistence.Redis
	metrics     *observability.Metrics
}

// NewHealthHandler returns a new handler instance. Nil dependencies are
// reported as disabled rather than failing readiness.
func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis, metrics *observability.Metrics) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, postgres: postgres, redis: redis, metrics: metrics}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return respond(c, fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true

	check := func(name string, enabled bool, ping func(context.Context) error) {
		if !enabled {
			depStatus[name] = "disabled"
			return
		}
		if err := ping(ctx); err != nil {
			depStatus[name] = err.Error()
			ready = false
			return
		}
		depStatus[name] = "ok"
	}
	check("postgres", h.postgres != nil, h.postgres.Ping)
	check("redis", h.redis != nil, h.redis.Ping)

	if h.postgres != nil {
		depStatus["postgresPool"] = h.postgres.Stats()
	}

	if ready {
		return respond(c, fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"code":    fiber.StatusServiceUnavailable,
		"message": "one or more dependencies unavailable",
		"data": fiber.Map{
			"error":   "DEPENDENCY_UNAVAILABLE",
			"details": depStatus,
		},
	})
}

// Metrics reports the in-process counters.
func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	return respond(c, h.metrics.Snapshot())
}
