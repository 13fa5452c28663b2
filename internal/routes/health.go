package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

const statusDisabled = "in-memory"

// BreakerState reports the circuit state guarding the interbank gateway.
type BreakerState interface {
	State() string
}

// RegisterHealthRoutes adds liveness/readiness style endpoints. An open
// gateway circuit is reported but does not fail the check.
func RegisterHealthRoutes(app *fiber.App, d Deps, breaker BreakerState) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		dbStatus := statusDisabled
		redisStatus := statusDisabled

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		healthy := true
		if d.DB != nil {
			dbStatus = "ok"
			if err := d.DB.Ping(ctx); err != nil {
				dbStatus = err.Error()
				healthy = false
			}
		}
		if d.Cache != nil {
			redisStatus = "ok"
			if err := d.Cache.Ping(ctx).Err(); err != nil {
				redisStatus = err.Error()
				healthy = false
			}
		}
		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    fiber.Map{"postgres": dbStatus, "redis": redisStatus, "gateway": breaker.State()},
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
