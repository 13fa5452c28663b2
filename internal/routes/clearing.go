package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/clearing/internal/clearing"
)

// RegisterClearingRoutes wires the clearing saga endpoints.
func RegisterClearingRoutes(r fiber.Router, executor clearing.Executor, records clearing.RecordLookup) {
	h := clearing.NewHandler(executor, records)
	r.Post("/clearing", h.Create)
	r.Get("/clearing/:transactionId", h.Get)
}
