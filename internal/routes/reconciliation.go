package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/clearing/internal/reconciliation"
)

// RegisterReconciliationRoutes wires the operator endpoints for partial transactions.
func RegisterReconciliationRoutes(r fiber.Router, h *reconciliation.Handler) {
	r.Get("/reconciliations", h.List)
	r.Get("/reconciliations/:transactionId", h.Get)
	r.Delete("/reconciliations/:transactionId", h.Clear)
}
