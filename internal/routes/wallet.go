package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/clearing/internal/wallet"
)

// RegisterWalletRoutes exposes account opening and balance reads over the
// ledger the saga debits and credits. Funds only move through clearings.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Post("/wallets", h.Create)
	r.Get("/wallets/:accountId/balance", h.Balance)
}
