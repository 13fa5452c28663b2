package reconciliation

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// Handler exposes pending reconciliation records to operators.
type Handler struct {
	store Store
}

// NewHandler builds a reconciliation HTTP handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// List returns pending records, oldest first.
func (h *Handler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultListLimit)
	if limit <= 0 || limit > maxListLimit {
		return fiber.NewError(http.StatusBadRequest, "limit must be between 1 and 1000")
	}
	records, err := h.store.List(c.UserContext(), limit)
	if err != nil {
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	}
	if records == nil {
		records = []Record{}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"records": records, "count": len(records)})
}

// Get returns one pending record.
func (h *Handler) Get(c *fiber.Ctx) error {
	rec, err := h.store.Get(c.UserContext(), c.Params("transactionId"))
	if err != nil {
		return storeError(err)
	}
	return c.Status(http.StatusOK).JSON(rec)
}

// Clear marks a record as resolved by removing it.
func (h *Handler) Clear(c *fiber.Ctx) error {
	if err := h.store.Clear(c.UserContext(), c.Params("transactionId")); err != nil {
		return storeError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

func storeError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return fiber.NewError(http.StatusNotFound, "reconciliation record not found")
	}
	return fiber.NewError(http.StatusServiceUnavailable, err.Error())
}
