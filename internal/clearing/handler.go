// Package clearing exposes the clearing saga over HTTP.
package clearing

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/clearing/internal/idempotency"
	"github.com/congo-pay/clearing/internal/middleware"
	"github.com/congo-pay/clearing/internal/reconciliation"
	"github.com/congo-pay/clearing/internal/saga"
)

// Executor runs one clearing saga to a terminal state.
type Executor interface {
	Execute(ctx context.Context, req saga.Request) saga.Result
}

// RecordLookup reads idempotency records.
type RecordLookup interface {
	Lookup(ctx context.Context, transactionID string) (idempotency.Record, error)
}

// Handler exposes clearing endpoints.
type Handler struct {
	executor Executor
	records  RecordLookup
}

// NewHandler constructs a clearing handler.
func NewHandler(executor Executor, records RecordLookup) *Handler {
	return &Handler{executor: executor, records: records}
}

// The amount is decoded from its JSON text, quoted or not, without passing
// through float64.
type clearingRequest struct {
	TransactionID string          `json:"transaction_id"`
	PayerID       string          `json:"payer_id"`
	BeneficiaryID string          `json:"beneficiary_id"`
	Amount        decimal.Decimal `json:"amount"`
}

type stepResponse struct {
	State    string    `json:"state"`
	Outcome  string    `json:"outcome"`
	Attempts int       `json:"attempts"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

type clearingResponse struct {
	TransactionID  string                 `json:"transaction_id"`
	State          string                 `json:"state"`
	Kind           string                 `json:"kind,omitempty"`
	Reason         string                 `json:"reason,omitempty"`
	Prior          *idempotency.Record    `json:"prior,omitempty"`
	Reconciliation *reconciliation.Record `json:"reconciliation,omitempty"`
	Steps          []stepResponse         `json:"steps"`
}

// Create runs a clearing saga synchronously and maps its terminal state to an
// HTTP status.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req clearingRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	txID := strings.TrimSpace(req.TransactionID)
	if txID == "" {
		txID = uuid.NewString()
	}
	c.Locals(middleware.TransactionIDLocal, txID)

	res := h.executor.Execute(c.UserContext(), saga.Request{
		TransactionID: txID,
		PayerID:       strings.TrimSpace(req.PayerID),
		BeneficiaryID: strings.TrimSpace(req.BeneficiaryID),
		Amount:        req.Amount,
	})

	return c.Status(statusFor(res)).JSON(toResponse(res))
}

// Get returns the idempotency record of a transaction.
func (h *Handler) Get(c *fiber.Ctx) error {
	rec, err := h.records.Lookup(c.UserContext(), c.Params("transactionId"))
	if err != nil {
		switch {
		case errors.Is(err, idempotency.ErrNotFound), errors.Is(err, idempotency.ErrInvalidKey):
			return fiber.NewError(http.StatusNotFound, "transaction not found")
		default:
			return fiber.NewError(http.StatusServiceUnavailable, err.Error())
		}
	}
	return c.Status(http.StatusOK).JSON(rec)
}

func statusFor(res saga.Result) int {
	switch res.State {
	case saga.StateCompleted:
		return http.StatusCreated
	case saga.StateDuplicateRejected:
		return http.StatusOK
	case saga.StateInsufficientFundsRejected:
		return http.StatusUnprocessableEntity
	case saga.StateReconciliationRequired:
		return http.StatusAccepted
	}
	if res.Kind == saga.KindInvalidRequest {
		return http.StatusBadRequest
	}
	return http.StatusServiceUnavailable
}

func toResponse(res saga.Result) clearingResponse {
	out := clearingResponse{
		TransactionID:  res.TransactionID,
		State:          string(res.State),
		Kind:           string(res.Kind),
		Reason:         res.Reason(),
		Prior:          res.Prior,
		Reconciliation: res.Reconciliation,
		Steps:          make([]stepResponse, 0, len(res.Execution.Steps)),
	}
	for _, s := range res.Execution.Steps {
		out.Steps = append(out.Steps, stepResponse{
			State:    string(s.State),
			Outcome:  s.Outcome,
			Attempts: s.Attempts,
			Error:    s.Err,
			At:       s.At,
		})
	}
	return out
}
