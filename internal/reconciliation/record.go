// Package reconciliation persists clearing transactions that were left with
// the payer debited but the beneficiary not credited, until an operator or an
// automated process resolves them.
package reconciliation

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound indicates no pending record exists for the transaction id.
var ErrNotFound = errors.New("reconciliation record not found")

// Record captures the partial state of a saga that could not finish.
type Record struct {
	TransactionID     string          `json:"transaction_id"`
	PayerID           string          `json:"payer_id"`
	BeneficiaryID     string          `json:"beneficiary_id"`
	Amount            decimal.Decimal `json:"amount"`
	LastCompletedStep string          `json:"last_completed_step"`
	Reason            string          `json:"reason"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Store keeps records durable until they are cleared.
type Store interface {
	// Save is idempotent per transaction id: saving an existing record keeps
	// the first one.
	Save(ctx context.Context, rec Record) error
	Get(ctx context.Context, transactionID string) (Record, error)
	List(ctx context.Context, limit int) ([]Record, error)
	Clear(ctx context.Context, transactionID string) error
}
