package idempotency

import (
	"context"
	"errors"
	"time"
)

// Status is the lifecycle status of an idempotency record.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

var (
	// ErrNotFound indicates no live record exists for the transaction id.
	ErrNotFound = errors.New("idempotency record not found")

	// ErrInvalidKey is returned for an empty transaction id.
	ErrInvalidKey = errors.New("transaction_id is required")
)

// Record remembers that a transaction id was admitted for execution.
type Record struct {
	TransactionID string    `json:"transaction_id"`
	Owner         string    `json:"owner,omitempty"` // execution that inserted the record
	Status        Status    `json:"status"`
	Outcome       string    `json:"outcome,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Store is the idempotency storage engine.
type Store interface {
	// InsertIfAbsent atomically stores rec unless a live record with the same
	// transaction id exists. It reports whether the record was inserted.
	InsertIfAbsent(ctx context.Context, rec Record) (bool, error)
	Get(ctx context.Context, transactionID string) (Record, error)
	// Update overwrites status and outcome of an existing record without
	// extending its expiry.
	Update(ctx context.Context, transactionID string, status Status, outcome string) error
}
