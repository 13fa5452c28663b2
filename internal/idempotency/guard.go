// Package idempotency admits each clearing transaction id for execution at
// most once within a duplicate-suppression window.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/congo-pay/clearing/internal/outcome"
)

// DefaultTTL is how long a transaction id is remembered.
const DefaultTTL = time.Hour

// Guard is the entry gate of a clearing saga.
type Guard struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewGuard wraps store. A non-positive ttl selects DefaultTTL.
func NewGuard(store Store, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Guard{store: store, ttl: ttl, now: time.Now}
}

// Reserve claims transactionID on behalf of owner, a token unique to one
// execution. It returns Reserved with the new record, Duplicate with the prior
// record (or a conflict marker with an empty status when it could not be read),
// InvalidRequest for an empty id, or Transient when the store failed.
//
// A conflicting record held by the same owner is an insert whose reply was
// lost; it is handed back as Reserved.
func (g *Guard) Reserve(ctx context.Context, transactionID, owner string) (outcome.Outcome, Record, error) {
	if transactionID == "" {
		return outcome.InvalidRequest, Record{}, ErrInvalidKey
	}

	now := g.now().UTC()
	rec := Record{
		TransactionID: transactionID,
		Owner:         owner,
		Status:        StatusInProgress,
		CreatedAt:     now,
		UpdatedAt:     now,
		ExpiresAt:     now.Add(g.ttl),
	}

	inserted, err := g.store.InsertIfAbsent(ctx, rec)
	if err != nil {
		return outcome.Transient, Record{}, err
	}
	if inserted {
		return outcome.Reserved, rec, nil
	}

	prior, err := g.store.Get(ctx, transactionID)
	if err != nil {
		return outcome.Duplicate, Record{TransactionID: transactionID}, nil
	}
	if owner != "" && prior.Owner == owner && prior.Status == StatusInProgress {
		return outcome.Reserved, prior, nil
	}
	return outcome.Duplicate, prior, nil
}

// Resolve records the final status of a reserved transaction.
func (g *Guard) Resolve(ctx context.Context, transactionID string, status Status, result string) error {
	if transactionID == "" {
		return ErrInvalidKey
	}
	if err := g.store.Update(ctx, transactionID, status, result); err != nil {
		return fmt.Errorf("resolve %s: %w", transactionID, err)
	}
	return nil
}

// Lookup returns the live record for transactionID.
func (g *Guard) Lookup(ctx context.Context, transactionID string) (Record, error) {
	if transactionID == "" {
		return Record{}, ErrInvalidKey
	}
	rec, err := g.store.Get(ctx, transactionID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Record{}, fmt.Errorf("lookup %s: %w", transactionID, err)
	}
	return rec, err
}
