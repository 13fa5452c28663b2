package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/clearing/internal/outcome"
)

// Operations exposes the debit and credit primitives of a clearing saga on top
// of a Store, classifying store errors into step outcomes.
type Operations struct {
	store Store
}

// NewOperations wraps a ledger store.
func NewOperations(store Store) *Operations {
	return &Operations{store: store}
}

// Debit removes amount from the payer wallet if, and only if, the balance
// covers it at the moment the store applies the write.
//
// Outcomes: Debited, InsufficientFunds (terminal, balance unchanged),
// InvalidRequest (unknown wallet or malformed amount) or Transient.
func (o *Operations) Debit(ctx context.Context, payerID string, amount decimal.Decimal) (outcome.Outcome, error) {
	if !amount.IsPositive() {
		return outcome.InvalidRequest, fmt.Errorf("debit %s: amount must be positive", payerID)
	}
	floor := amount
	err := o.store.Transact(ctx, Mutation{AccountID: payerID, Delta: amount.Neg(), Floor: &floor})
	switch {
	case err == nil:
		return outcome.Debited, nil
	case errors.Is(err, ErrConditionFailed):
		return outcome.InsufficientFunds, fmt.Errorf("debit %s: %w", payerID, err)
	case isPermanent(err):
		return outcome.InvalidRequest, fmt.Errorf("debit %s: %w", payerID, err)
	default:
		return outcome.Transient, fmt.Errorf("debit %s: %w", payerID, err)
	}
}

// Credit adds amount to the beneficiary wallet unconditionally. It never fails
// for a business reason; only permanent input errors or transient store
// failures are reported.
func (o *Operations) Credit(ctx context.Context, beneficiaryID string, amount decimal.Decimal) (outcome.Outcome, error) {
	if !amount.IsPositive() {
		return outcome.InvalidRequest, fmt.Errorf("credit %s: amount must be positive", beneficiaryID)
	}
	err := o.store.Transact(ctx, Mutation{AccountID: beneficiaryID, Delta: amount})
	switch {
	case err == nil:
		return outcome.Credited, nil
	case isPermanent(err):
		return outcome.InvalidRequest, fmt.Errorf("credit %s: %w", beneficiaryID, err)
	default:
		return outcome.Transient, fmt.Errorf("credit %s: %w", beneficiaryID, err)
	}
}

func isPermanent(err error) bool {
	return errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrInvalidMutation)
}
