package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrConditionFailed occurs when a mutation's balance floor does not hold at
	// the time the store applies it. No mutation of the transaction is applied.
	ErrConditionFailed = errors.New("ledger condition check failed")

	// ErrAccountNotFound indicates a mutation targets a wallet the store does not know.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidMutation indicates the store rejected the mutation as malformed.
	// Retrying it cannot succeed.
	ErrInvalidMutation = errors.New("invalid ledger mutation")
)

// MaxScale is the number of fractional digits a balance column can hold exactly.
const MaxScale = 8

// Mutation adjusts one wallet balance by Delta. When Floor is set the store
// applies the mutation only if the current balance is at least *Floor,
// evaluated atomically with the write.
type Mutation struct {
	AccountID string
	Delta     decimal.Decimal
	Floor     *decimal.Decimal
}

// Store is the wallet ledger storage engine. Transact applies all mutations
// atomically or none of them.
type Store interface {
	EnsureAccount(ctx context.Context, accountID string, opening decimal.Decimal) error
	Balance(ctx context.Context, accountID string) (decimal.Decimal, error)
	Transact(ctx context.Context, mutations ...Mutation) error
}

func validate(mutations []Mutation) error {
	if len(mutations) == 0 {
		return ErrInvalidMutation
	}
	for _, m := range mutations {
		if m.AccountID == "" || m.Delta.IsZero() {
			return ErrInvalidMutation
		}
		if -m.Delta.Exponent() > MaxScale {
			return ErrInvalidMutation
		}
	}
	return nil
}
