package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

type inMemoryLedger struct {
	mu       sync.RWMutex
	balances map[string]decimal.Decimal
}

// NewInMemory creates a concurrency-safe in-memory ledger store useful for
// development and unit tests.
func NewInMemory() Store {
	return &inMemoryLedger{balances: make(map[string]decimal.Decimal)}
}

func (l *inMemoryLedger) EnsureAccount(_ context.Context, accountID string, opening decimal.Decimal) error {
	if accountID == "" || opening.IsNegative() {
		return ErrInvalidMutation
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.balances[accountID]; !exists {
		l.balances[accountID] = opening
	}
	return nil
}

func (l *inMemoryLedger) Balance(_ context.Context, accountID string) (decimal.Decimal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	balance, exists := l.balances[accountID]
	if !exists {
		return decimal.Zero, fmt.Errorf("%s: %w", accountID, ErrAccountNotFound)
	}
	return balance, nil
}

func (l *inMemoryLedger) Transact(ctx context.Context, mutations ...Mutation) error {
	if err := validate(mutations); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Stage against a copy of the touched balances so a failed condition leaves
	// every account unchanged.
	staged := make(map[string]decimal.Decimal, len(mutations))
	for _, m := range mutations {
		balance, ok := staged[m.AccountID]
		if !ok {
			balance, ok = l.balances[m.AccountID]
			if !ok {
				return fmt.Errorf("%s: %w", m.AccountID, ErrAccountNotFound)
			}
		}
		if m.Floor != nil && balance.LessThan(*m.Floor) {
			return fmt.Errorf("%s: %w", m.AccountID, ErrConditionFailed)
		}
		staged[m.AccountID] = balance.Add(m.Delta)
	}

	for id, balance := range staged {
		l.balances[id] = balance
	}
	return nil
}
