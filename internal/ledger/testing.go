package ledger

import "github.com/shopspring/decimal"

// SeedBalance is a test helper that overwrites the balance for an account when using the in-memory ledger.
func SeedBalance(s Store, accountID string, amount decimal.Decimal) {
	if mem, ok := s.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.balances[accountID] = amount
	}
}
