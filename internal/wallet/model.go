package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is a ledger account as seen by API clients.
type Wallet struct {
	AccountID string
	Balance   decimal.Decimal
	AsOf      time.Time
}
