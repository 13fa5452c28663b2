package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/clearing/internal/ledger"
)

// ErrInvalidWallet is returned for a malformed account id or opening balance.
var ErrInvalidWallet = errors.New("invalid wallet")

// Service exposes wallet operations backed by the ledger.
type Service struct {
	ledger ledger.Store
}

// NewService builds a wallet service instance.
func NewService(ledger ledger.Store) *Service {
	return &Service{ledger: ledger}
}

// OpenInput captures data required to open a wallet. An empty AccountID is
// replaced with a generated one.
type OpenInput struct {
	AccountID      string
	OpeningBalance decimal.Decimal
}

// Open provisions the ledger account. Opening an existing account leaves its
// balance untouched and returns it.
func (s *Service) Open(ctx context.Context, input OpenInput) (Wallet, error) {
	accountID := strings.TrimSpace(input.AccountID)
	if accountID == "" {
		accountID = uuid.NewString()
	}
	if input.OpeningBalance.IsNegative() {
		return Wallet{}, fmt.Errorf("%w: opening balance must not be negative", ErrInvalidWallet)
	}
	if -input.OpeningBalance.Exponent() > ledger.MaxScale {
		return Wallet{}, fmt.Errorf("%w: opening balance has more than %d decimal places", ErrInvalidWallet, ledger.MaxScale)
	}

	if err := s.ledger.EnsureAccount(ctx, accountID, input.OpeningBalance); err != nil {
		if errors.Is(err, ledger.ErrInvalidMutation) {
			return Wallet{}, fmt.Errorf("%w: %w", ErrInvalidWallet, err)
		}
		return Wallet{}, err
	}
	return s.Balance(ctx, accountID)
}

// Balance returns the ledger balance for the wallet.
func (s *Service) Balance(ctx context.Context, accountID string) (Wallet, error) {
	amount, err := s.ledger.Balance(ctx, accountID)
	if err != nil {
		return Wallet{}, err
	}
	return Wallet{AccountID: accountID, Balance: amount, AsOf: time.Now().UTC()}, nil
}
