package saga

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/clearing/internal/ledger"
)

var (
	// ErrInvalidRequest wraps every validation failure.
	ErrInvalidRequest = errors.New("invalid clearing request")
	// ErrRetriesExhausted marks a step that stayed transient for its whole budget.
	ErrRetriesExhausted = errors.New("retries exhausted")
	// ErrAbandoned marks an execution cut short by cancellation or timeout.
	ErrAbandoned = errors.New("clearing abandoned")
	// ErrReconciliationRequired marks funds debited but not credited.
	ErrReconciliationRequired = errors.New("reconciliation required")
)

// Request is an accepted funds-transfer request. It is never mutated.
type Request struct {
	TransactionID string          `json:"transaction_id"`
	PayerID       string          `json:"payer_id"`
	BeneficiaryID string          `json:"beneficiary_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// Validate checks identifiers and the amount.
func (r Request) Validate() error {
	var missing []string
	if strings.TrimSpace(r.TransactionID) == "" {
		missing = append(missing, "transaction_id")
	}
	if strings.TrimSpace(r.PayerID) == "" {
		missing = append(missing, "payer_id")
	}
	if strings.TrimSpace(r.BeneficiaryID) == "" {
		missing = append(missing, "beneficiary_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing fields: %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}
	return validateAmount(r.Amount)
}

// ParseAmount parses a decimal string exactly and validates it as a transfer amount.
func ParseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q is not a decimal", ErrInvalidRequest, raw)
	}
	if err := validateAmount(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	if -amount.Exponent() > ledger.MaxScale {
		// Strip trailing zeros before deciding the value is too precise.
		if trimmed := decimal.RequireFromString(amount.String()); -trimmed.Exponent() > ledger.MaxScale {
			return fmt.Errorf("%w: amount has more than %d decimal places", ErrInvalidRequest, ledger.MaxScale)
		}
	}
	return nil
}
