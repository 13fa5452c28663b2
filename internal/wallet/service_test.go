package wallet

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/clearing/internal/ledger"
)

func TestServiceOpenAndBalance(t *testing.T) {
	led := ledger.NewInMemory()
	svc := NewService(led)
	ctx := context.Background()

	wallet, err := svc.Open(ctx, OpenInput{AccountID: "A", OpeningBalance: decimal.RequireFromString("150.00")})
	require.NoError(t, err)
	assert.Equal(t, "A", wallet.AccountID)
	assert.Equal(t, "150", wallet.Balance.String())

	// Reopening keeps the current balance.
	ledger.SeedBalance(led, "A", decimal.RequireFromString("42.5"))
	wallet, err = svc.Open(ctx, OpenInput{AccountID: "A", OpeningBalance: decimal.RequireFromString("999")})
	require.NoError(t, err)
	assert.Equal(t, "42.5", wallet.Balance.String())
}

func TestServiceOpenGeneratesAccountID(t *testing.T) {
	svc := NewService(ledger.NewInMemory())

	wallet, err := svc.Open(context.Background(), OpenInput{})
	require.NoError(t, err)
	assert.NotEmpty(t, wallet.AccountID)
	assert.True(t, wallet.Balance.IsZero())
}

func TestServiceOpenRejectsInvalidBalance(t *testing.T) {
	svc := NewService(ledger.NewInMemory())
	ctx := context.Background()

	_, err := svc.Open(ctx, OpenInput{AccountID: "A", OpeningBalance: decimal.RequireFromString("-1")})
	assert.ErrorIs(t, err, ErrInvalidWallet)

	_, err = svc.Open(ctx, OpenInput{AccountID: "A", OpeningBalance: decimal.RequireFromString("0.123456789")})
	assert.ErrorIs(t, err, ErrInvalidWallet)
}

func TestServiceBalanceUnknownAccount(t *testing.T) {
	svc := NewService(ledger.NewInMemory())

	_, err := svc.Balance(context.Background(), "missing")
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}
