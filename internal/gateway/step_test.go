package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/clearing/internal/logging"
	"github.com/congo-pay/clearing/internal/outcome"
)

type scriptedGateway struct {
	errs  []error
	calls int
}

func (g *scriptedGateway) Transfer(_ context.Context, req TransferRequest) (Receipt, error) {
	g.calls++
	if len(g.errs) > 0 {
		err := g.errs[0]
		g.errs = g.errs[1:]
		if err != nil {
			return Receipt{}, err
		}
	}
	return Receipt{Reference: "ref-" + req.TransactionID, Status: StatusCleared}, nil
}

func request() TransferRequest {
	return TransferRequest{TransactionID: "tx-1", PayerID: "A", BeneficiaryID: "B", Amount: decimal.RequireFromString("100.00")}
}

func TestStepClearsAndReturnsReceipt(t *testing.T) {
	step := NewStep(&scriptedGateway{}, DefaultBreakerConfig(), logging.Discard())

	res, receipt, err := step.Transfer(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, outcome.Cleared, res)
	assert.Equal(t, "ref-tx-1", receipt.Reference)
}

func TestStepTreatsEveryFailureAsTransient(t *testing.T) {
	gw := &scriptedGateway{errs: []error{ErrTransferFailed, context.DeadlineExceeded}}
	step := NewStep(gw, DefaultBreakerConfig(), logging.Discard())

	for i := 0; i < 2; i++ {
		res, _, err := step.Transfer(context.Background(), request())
		assert.Equal(t, outcome.Transient, res)
		assert.Error(t, err)
	}
}

func TestOpenCircuitIsTransientAndSkipsGateway(t *testing.T) {
	gw := &scriptedGateway{errs: []error{ErrTransferFailed, ErrTransferFailed}}
	step := NewStep(gw, BreakerConfig{MaxRequests: 1, Timeout: time.Hour, ConsecutiveFailures: 2}, logging.Discard())

	step.Transfer(context.Background(), request())
	step.Transfer(context.Background(), request())
	require.Equal(t, "open", step.State())

	res, _, err := step.Transfer(context.Background(), request())
	assert.Equal(t, outcome.Transient, res)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, gw.calls)
}

func TestSimulatorFailureRate(t *testing.T) {
	always := NewSimulator(SimulatorConfig{FailureRate: 1})
	_, err := always.Transfer(context.Background(), request())
	assert.True(t, errors.Is(err, ErrTransferFailed))

	never := NewSimulator(SimulatorConfig{FailureRate: 0})
	receipt, err := never.Transfer(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, StatusCleared, receipt.Status)
	assert.NotEmpty(t, receipt.Reference)
}

func TestSimulatorHonoursCancellation(t *testing.T) {
	sim := NewSimulator(SimulatorConfig{MinLatency: time.Hour, MaxLatency: time.Hour})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := sim.Transfer(ctx, request())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
