// Package gateway connects the clearing saga to the external interbank
// transfer network.
package gateway

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrTransferFailed is the simulated temporary interbank failure.
var ErrTransferFailed = errors.New("interbank transfer failed")

// TransferRequest carries what the network needs to move the funds.
type TransferRequest struct {
	TransactionID string
	PayerID       string
	BeneficiaryID string
	Amount        decimal.Decimal
}

// Receipt is the network's acknowledgement of a cleared transfer.
type Receipt struct {
	Reference string
	Status    string
	ClearedAt time.Time
}

// StatusCleared is the receipt status of an accepted transfer.
const StatusCleared = "CLEARED"

// Gateway represents a connector to the interbank network. Implementations
// must be safe to call again with the same TransactionID.
type Gateway interface {
	Transfer(ctx context.Context, req TransferRequest) (Receipt, error)
}

// SimulatorConfig shapes the simulated network.
type SimulatorConfig struct {
	MinLatency  time.Duration
	MaxLatency  time.Duration
	FailureRate float64
}

// DefaultSimulatorConfig mirrors the behaviour of the mocked network: 2–5s and
// a 5% chance of a temporary error.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{MinLatency: 2 * time.Second, MaxLatency: 5 * time.Second, FailureRate: 0.05}
}

// Simulator is a Gateway with random latency and failures.
type Simulator struct {
	cfg  SimulatorConfig
	rand func() float64
}

// NewSimulator builds a simulated gateway.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	if cfg.MaxLatency < cfg.MinLatency {
		cfg.MaxLatency = cfg.MinLatency
	}
	return &Simulator{cfg: cfg, rand: rand.Float64}
}

// Transfer waits for the simulated network latency, then clears or fails.
func (s *Simulator) Transfer(ctx context.Context, req TransferRequest) (Receipt, error) {
	latency := s.cfg.MinLatency + time.Duration(s.rand()*float64(s.cfg.MaxLatency-s.cfg.MinLatency))
	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return Receipt{}, ctx.Err()
		}
	}

	if s.rand() < s.cfg.FailureRate {
		return Receipt{}, ErrTransferFailed
	}
	return Receipt{Reference: uuid.NewString(), Status: StatusCleared, ClearedAt: time.Now().UTC()}, nil
}
