package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/congo-pay/clearing/internal/outcome"
)

// BreakerConfig configures the circuit breaker in front of the gateway.
type BreakerConfig struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// DefaultBreakerConfig trips after five consecutive failures and probes again after 30s.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{MaxRequests: 1, Interval: time.Minute, Timeout: 30 * time.Second, ConsecutiveFailures: 5}
}

// Step invokes the gateway on behalf of the saga. Every failure, including a
// rejection by an open circuit, is reported as Transient: the coordinator never
// treats a network problem as a business rejection.
type Step struct {
	gateway Gateway
	breaker *gobreaker.CircuitBreaker
}

// NewStep wraps gw in a circuit breaker.
func NewStep(gw Gateway, cfg BreakerConfig, logger *slog.Logger) *Step {
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = DefaultBreakerConfig().ConsecutiveFailures
	}
	settings := gobreaker.Settings{
		Name:        "interbank-gateway",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// A saga giving up is not a gateway fault.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Warn("circuit breaker state changed",
					slog.String("breaker", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()))
			}
		},
	}
	return &Step{gateway: gw, breaker: gobreaker.NewCircuitBreaker(settings)}
}

// Transfer returns Cleared with the network receipt, or Transient.
func (s *Step) Transfer(ctx context.Context, req TransferRequest) (outcome.Outcome, Receipt, error) {
	res, err := s.breaker.Execute(func() (interface{}, error) {
		return s.gateway.Transfer(ctx, req)
	})
	if err != nil {
		return outcome.Transient, Receipt{}, fmt.Errorf("transfer %s: %w", req.TransactionID, err)
	}
	receipt, _ := res.(Receipt)
	return outcome.Cleared, receipt, nil
}

// State exposes the breaker state for health reporting.
func (s *Step) State() string {
	return s.breaker.State().String()
}
