// Package events announces terminal clearing outcomes to downstream systems.
package events

import (
	"context"
	"log/slog"
	"time"
)

// Outcome is published once per clearing execution that reached a terminal state.
type Outcome struct {
	TransactionID string    `json:"transaction_id"`
	State         string    `json:"state"`
	Kind          string    `json:"kind,omitempty"`
	PayerID       string    `json:"payer_id"`
	BeneficiaryID string    `json:"beneficiary_id"`
	Amount        string    `json:"amount"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher delivers outcome events.
type Publisher interface {
	Publish(ctx context.Context, event Outcome) error
}

// LoggerPublisher writes events to the structured logger. It is used when no
// broker is configured.
type LoggerPublisher struct {
	logger *slog.Logger
}

// NewLoggerPublisher constructs a logging publisher.
func NewLoggerPublisher(logger *slog.Logger) *LoggerPublisher {
	return &LoggerPublisher{logger: logger}
}

// Publish logs the event.
func (p *LoggerPublisher) Publish(_ context.Context, event Outcome) error {
	if p == nil || p.logger == nil {
		return nil
	}
	p.logger.Info("clearing outcome",
		slog.String("transaction_id", event.TransactionID),
		slog.String("state", event.State),
		slog.String("kind", event.Kind),
		slog.String("amount", event.Amount),
		slog.String("reason", event.Reason),
	)
	return nil
}
