package saga

import (
	"time"

	"github.com/congo-pay/clearing/internal/retry"
)

// Config holds the per-step retry policies and time limits of a coordinator.
type Config struct {
	IdempotencyRetry retry.Policy
	DebitRetry       retry.Policy
	TransferRetry    retry.Policy
	CreditRetry      retry.Policy
	// PersistRetry governs reconciliation persistence and idempotency resolution.
	PersistRetry retry.Policy

	// Timeout bounds a whole execution. Zero leaves only the caller's deadline.
	Timeout time.Duration
	// StepTimeout bounds a single step invocation. Zero disables it.
	StepTimeout time.Duration
	// FinalizeTimeout bounds bookkeeping done after a terminal state, which
	// runs detached from the execution context.
	FinalizeTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		IdempotencyRetry: retry.Policy{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, Jitter: 0.2},
		DebitRetry:       retry.Policy{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second, Jitter: 0.2},
		TransferRetry:    retry.Policy{MaxAttempts: 4, BaseDelay: time.Second, MaxDelay: 8 * time.Second, Jitter: 0.2},
		CreditRetry:      retry.Policy{MaxAttempts: 6, BaseDelay: 500 * time.Millisecond, MaxDelay: 8 * time.Second, Jitter: 0.2},
		PersistRetry:     retry.Policy{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: 2 * time.Second, Jitter: 0.2},
		Timeout:          30 * time.Second,
		StepTimeout:      10 * time.Second,
		FinalizeTimeout:  10 * time.Second,
	}
}
