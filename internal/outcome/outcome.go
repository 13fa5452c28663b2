// Package outcome defines the tagged result every clearing step reports back to
// the saga coordinator.
package outcome

// Outcome is the classified result of a single saga step invocation.
type Outcome uint8

const (
	// Unknown is the zero value and never returned by a step.
	Unknown Outcome = iota
	// Reserved means the idempotency key was claimed for this execution.
	Reserved
	// Duplicate means the idempotency key was already claimed by an earlier request.
	Duplicate
	// Debited means the payer balance was decremented.
	Debited
	// InsufficientFunds is a terminal business rejection of a debit.
	InsufficientFunds
	// Cleared means the external transfer was accepted by the gateway.
	Cleared
	// Credited means the beneficiary balance was incremented.
	Credited
	// Transient is an infrastructure failure that may succeed on retry.
	Transient
	// InvalidRequest is a permanent input error that must not be retried.
	InvalidRequest
	// Recorded means a reconciliation record was durably stored.
	Recorded
)

var names = map[Outcome]string{
	Unknown:           "UNKNOWN",
	Reserved:          "RESERVED",
	Duplicate:         "DUPLICATE",
	Debited:           "DEBITED",
	InsufficientFunds: "INSUFFICIENT_FUNDS",
	Cleared:           "CLEARED",
	Credited:          "CREDITED",
	Transient:         "TRANSIENT",
	InvalidRequest:    "INVALID_REQUEST",
	Recorded:          "RECORDED",
}

func (o Outcome) String() string {
	if name, ok := names[o]; ok {
		return name
	}
	return names[Unknown]
}

// Retryable reports whether a step that produced o may be invoked again.
func (o Outcome) Retryable() bool {
	return o == Transient
}
