package saga

import (
	"time"

	"github.com/congo-pay/clearing/internal/idempotency"
	"github.com/congo-pay/clearing/internal/reconciliation"
)

// State is a node of the clearing state machine.
type State string

const (
	StateStart            State = "START"
	StateIdempotencyCheck State = "IDEMPOTENCY_CHECK"
	StateDebiting         State = "DEBITING"
	StateTransferring     State = "TRANSFERRING"
	StateCrediting        State = "CREDITING"
	StateCompleted        State = "COMPLETED"

	StateDuplicateRejected         State = "DUPLICATE_REJECTED"
	StateInsufficientFundsRejected State = "INSUFFICIENT_FUNDS_REJECTED"
	StateReconciliationRequired    State = "RECONCILIATION_REQUIRED"
	StateFailed                    State = "FAILED"
)

// Terminal reports whether the coordinator stops in s.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateDuplicateRejected, StateInsufficientFundsRejected,
		StateReconciliationRequired, StateFailed:
		return true
	}
	return false
}

// Kind distinguishes the categories of a non-success result.
type Kind string

const (
	KindNone                   Kind = ""
	KindInvalidRequest         Kind = "INVALID_REQUEST"
	KindDuplicate              Kind = "DUPLICATE"
	KindInsufficientFunds      Kind = "INSUFFICIENT_FUNDS"
	KindTransient              Kind = "TRANSIENT"
	KindReconciliationRequired Kind = "RECONCILIATION_REQUIRED"
)

// StepRecord is the bookkeeping of one state's step invocation.
type StepRecord struct {
	State    State     `json:"state"`
	Outcome  string    `json:"outcome"`
	Attempts int       `json:"attempts"`
	Err      string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

// Execution is the state of a single saga run. It belongs to one Execute call.
type Execution struct {
	TransactionID string       `json:"transaction_id"`
	Current       State        `json:"current"`
	Steps         []StepRecord `json:"steps"`
	Compensating  bool         `json:"compensating"`
	StartedAt     time.Time    `json:"started_at"`
}

func (e *Execution) enter(s State) {
	e.Current = s
}

func (e *Execution) record(rec StepRecord) {
	e.Steps = append(e.Steps, rec)
}

// Result is what the coordinator reports to its caller.
type Result struct {
	TransactionID string
	State         State
	Kind          Kind
	Err           error
	// Prior is set for DUPLICATE_REJECTED. An empty Status means the earlier
	// record could not be read and only the conflict is known.
	Prior *idempotency.Record
	// Reconciliation is set for RECONCILIATION_REQUIRED.
	Reconciliation *reconciliation.Record
	Execution      Execution
}

// Reason renders Err for callers that need text.
func (r Result) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
