// Package saga drives a clearing request through idempotency, debit, external
// transfer and credit, deciding every transition from the outcome of the step
// that just ran.
package saga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/clearing/internal/events"
	"github.com/congo-pay/clearing/internal/gateway"
	"github.com/congo-pay/clearing/internal/idempotency"
	"github.com/congo-pay/clearing/internal/logging"
	"github.com/congo-pay/clearing/internal/metrics"
	"github.com/congo-pay/clearing/internal/outcome"
	"github.com/congo-pay/clearing/internal/reconciliation"
	"github.com/congo-pay/clearing/internal/retry"
)

// IdempotencyGuard admits a transaction id at most once per window. Reserve
// must treat a conflict held by the same owner as the caller's own reservation.
type IdempotencyGuard interface {
	Reserve(ctx context.Context, transactionID, owner string) (outcome.Outcome, idempotency.Record, error)
	Resolve(ctx context.Context, transactionID string, status idempotency.Status, result string) error
}

// Ledger moves funds on internal accounts.
type Ledger interface {
	Debit(ctx context.Context, payerID string, amount decimal.Decimal) (outcome.Outcome, error)
	Credit(ctx context.Context, beneficiaryID string, amount decimal.Decimal) (outcome.Outcome, error)
}

// Transferer performs the external interbank transfer.
type Transferer interface {
	Transfer(ctx context.Context, req gateway.TransferRequest) (outcome.Outcome, gateway.Receipt, error)
}

// Deps are the collaborators of a Coordinator. Publisher, Metrics and Logger
// are optional.
type Deps struct {
	Guard           IdempotencyGuard
	Ledger          Ledger
	Transfer        Transferer
	Reconciliations reconciliation.Store
	Publisher       events.Publisher
	Metrics         *metrics.Recorder
	Logger          *slog.Logger
}

// Coordinator runs clearing sagas. It holds no per-execution state and is safe
// for concurrent use.
type Coordinator struct {
	deps Deps
	cfg  Config
	now  func() time.Time
}

func NewCoordinator(deps Deps, cfg Config) *Coordinator {
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NewLoggerPublisher(deps.Logger)
	}
	return &Coordinator{deps: deps, cfg: cfg, now: time.Now}
}

// run is the per-execution view of a Coordinator.
type run struct {
	*Coordinator
	req      Request
	owner    string
	exec     *Execution
	logger   *slog.Logger
	reserved bool
}

// Execute drives req to a terminal state. It never panics on step failure and
// always returns a Result whose State is terminal.
func (c *Coordinator) Execute(ctx context.Context, req Request) Result {
	r := &run{
		Coordinator: c,
		req:         req,
		owner:       uuid.NewString(),
		exec: &Execution{
			TransactionID: req.TransactionID,
			Current:       StateStart,
			StartedAt:     c.now(),
		},
		logger: logging.Saga(c.deps.Logger, req.TransactionID),
	}

	res := r.drive(ctx)
	res.TransactionID = req.TransactionID
	r.exec.enter(res.State)
	r.finish(ctx, &res)
	res.Execution = *r.exec
	return res
}

func (r *run) drive(ctx context.Context) Result {
	if err := r.req.Validate(); err != nil {
		return Result{State: StateFailed, Kind: KindInvalidRequest, Err: err}
	}

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	var prior idempotency.Record
	rep := r.step(ctx, StateIdempotencyCheck, r.cfg.IdempotencyRetry, func(ctx context.Context) (outcome.Outcome, error) {
		o, rec, err := r.deps.Guard.Reserve(ctx, r.req.TransactionID, r.owner)
		prior = rec
		return o, err
	})
	switch rep.Outcome {
	case outcome.Reserved:
		r.reserved = true
	case outcome.Duplicate:
		return Result{State: StateDuplicateRejected, Kind: KindDuplicate, Prior: &prior}
	case outcome.InvalidRequest:
		return Result{State: StateFailed, Kind: KindInvalidRequest, Err: fmt.Errorf("%w: %w", ErrInvalidRequest, rep.Err)}
	default:
		return r.abandon(ctx, rep)
	}

	rep = r.step(ctx, StateDebiting, r.cfg.DebitRetry, func(ctx context.Context) (outcome.Outcome, error) {
		return r.deps.Ledger.Debit(ctx, r.req.PayerID, r.req.Amount)
	})
	switch rep.Outcome {
	case outcome.Debited:
	case outcome.InsufficientFunds:
		return Result{State: StateInsufficientFundsRejected, Kind: KindInsufficientFunds, Err: rep.Err}
	case outcome.InvalidRequest:
		return Result{State: StateFailed, Kind: KindInvalidRequest, Err: fmt.Errorf("%w: %w", ErrInvalidRequest, rep.Err)}
	default:
		return r.abandon(ctx, rep)
	}

	rep = r.step(ctx, StateTransferring, r.cfg.TransferRetry, func(ctx context.Context) (outcome.Outcome, error) {
		o, receipt, err := r.deps.Transfer.Transfer(ctx, gateway.TransferRequest{
			TransactionID: r.req.TransactionID,
			PayerID:       r.req.PayerID,
			BeneficiaryID: r.req.BeneficiaryID,
			Amount:        r.req.Amount,
		})
		if err == nil {
			r.logger.Info("transfer cleared", slog.String("reference", receipt.Reference))
		}
		return o, err
	})
	if rep.Outcome != outcome.Cleared {
		return r.reconcile(ctx, StateDebiting, rep)
	}

	rep = r.step(ctx, StateCrediting, r.cfg.CreditRetry, func(ctx context.Context) (outcome.Outcome, error) {
		return r.deps.Ledger.Credit(ctx, r.req.BeneficiaryID, r.req.Amount)
	})
	if rep.Outcome != outcome.Credited {
		return r.reconcile(ctx, StateTransferring, rep)
	}

	return Result{State: StateCompleted}
}

// step runs one state's action under policy and records its bookkeeping.
func (r *run) step(ctx context.Context, state State, policy retry.Policy, fn func(context.Context) (outcome.Outcome, error)) retry.Report {
	r.exec.enter(state)
	rep := policy.Do(ctx, func(ctx context.Context, attempt int) (outcome.Outcome, error) {
		if err := ctx.Err(); err != nil {
			return outcome.Transient, err
		}
		stepCtx := ctx
		if r.cfg.StepTimeout > 0 {
			var cancel context.CancelFunc
			stepCtx, cancel = context.WithTimeout(ctx, r.cfg.StepTimeout)
			defer cancel()
		}
		o, err := fn(stepCtx)
		r.deps.Metrics.StepAttempt(string(state), o.String())
		if err != nil && o.Retryable() {
			r.logger.Warn("step attempt failed",
				slog.String("state", string(state)),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
		}
		return o, err
	})

	rec := StepRecord{State: state, Outcome: rep.Outcome.String(), Attempts: rep.Attempts, At: r.now()}
	if rep.Err != nil {
		rec.Err = rep.Err.Error()
	}
	r.exec.record(rec)
	return rep
}

// abandon ends an execution before any funds moved.
func (r *run) abandon(ctx context.Context, rep retry.Report) Result {
	return Result{State: StateFailed, Kind: KindTransient, Err: r.stepError(ctx, rep)}
}

func (r *run) stepError(ctx context.Context, rep retry.Report) error {
	var cause error
	switch {
	case ctx.Err() != nil:
		cause = ErrAbandoned
	case rep.Exhausted:
		cause = fmt.Errorf("%w after %d attempts", ErrRetriesExhausted, rep.Attempts)
	default:
		cause = fmt.Errorf("step returned %s", rep.Outcome)
	}
	if rep.Err == nil {
		return fmt.Errorf("%s: %w", r.exec.Current, cause)
	}
	return fmt.Errorf("%s: %w: %w", r.exec.Current, cause, rep.Err)
}

// reconcile records that the payer was debited but the beneficiary was not
// credited. Persistence runs detached from ctx, which may already be expired.
func (r *run) reconcile(ctx context.Context, lastCompleted State, rep retry.Report) Result {
	r.exec.Compensating = true
	cause := r.stepError(ctx, rep)
	rec := reconciliation.Record{
		TransactionID:     r.req.TransactionID,
		PayerID:           r.req.PayerID,
		BeneficiaryID:     r.req.BeneficiaryID,
		Amount:            r.req.Amount,
		LastCompletedStep: string(lastCompleted),
		Reason:            cause.Error(),
		CreatedAt:         r.now().UTC(),
	}

	persistCtx, cancel := r.detached(ctx)
	defer cancel()
	saved := r.cfg.PersistRetry.Do(persistCtx, func(ctx context.Context, attempt int) (outcome.Outcome, error) {
		if err := r.deps.Reconciliations.Save(ctx, rec); err != nil {
			return outcome.Transient, err
		}
		return outcome.Recorded, nil
	})

	err := fmt.Errorf("%w: %w", ErrReconciliationRequired, cause)
	if saved.Outcome != outcome.Recorded {
		r.logger.Error("reconciliation record not persisted",
			slog.String("payer_id", rec.PayerID),
			slog.String("beneficiary_id", rec.BeneficiaryID),
			slog.String("amount", rec.Amount.String()),
			slog.String("last_completed_step", rec.LastCompletedStep),
			slog.String("reason", rec.Reason),
			slog.Any("error", saved.Err),
		)
		err = errors.Join(err, fmt.Errorf("persist reconciliation: %w", saved.Err))
	} else {
		r.logger.Warn("reconciliation required",
			slog.String("last_completed_step", rec.LastCompletedStep),
			slog.String("reason", rec.Reason),
		)
	}
	return Result{State: StateReconciliationRequired, Kind: KindReconciliationRequired, Err: err, Reconciliation: &rec}
}

// finish resolves the idempotency record, publishes the outcome and records metrics.
func (r *run) finish(ctx context.Context, res *Result) {
	elapsed := r.now().Sub(r.exec.StartedAt)
	r.deps.Metrics.SagaFinished(string(res.State), elapsed)

	attrs := []any{slog.String("state", string(res.State)), slog.Duration("elapsed", elapsed)}
	if res.Err != nil {
		attrs = append(attrs, slog.String("error", res.Err.Error()))
	}
	r.logger.Info("clearing finished", attrs...)

	if res.State == StateDuplicateRejected {
		return
	}

	finCtx, cancel := r.detached(ctx)
	defer cancel()

	if r.reserved {
		status := idempotency.StatusFailed
		if res.State == StateCompleted {
			status = idempotency.StatusCompleted
		}
		rep := r.cfg.PersistRetry.Do(finCtx, func(ctx context.Context, attempt int) (outcome.Outcome, error) {
			if err := r.deps.Guard.Resolve(ctx, r.req.TransactionID, status, string(res.State)); err != nil {
				if errors.Is(err, idempotency.ErrNotFound) {
					return outcome.InvalidRequest, err
				}
				return outcome.Transient, err
			}
			return outcome.Recorded, nil
		})
		if rep.Err != nil {
			r.logger.Error("idempotency record not resolved", slog.String("error", rep.Err.Error()))
		}
	}

	event := events.Outcome{
		TransactionID: r.req.TransactionID,
		State:         string(res.State),
		Kind:          string(res.Kind),
		PayerID:       r.req.PayerID,
		BeneficiaryID: r.req.BeneficiaryID,
		Amount:        r.req.Amount.String(),
		Reason:        res.Reason(),
		OccurredAt:    r.now().UTC(),
	}
	if err := r.deps.Publisher.Publish(finCtx, event); err != nil {
		r.logger.Error("publish outcome failed", slog.String("error", err.Error()))
	}
}

func (r *run) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if r.cfg.FinalizeTimeout > 0 {
		return context.WithTimeout(base, r.cfg.FinalizeTimeout)
	}
	return context.WithCancel(base)
}
