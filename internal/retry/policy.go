// Package retry implements the bounded exponential backoff applied to every
// retryable clearing step.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/congo-pay/clearing/internal/outcome"
)

const maxShift = 62

// Policy bounds how often and how slowly a transient step is retried.
type Policy struct {
	// MaxAttempts counts the first invocation; values below 1 are treated as 1.
	MaxAttempts int
	BaseDelay   time.Duration
	// MaxDelay caps the exponential delay. Zero means uncapped.
	MaxDelay time.Duration
	// Jitter is the fraction of each delay that is randomised, in [0, 1].
	Jitter float64

	// Sleep and Rand are overridable for tests.
	Sleep func(ctx context.Context, d time.Duration) error
	Rand  func() float64
}

// Attempt is one invocation of a step under a policy. The attempt number starts at 1.
type Attempt func(ctx context.Context, attempt int) (outcome.Outcome, error)

// Report summarises a Do call.
type Report struct {
	Outcome  outcome.Outcome
	Err      error
	Attempts int
	// Exhausted is true when the last outcome was still Transient after MaxAttempts.
	Exhausted bool
}

// Do invokes fn until it returns a non-transient outcome, the attempt budget is
// spent, or ctx is done. Only outcome.Transient is ever retried.
func (p Policy) Do(ctx context.Context, fn Attempt) Report {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var rep Report
	for n := 1; n <= attempts; n++ {
		rep.Attempts = n
		rep.Outcome, rep.Err = fn(ctx, n)
		if !rep.Outcome.Retryable() {
			return rep
		}
		if n == attempts {
			break
		}
		if err := p.sleep(ctx, p.Delay(n-1)); err != nil {
			rep.Err = errors.Join(rep.Err, err)
			return rep
		}
	}
	rep.Exhausted = true
	return rep
}

// Delay returns the wait before retry number attempt (zero based).
func (p Policy) Delay(attempt int) time.Duration {
	d := exponential(p.BaseDelay, attempt)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	jitter := p.Jitter
	if jitter <= 0 || d <= 0 {
		return d
	}
	if jitter > 1 {
		jitter = 1
	}
	random := rand.Float64
	if p.Rand != nil {
		random = p.Rand
	}
	spread := float64(d) * jitter
	return time.Duration(float64(d) - spread + spread*random())
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return SleepWithContext(ctx, d)
}

func exponential(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	} else if attempt > maxShift {
		attempt = maxShift
	}
	multiplier := int64(1) << attempt
	if int64(base) > math.MaxInt64/multiplier {
		return time.Duration(math.MaxInt64)
	}
	return base * time.Duration(multiplier)
}

// SleepWithContext waits for d or until ctx is done.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context done: %w", ctx.Err())
	}
}
