package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/clearing/internal/outcome"
)

func recordingPolicy(attempts int, sleeps *[]time.Duration) Policy {
	return Policy{
		MaxAttempts: attempts,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    time.Second,
		Sleep: func(_ context.Context, d time.Duration) error {
			*sleeps = append(*sleeps, d)
			return nil
		},
	}
}

func TestDoRetriesTransientUntilSuccess(t *testing.T) {
	var sleeps []time.Duration
	p := recordingPolicy(5, &sleeps)

	rep := p.Do(context.Background(), func(_ context.Context, attempt int) (outcome.Outcome, error) {
		if attempt < 3 {
			return outcome.Transient, errors.New("store unavailable")
		}
		return outcome.Debited, nil
	})

	require.NoError(t, rep.Err)
	assert.Equal(t, outcome.Debited, rep.Outcome)
	assert.Equal(t, 3, rep.Attempts)
	assert.False(t, rep.Exhausted)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, sleeps)
}

func TestDoNeverRetriesTerminalOutcomes(t *testing.T) {
	for _, o := range []outcome.Outcome{outcome.InsufficientFunds, outcome.InvalidRequest, outcome.Duplicate} {
		t.Run(o.String(), func(t *testing.T) {
			var sleeps []time.Duration
			calls := 0
			rep := recordingPolicy(4, &sleeps).Do(context.Background(), func(context.Context, int) (outcome.Outcome, error) {
				calls++
				return o, nil
			})
			assert.Equal(t, 1, calls)
			assert.Equal(t, o, rep.Outcome)
			assert.Empty(t, sleeps)
			assert.False(t, rep.Exhausted)
		})
	}
}

func TestDoExhaustsBudget(t *testing.T) {
	var sleeps []time.Duration
	boom := errors.New("timeout")
	rep := recordingPolicy(3, &sleeps).Do(context.Background(), func(context.Context, int) (outcome.Outcome, error) {
		return outcome.Transient, boom
	})

	assert.True(t, rep.Exhausted)
	assert.Equal(t, 3, rep.Attempts)
	assert.Equal(t, outcome.Transient, rep.Outcome)
	assert.ErrorIs(t, rep.Err, boom)
	assert.Len(t, sleeps, 2)
}

func TestDoStopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := Policy{MaxAttempts: 5, BaseDelay: time.Hour}
	calls := 0
	rep := p.Do(ctx, func(context.Context, int) (outcome.Outcome, error) {
		calls++
		return outcome.Transient, errors.New("unreachable")
	})

	assert.Equal(t, 1, calls)
	assert.False(t, rep.Exhausted)
	assert.Equal(t, outcome.Transient, rep.Outcome)
	assert.ErrorIs(t, rep.Err, context.Canceled)
}

func TestDelayCapsAndJitters(t *testing.T) {
	p := Policy{BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, p.Delay(0))
	assert.Equal(t, 200*time.Millisecond, p.Delay(1))
	assert.Equal(t, 300*time.Millisecond, p.Delay(2))
	assert.Equal(t, 300*time.Millisecond, p.Delay(70))

	p.Jitter = 0.5
	p.Rand = func() float64 { return 0 }
	assert.Equal(t, 50*time.Millisecond, p.Delay(0))
	p.Rand = func() float64 { return 0.999 }
	d := p.Delay(0)
	assert.True(t, d >= 50*time.Millisecond && d < 100*time.Millisecond, "delay %s", d)
}

func TestZeroAttemptsStillRunsOnce(t *testing.T) {
	calls := 0
	rep := Policy{}.Do(context.Background(), func(context.Context, int) (outcome.Outcome, error) {
		calls++
		return outcome.Cleared, nil
	})
	assert.Equal(t, 1, calls)
	assert.Equal(t, outcome.Cleared, rep.Outcome)
}
