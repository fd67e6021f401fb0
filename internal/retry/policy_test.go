package retry

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docrestyle/internal/foundation/errors"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	require.Equal(t, BackoffLinear, p.Mode)
	require.Equal(t, 500*time.Millisecond, p.Initial)
	require.Equal(t, 5*time.Second, p.Max)
	require.Equal(t, 2, p.MaxRetries)
	require.NoError(t, p.Validate())
}

func TestNewPolicyOverrides(t *testing.T) {
	p := NewPolicy(BackoffFixed, 5*time.Second, 2*time.Second, 5)
	require.Equal(t, 2*time.Second, p.Initial, "initial is clamped to max")
	require.Equal(t, 2*time.Second, p.Max)
	require.Equal(t, BackoffFixed, p.Mode)
	require.Equal(t, 5, p.MaxRetries)

	p = NewPolicy("bogus", 0, 0, -1)
	require.Equal(t, DefaultPolicy(), p)
}

func TestDelayModes(t *testing.T) {
	fixed := NewPolicy(BackoffFixed, 100*time.Millisecond, 500*time.Millisecond, 3)
	for i := 1; i <= 3; i++ {
		require.Equal(t, 100*time.Millisecond, fixed.Delay(i))
	}

	linear := NewPolicy(BackoffLinear, 100*time.Millisecond, 250*time.Millisecond, 5)
	for attempt, want := range map[int]time.Duration{1: 100 * time.Millisecond, 2: 200 * time.Millisecond, 3: 250 * time.Millisecond, 4: 250 * time.Millisecond} {
		require.Equal(t, want, linear.Delay(attempt), "linear attempt %d", attempt)
	}

	exp := NewPolicy(BackoffExponential, 50*time.Millisecond, 160*time.Millisecond, 5)
	for attempt, want := range map[int]time.Duration{1: 50 * time.Millisecond, 2: 100 * time.Millisecond, 3: 160 * time.Millisecond, 4: 160 * time.Millisecond} {
		require.Equal(t, want, exp.Delay(attempt), "exponential attempt %d", attempt)
	}

	require.Zero(t, linear.Delay(0))
	require.Zero(t, linear.Delay(-1))
}

func TestValidate(t *testing.T) {
	require.Error(t, Policy{Mode: BackoffLinear, Initial: 0, Max: time.Second}.Validate())
	require.Error(t, Policy{Mode: BackoffLinear, Initial: time.Second, Max: 0}.Validate())
	require.Error(t, Policy{Mode: BackoffLinear, Initial: time.Second, Max: time.Second, MaxRetries: -1}.Validate())
	require.Error(t, Policy{Mode: "sometimes", Initial: time.Second, Max: time.Second}.Validate())
}

func TestDoRetriesRetryableErrors(t *testing.T) {
	p := NewPolicy(BackoffFixed, time.Millisecond, time.Millisecond, 3)
	calls := 0
	err := p.Do(t.Context(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.EventsError("broker unavailable").Build()
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDoGivesUp(t *testing.T) {
	p := NewPolicy(BackoffFixed, time.Millisecond, time.Millisecond, 2)
	calls := 0
	err := p.Do(t.Context(), func(context.Context) error {
		calls++
		return errors.EventsError("broker unavailable").Build()
	})
	require.Error(t, err)
	require.Equal(t, 3, calls)
}

func TestDoDoesNotRetryPermanentErrors(t *testing.T) {
	p := NewPolicy(BackoffFixed, time.Millisecond, time.Millisecond, 5)

	calls := 0
	err := p.Do(t.Context(), func(context.Context) error {
		calls++
		return errors.ValidationError("bad payload").Build()
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)

	calls = 0
	err = p.Do(t.Context(), func(context.Context) error {
		calls++
		return stderrors.New("plain")
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestDoStopsOnCancel(t *testing.T) {
	p := NewPolicy(BackoffFixed, time.Hour, time.Hour, 5)
	ctx, cancel := context.WithCancel(t.Context())
	calls := 0
	err := p.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.EventsError("broker unavailable").Build()
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestExponentialDelayStaysCapped(t *testing.T) {
	huge := time.Duration(1<<62) + time.Hour
	p := NewPolicy(BackoffExponential, time.Second, huge, 100)
	for _, attempt := range []int{30, 33, 34, 64, 65, 100, 1000} {
		d := p.Delay(attempt)
		require.Positive(t, d, "attempt %d", attempt)
		require.LessOrEqual(t, d, huge, "attempt %d", attempt)
	}
	require.Equal(t, huge, p.Delay(1000))
	require.Equal(t, 8*time.Second, p.Delay(4))
}
