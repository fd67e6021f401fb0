package retry

import (
	"context"
	"time"

	"git.home.luguber.info/inful/docrestyle/internal/foundation/errors"
)

// BackoffMode selects how the delay grows between attempts.
type BackoffMode string

const (
	BackoffFixed       BackoffMode = "fixed"
	BackoffLinear      BackoffMode = "linear"
	BackoffExponential BackoffMode = "exponential"
)

// Policy encapsulates retry/backoff settings for transient failures.
// It is immutable after construction.
type Policy struct {
	Mode       BackoffMode   // fixed|linear|exponential
	Initial    time.Duration // base delay
	Max        time.Duration // cap for growth
	MaxRetries int           // maximum retry attempts after the first failure
}

// DefaultPolicy returns linear, 500ms initial, 5s cap, 2 retries.
func DefaultPolicy() Policy {
	return Policy{Mode: BackoffLinear, Initial: 500 * time.Millisecond, Max: 5 * time.Second, MaxRetries: 2}
}

// NewPolicy builds a policy from raw config fields; zero/invalid values fall back to defaults.
func NewPolicy(mode BackoffMode, initial, maxDuration time.Duration, maxRetries int) Policy {
	p := DefaultPolicy()
	if maxRetries >= 0 {
		p.MaxRetries = maxRetries
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDuration > 0 {
		p.Max = maxDuration
	}
	if ValidMode(mode) {
		p.Mode = mode
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// ValidMode reports whether mode is one of the known backoff modes.
func ValidMode(mode BackoffMode) bool {
	switch mode {
	case BackoffFixed, BackoffLinear, BackoffExponential:
		return true
	default:
		return false
	}
}

// Delay returns the backoff delay for the given retry attempt number (1-based: first retry => 1).
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	switch p.Mode {
	case BackoffFixed:
		return p.Initial
	case BackoffExponential:
		// Doubling stops at the cap, so large attempt numbers cannot overflow.
		d := p.Initial
		for i := 1; i < retryCount; i++ {
			if d >= p.Max/2 {
				return p.Max
			}
			d *= 2
		}
		return min(d, p.Max)
	default: // linear
		d := time.Duration(retryCount) * p.Initial
		if d > p.Max {
			return p.Max
		}
		return d
	}
}

// Validate ensures invariants; returns error if policy impossible to apply.
func (p Policy) Validate() error {
	if !ValidMode(p.Mode) {
		return errors.ValidationError("unknown backoff mode").WithContext("mode", string(p.Mode)).Build()
	}
	if p.Initial <= 0 {
		return errors.ValidationError("initial delay must be > 0").Build()
	}
	if p.Max <= 0 {
		return errors.ValidationError("max delay must be > 0").Build()
	}
	if p.MaxRetries < 0 {
		return errors.ValidationError("max retries cannot be negative").Build()
	}
	return nil
}

// Do runs op, retrying classified errors that allow a retry until the policy
// is exhausted or ctx is done. The last error is returned.
func (p Policy) Do(ctx context.Context, op func(context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		c, ok := errors.AsClassified(err)
		if !ok || !c.CanRetry() || attempt >= p.MaxRetries {
			return err
		}

		timer := time.NewTimer(p.Delay(attempt + 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}
