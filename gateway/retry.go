package gateway

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// Defaults for the backoff policy. DefaultMaxDelay is the ceiling applied to
// every computed delay so a long retry chain cannot stall a caller
// indefinitely.
const (
	DefaultMaxRetries    = 3
	DefaultBackoffFactor = 2.0
	DefaultBaseDelay     = 1 * time.Second
	DefaultMaxDelay      = 60 * time.Second
)

// Policy computes retry decisions. Decide is pure; the actual suspension
// between attempts is owned by Do.
type Policy struct {
	MaxRetries    int
	BackoffFactor float64
	BaseDelay     time.Duration
	MaxDelay      time.Duration

	// Sleep suspends between attempts. Nil selects a context-aware real
	// sleep; tests inject a recorder to observe delays without waiting.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry, when set, observes every Attempting -> Retrying transition.
	OnRetry func(op string, attempt int, delay time.Duration)
}

// DefaultPolicy returns the policy with the documented default budget.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:    DefaultMaxRetries,
		BackoffFactor: DefaultBackoffFactor,
		BaseDelay:     DefaultBaseDelay,
		MaxDelay:      DefaultMaxDelay,
	}
}

// Decision is the outcome of one policy evaluation.
type Decision struct {
	Retry bool
	Delay time.Duration
}

// Decide reports whether a failure of the given classification at the given
// zero-based attempt should be retried, and after how long. Only transient
// failures retry, and only while attempt < MaxRetries; permanent failures
// never retry regardless of the attempt count. The delay grows as
// BaseDelay * BackoffFactor^attempt and is capped at MaxDelay.
func (p Policy) Decide(attempt int, transient bool) Decision {
	if !transient || attempt >= p.MaxRetries {
		return Decision{}
	}
	delay := time.Duration(float64(p.BaseDelay) * math.Pow(p.BackoffFactor, float64(attempt)))
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return Decision{Retry: true, Delay: delay}
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do runs call under the policy's retry loop. Validation and permanent
// failures return on the spot; transient failures retry until the budget is
// spent and then surface as *ExhaustedRetriesError carrying the last cause.
// The context is checked before every attempt and during backoff sleeps, so
// an abandoned call stops retrying immediately.
func Do[T any](ctx context.Context, op string, p Policy, call func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, Permanent(KindPermanent, err)
		}
		out, err := call(ctx)
		if err == nil {
			return out, nil
		}
		if !IsTransient(err) {
			return zero, err
		}
		decision := p.Decide(attempt, true)
		if !decision.Retry {
			return zero, &ExhaustedRetriesError{Op: op, Attempts: attempt + 1, Err: err}
		}
		zerolog.Ctx(ctx).Debug().
			Str("operation", op).
			Int("attempt", attempt).
			Dur("delay", decision.Delay).
			Msg("transient failure, backing off")
		if p.OnRetry != nil {
			p.OnRetry(op, attempt, decision.Delay)
		}
		if err := p.sleep(ctx, decision.Delay); err != nil {
			return zero, Permanent(KindPermanent, err)
		}
	}
}
