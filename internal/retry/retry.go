// Package retry wraps a single fallible call with rate-limit aware backoff.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	logx "github.com/Chative-core-poc-v1/router/pkg/logger"
)

// Class is the retry classification of an error.
type Class int

const (
	// Permanent errors propagate immediately.
	Permanent Class = iota
	// RateLimited errors are retried with backoff.
	RateLimited
	// QuotaExhausted errors are retried with a doubled delay.
	QuotaExhausted
)

func (c Class) String() string {
	switch c {
	case RateLimited:
		return "rate_limited"
	case QuotaExhausted:
		return "quota_exhausted"
	default:
		return "permanent"
	}
}

// Classifier maps an error to its retry class.
type Classifier func(error) Class

// Policy parameterises Do.
type Policy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	Classify      Classifier
	// OnRetryScheduled, when set, sees every backoff before it is slept.
	OnRetryScheduled func(delay time.Duration, err error)
	// Name labels log lines.
	Name string
}

// DefaultPolicy returns 3 retries starting at 1s, capped at 30s, doubling.
func DefaultPolicy(classify Classifier) Policy {
	return Policy{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2,
		Classify:      classify,
	}
}

// Do runs op and retries it while the classifier reports a rate limit, up to
// MaxRetries additional attempts. The last rate-limit error is returned after
// exhaustion; any permanent error is returned without retrying.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	p = p.normalized()

	var lastErr error
	out, err := failsafe.With[T](newRetryPolicy[T](p)).
		WithContext(ctx).
		Get(func() (T, error) {
			out, err := op(ctx)
			if err != nil {
				lastErr = err
			}
			return out, err
		})
	if err != nil && lastErr != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		// cancelled while backing off: report the call's own failure
		return out, lastErr
	}
	return out, err
}

func newRetryPolicy[T any](p Policy) retrypolicy.RetryPolicy[T] {
	// next is the base delay of the coming retry; the policy is built per call.
	next := p.InitialDelay

	return retrypolicy.NewBuilder[T]().
		HandleIf(func(_ T, err error) bool {
			return err != nil && p.Classify(err) != Permanent
		}).
		WithMaxRetries(p.MaxRetries).
		WithDelayFunc(func(exec failsafe.ExecutionAttempt[T]) time.Duration {
			d := next
			if p.Classify(exec.LastError()) == QuotaExhausted {
				d = minDuration(scale(d, p.BackoffFactor*2), p.MaxDelay*2)
			}
			next = minDuration(scale(d, p.BackoffFactor), p.MaxDelay)
			return d
		}).
		ReturnLastFailure().
		OnRetryScheduled(func(e failsafe.ExecutionScheduledEvent[T]) {
			err := e.LastError()
			logx.Warn().Err(err).Str("op", p.Name).Int("attempt", e.Attempts()).Int("max_retries", p.MaxRetries).
				Dur("delay", e.Delay).Str("class", p.Classify(err).String()).Msg("rate limited, backing off")
			if p.OnRetryScheduled != nil {
				p.OnRetryScheduled(e.Delay, err)
			}
		}).
		OnRetriesExceeded(func(e failsafe.ExecutionEvent[T]) {
			err := e.LastError()
			logx.Error().Err(err).Str("op", p.Name).Int("attempts", e.Attempts()).Str("class", p.Classify(err).String()).
				Msg("retries exhausted")
		}).
		Build()
}

func (p Policy) normalized() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialDelay < 0 {
		p.InitialDelay = 0
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.BackoffFactor < 1 {
		p.BackoffFactor = 1
	}
	if p.Classify == nil {
		p.Classify = func(error) Class { return Permanent }
	}
	return p
}

func scale(d time.Duration, f float64) time.Duration {
	return time.Duration(float64(d) * f)
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
