// Package retry executes operations under an exponential-backoff policy and
// decides which failures are worth another attempt.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/example/hikelog/internal/core/result"
	"github.com/example/hikelog/internal/logging"
	"github.com/example/hikelog/internal/metrics"
)

// Policy is an immutable retry configuration.
type Policy struct {
	// MaxRetries is the total number of attempts, including the first one.
	MaxRetries int
	// InitialDelay is the wait after the first failed attempt.
	InitialDelay time.Duration
	// MaxDelay caps every individual wait.
	MaxDelay time.Duration
	// BackoffFactor multiplies the wait after each failed attempt.
	BackoffFactor float64
	// JitterFactor spreads each wait uniformly over ±JitterFactor of its value.
	JitterFactor float64
	// Retryable overrides the default classification when set.
	Retryable func(error) bool
}

// DefaultPolicy is used on the normal data path.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
		JitterFactor:  0.1,
	}
}

// AggressivePolicy is used by the migration pipeline, where a failed write
// costs a whole record.
func AggressivePolicy() Policy {
	return Policy{
		MaxRetries:    5,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		JitterFactor:  0.2,
	}
}

// PolicyByName resolves a preset name. Unknown names yield DefaultPolicy.
func PolicyByName(name string) Policy {
	if name == "aggressive" {
		return AggressivePolicy()
	}
	return DefaultPolicy()
}

// Delay returns the un-jittered wait after the given zero-based failed attempt:
// min(InitialDelay * BackoffFactor^attempt, MaxDelay).
func (p Policy) Delay(attempt int) time.Duration {
	factor := p.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	d := float64(p.InitialDelay) * math.Pow(factor, float64(attempt))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

func (p Policy) jittered(attempt int) time.Duration {
	d := p.Delay(attempt)
	if p.JitterFactor <= 0 || d <= 0 {
		return d
	}
	spread := float64(d) * p.JitterFactor * (2*randFloat() - 1)
	return time.Duration(float64(d) + spread)
}

func (p Policy) attempts() int {
	if p.MaxRetries < 1 {
		return 1
	}
	return p.MaxRetries
}

// ShouldRetry applies the policy's classification to err.
func (p Policy) ShouldRetry(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return IsRetryable(err)
}

// Overridable for tests.
var (
	randFloat = rand.Float64
	sleep     = func(ctx context.Context, d time.Duration) error {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
)

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// policy's attempts are exhausted. The last error is returned unchanged,
// except after cancellation, where it also wraps ctx's error.
// Waits are cancelled by ctx.
func Do[T any](ctx context.Context, p Policy, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.attempts()

	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			metrics.RetryAttempts.WithLabelValues(operation, "success").Inc()
			return v, nil
		}

		if cerr := ctx.Err(); cerr != nil {
			metrics.RetryAttempts.WithLabelValues(operation, "rejected").Inc()
			return zero, withContextErr(err, cerr)
		}
		if !p.ShouldRetry(err) {
			metrics.RetryAttempts.WithLabelValues(operation, "rejected").Inc()
			return zero, err
		}

		if attempt+1 >= attempts {
			metrics.RetryAttempts.WithLabelValues(operation, "exhausted").Inc()
			logging.Ctx(ctx).Warn().Err(err).
				Str("operation", operation).
				Int("attempts", attempts).
				Msg("retries exhausted")
			return zero, err
		}

		delay := p.jittered(attempt)
		metrics.RetryAttempts.WithLabelValues(operation, "retry").Inc()
		logging.Ctx(ctx).Warn().Err(err).
			Str("operation", operation).
			Int("attempt", attempt+1).
			Int("max_attempts", attempts).
			Dur("delay", delay).
			Msg("retry attempt")

		if serr := sleep(ctx, delay); serr != nil {
			return zero, withContextErr(err, serr)
		}
	}
}

// withContextErr keeps err and adds the cancellation cause unless err
// already carries it.
func withContextErr(err, cerr error) error {
	if errors.Is(err, cerr) {
		return err
	}
	return fmt.Errorf("%w: %w", err, cerr)
}

// Exec is Do for operations that produce no value.
func Exec(ctx context.Context, p Policy, operation string, fn func(ctx context.Context) error) error {
	_, err := Do(ctx, p, operation, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoResult is Do for Result-returning operations. Success is returned at once,
// Loading passes through untouched and is never retried, and Failure is
// retried under the same classification; the final Failure is returned.
func DoResult[T any](ctx context.Context, p Policy, operation string, fn func(ctx context.Context) result.Result[T]) result.Result[T] {
	var last result.Result[T]

	// The error is already captured in last.
	_, _ = Do(ctx, p, operation, func(ctx context.Context) (struct{}, error) {
		last = fn(ctx)
		if f, ok := last.(result.Failure[T]); ok {
			if f.Cause == nil {
				return struct{}{}, &failureMessage{message: f.Message}
			}
			return struct{}{}, f.Cause
		}
		return struct{}{}, nil
	})
	return last
}

type failureMessage struct{ message string }

func (e *failureMessage) Error() string { return e.message }
