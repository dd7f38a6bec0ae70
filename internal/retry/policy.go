// Package retry runs a single call under a bounded exponential-backoff policy.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mekedron/otter-menusync/internal/logging"
)

// ErrExhausted matches errors returned once every attempt has failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// ExhaustedError carries the last attempt's error. Its message is the last
// error's message so callers surface the underlying cause unchanged.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return e.Err.Error()
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrExhausted.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

// Policy describes how a call is retried.
type Policy struct {
	Attempts  int
	Delay     time.Duration
	Backoff   float64
	Retryable func(error) bool
	Logger    *slog.Logger
	// Sleep waits between attempts; nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Default returns 3 attempts, 1s initial delay and x2 backoff, retrying every error.
func Default() Policy {
	return Policy{
		Attempts: 3,
		Delay:    time.Second,
		Backoff:  2.0,
	}
}

// Do runs fn until it succeeds, a non-retryable error occurs or attempts run out.
func Do[T any](ctx context.Context, p Policy, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := p.Backoff
	if backoff < 1 {
		backoff = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	logger := p.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	delay := p.Delay
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if p.Retryable != nil && !p.Retryable(err) {
			return zero, err
		}
		if attempt == attempts {
			logger.Error("all attempts failed", "op", name, "attempts", attempts, "err", err)
			break
		}
		logger.Warn("attempt failed, retrying",
			"op", name,
			"attempt", attempt,
			"attempts", attempts,
			"delay", delay,
			"err", err,
		)
		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
		delay = time.Duration(float64(delay) * backoff)
	}
	return zero, &ExhaustedError{Attempts: attempts, Err: lastErr}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
