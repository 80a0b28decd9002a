// Package retry runs an operation a bounded number of times with a fixed
// wait between attempts.
package retry

import (
	"context"
	"time"

	"codeberg.org/mutker/wattlog/internal/errors"
)

const (
	DefaultMaxAttempts = 3
	DefaultDelay       = 2 * time.Second
)

// Sleeper waits for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// TimerSleeper waits on a real timer.
func TimerSleeper() Sleeper {
	return timerSleeper{}
}

// Op is one attempt. attempt starts at 1.
type Op func(ctx context.Context, attempt int) error

type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Sleeper     Sleeper
	// OnRetry is called after a failed attempt that will be retried.
	OnRetry func(attempt int, err error)
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		Delay:       DefaultDelay,
		Sleeper:     TimerSleeper(),
	}
}

func (p Policy) Validate() error {
	errFactory := errors.New()
	if p.MaxAttempts < 1 {
		return errFactory.WithData(ErrInvalidPolicy, "max attempts must be at least 1")
	}
	if p.Delay < 0 {
		return errFactory.WithData(ErrInvalidPolicy, "delay must not be negative")
	}
	return nil
}

// Do runs op until it succeeds or MaxAttempts is reached and returns the
// number of attempts made. There is no wait after the final attempt.
func (p Policy) Do(ctx context.Context, op Op) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	sleeper := p.Sleeper
	if sleeper == nil {
		sleeper = TimerSleeper()
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		lastErr = op(ctx, attempt)
		if lastErr == nil {
			return attempt, nil
		}

		if attempt == p.MaxAttempts {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, lastErr)
		}
		if err := sleeper.Sleep(ctx, p.Delay); err != nil {
			return attempt, err
		}
	}

	return p.MaxAttempts, errors.New().Wrap(ErrExhausted, lastErr).WithData(p.MaxAttempts)
}
