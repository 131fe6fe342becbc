// Package retry runs an operation under a bounded attempt policy with
// exponential backoff between attempts.
package retry

import (
	"context"
	"time"
)

// Policy describes how many times an operation is attempted and how long to
// wait between attempts.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	// Retryable reports whether a failed attempt may be retried. Nil retries every error.
	Retryable func(error) bool
	// Sleep waits for d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry, if set, is called before waiting for the next attempt.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Outcome is the terminal state of Do.
type Outcome struct {
	Attempts int
	Err      error
}

// Exhausted reports whether the operation never succeeded.
func (o Outcome) Exhausted() bool {
	return o.Err != nil
}

// Default returns three attempts with 1s then 2s between them.
func Default() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Multiplier:  2,
	}
}

// Delay returns the wait after the given failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 || p.BaseDelay <= 0 {
		return 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= mult
	}
	return time.Duration(d)
}

// Do calls fn until it succeeds, returns a non-retryable error, the attempt
// budget is spent, or ctx is done. No wait follows the final attempt.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) Outcome {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err == nil {
				err = ctxErr
			}
			return Outcome{Attempts: attempt - 1, Err: err}
		}
		err = fn(ctx, attempt)
		if err == nil {
			return Outcome{Attempts: attempt}
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return Outcome{Attempts: attempt, Err: err}
		}
		if attempt == maxAttempts {
			break
		}
		delay := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			return Outcome{Attempts: attempt, Err: err}
		}
	}
	return Outcome{Attempts: maxAttempts, Err: err}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
