// Package retry runs a startup step a bounded number of times with a fixed
// backoff between attempts.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff"
)

const (
	DefaultAttempts = 20
	DefaultBackoff  = time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy bounds how often Do retries.
type Policy struct {
	Attempts int
	Backoff  time.Duration
	Sleep    SleepFunc
}

// DefaultPolicy matches the startup behavior of the server.
func DefaultPolicy() Policy {
	return Policy{Attempts: DefaultAttempts, Backoff: DefaultBackoff}
}

// Do calls fn until it succeeds, the backoff schedule stops, or ctx is done.
// The last error is returned wrapped with the attempt count.
func Do(ctx context.Context, p Policy, logger *slog.Logger, name string, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = contextSleep
	}
	if logger == nil {
		logger = slog.Default()
	}

	schedule := newSchedule(p.Backoff, attempts)

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		delay := schedule.NextBackOff()
		if delay == backoff.Stop {
			return fmt.Errorf("%s failed after %d attempts: %w", name, attempt, err)
		}
		logger.Warn("retrying", "step", name, "attempt", attempt, "of", attempts, "backoff", delay, "error", err)
		if serr := sleep(ctx, delay); serr != nil {
			return fmt.Errorf("%s: %w", name, serr)
		}
	}
}

// newSchedule yields attempts-1 delays of d and then backoff.Stop.
// WithMaxRetries treats zero as unlimited, so a single attempt gets
// StopBackOff instead.
func newSchedule(d time.Duration, attempts int) backoff.BackOff {
	if attempts <= 1 {
		return &backoff.StopBackOff{}
	}
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(d), uint64(attempts-1))
}

func contextSleep(ctx context.Context, d time.Duration) error {
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
