package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
	"go.uber.org/zap"
)

// RetryPolicy bounds how often a cold-start connection is attempted.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// Run calls fn until it succeeds or the attempts are exhausted, pausing a fixed delay between tries.
func (p RetryPolicy) Run(ctx context.Context, logger *zap.Logger, what string, fn func(context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	// Min == Max with Factor 1 keeps the pause constant.
	boff := &backoff.Backoff{Min: p.Delay, Max: p.Delay, Factor: 1}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		wait := boff.Duration()
		logger.Warn("connection attempt failed",
			zap.String("target", what),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("retry_in", wait),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("%s: giving up after %d attempts: %w", what, attempts, err)
}
