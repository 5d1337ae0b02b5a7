package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRetryPolicySucceedsAfterFailures(t *testing.T) {
	calls := 0
	policy := RetryPolicy{Attempts: 5, Delay: time.Millisecond}

	err := policy.Run(context.Background(), zap.NewNop(), "postgres", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicyGivesUp(t *testing.T) {
	calls := 0
	cause := errors.New("connection refused")
	policy := RetryPolicy{Attempts: 5, Delay: time.Millisecond}

	err := policy.Run(context.Background(), zap.NewNop(), "postgres", func(context.Context) error {
		calls++
		return cause
	})

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "giving up after 5 attempts")
	assert.Equal(t, 5, calls)
}

func TestRetryPolicyStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	policy := RetryPolicy{Attempts: 5, Delay: time.Hour}

	err := policy.Run(ctx, zap.NewNop(), "postgres", func(context.Context) error {
		calls++
		cancel()
		return errors.New("connection refused")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicyZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	err := RetryPolicy{}.Run(context.Background(), zap.NewNop(), "postgres", func(context.Context) error {
		calls++
		return errors.New("boom")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
