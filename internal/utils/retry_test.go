package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	out, err := Retry(context.Background(), fastRetry(), func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 1, calls)
}

func TestRetry_RetriesRetryableErrors(t *testing.T) {
	calls := 0
	out, err := Retry(context.Background(), fastRetry(), func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, E(CodeUnavailable, "test", "transient", nil)
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, out)
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsOnNonRetryableError(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastRetry(), func(context.Context) (int, error) {
		calls++
		return 0, E(CodeInvalidArgument, "test", "bad input", nil)
	})

	require.Error(t, err)
	assert.True(t, IsCode(err, CodeInvalidArgument))
	assert.Equal(t, 1, calls)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastRetry(), func(context.Context) (int, error) {
		calls++
		return 0, E(CodeTimeout, "test", "still timing out", nil)
	})

	require.Error(t, err)
	assert.True(t, IsCode(err, CodeTimeout))
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := Retry(ctx, RetryConfig{MaxAttempts: 5, BaseDelay: time.Hour}, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, E(CodeUnavailable, "test", "transient", nil)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetry_ZeroConfigUsesDefaults(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), RetryConfig{}, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("plain errors are not retryable")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
