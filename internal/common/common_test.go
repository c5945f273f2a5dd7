package common

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserError(t *testing.T) {
	err := NewUserError("could not open statement", ErrNotFound)

	assert.Equal(t, "could not open statement: not found", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)

	var userErr *UserError
	require.ErrorAs(t, err, &userErr)
	assert.Equal(t, "could not open statement", userErr.UserMessage)

	assert.Equal(t, "plain", NewUserError("plain", nil).Error())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrRemoteUnavailable))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.True(t, IsRetryable(&RetryableError{Err: errors.New("flaky"), Retryable: true}))
	assert.False(t, IsRetryable(&RetryableError{Err: errors.New("bad"), Retryable: false}))
	assert.False(t, IsRetryable(ErrNotFound))
}

func TestWithRetry(t *testing.T) {
	opts := RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			if calls < 3 {
				return ErrRemoteUnavailable
			}
			return nil
		}, opts)
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on non-retryable error", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			return &RetryableError{Err: errors.New("bad request"), Retryable: false}
		}, opts)
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			return ErrRemoteUnavailable
		}, opts)
		require.ErrorIs(t, err, ErrMaxRetries)
		assert.ErrorIs(t, err, ErrRemoteUnavailable)
		assert.Equal(t, 3, calls)
	})
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, slog.LevelInfo, "json")
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("parsed statement", "rows", 3)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"rows":3`)

	_, err = NewLogger(&buf, slog.LevelInfo, "xml")
	assert.Error(t, err)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
