// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quickRetry(retries int) RetryConfig {
	return RetryConfig{
		MaxRetries:      retries,
		InitialInterval: time.Millisecond,
		MaxInterval:     4 * time.Millisecond,
		Multiplier:      2,
	}
}

func TestRetryWithBackoff(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   bool
	}{
		{"first attempt succeeds", nil, 1, false},
		{"transient then success", []error{NewTransientError("503", nil), NewTransientError("503", nil)}, 3, false},
		{"permanent stops at once", []error{NewPermanentError("bad key", nil)}, 1, true},
		{"retries exhausted", []error{
			NewTransientError("a", nil), NewTransientError("b", nil),
			NewTransientError("c", nil), NewTransientError("d", nil),
		}, 3, true},
		{"open breaker is not retried", []error{&OpenError{Name: "gemini"}}, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := RetryWithBackoff(context.Background(), quickRetry(2), func(ctx context.Context) error {
				calls++
				if calls <= len(tt.errs) {
					return tt.errs[calls-1]
				}
				return nil
			})
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRetryWithBackoff_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := quickRetry(5)
	cfg.InitialInterval = time.Hour
	cfg.MaxInterval = time.Hour

	calls := 0
	err := RetryWithBackoff(ctx, cfg, func(ctx context.Context) error {
		calls++
		cancel()
		return NewTransientError("timeout", nil)
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_MaxElapsedTime(t *testing.T) {
	cfg := quickRetry(10)
	cfg.InitialInterval = 50 * time.Millisecond
	cfg.MaxInterval = 50 * time.Millisecond
	cfg.MaxElapsedTime = 20 * time.Millisecond

	calls := 0
	err := RetryWithBackoff(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		return NewTransientError("slow", nil)
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls, "the next delay would pass the budget")
}

func TestRetryWithBackoff_OnRetry(t *testing.T) {
	var attempts []int
	cfg := quickRetry(2)
	cfg.OnRetry = func(attempt int, err error) {
		attempts = append(attempts, attempt)
		assert.Error(t, err)
	}
	_ = RetryWithBackoff(context.Background(), cfg, func(ctx context.Context) error {
		return NewTransientError("down", nil)
	})
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestRetryWithResult(t *testing.T) {
	calls := 0
	got, err := RetryWithResult(context.Background(), quickRetry(2), func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", NewTransientError("503", nil)
		}
		return `{"score": 0.8}`, nil
	})
	require.NoError(t, err)
	assert.Equal(t, `{"score": 0.8}`, got)
}

func TestRemoteModelRetryConfig(t *testing.T) {
	cfg := RemoteModelRetryConfig()
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.LessOrEqual(t, cfg.MaxElapsedTime, 30*time.Second)
	assert.True(t, cfg.Jitter)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(NewTransientError("x", nil)))
	assert.False(t, IsRetryable(NewPermanentError("x", nil)))
	assert.False(t, IsRetryable(context.Canceled))
	assert.True(t, IsRetryable(errors.Join(errors.New("generate"), context.DeadlineExceeded)))
}

func TestErrorTypeString(t *testing.T) {
	assert.Equal(t, "RateLimit", ErrorTypeRateLimit.String())
	assert.Equal(t, "ErrorType(99)", ErrorType(99).String())
}
