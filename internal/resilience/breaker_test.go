// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int) (*Breaker, *fakeClock, *[]string) {
	var changes []string
	clock := &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	b := NewBreaker(BreakerConfig{
		Name:             "gemini",
		FailureThreshold: threshold,
		Cooldown:         time.Minute,
		OnStateChange: func(name string, from, to State) {
			changes = append(changes, fmt.Sprintf("%s:%s->%s", name, from, to))
		},
	})
	b.now = clock.now
	return b, clock, &changes
}

func fail(ctx context.Context) error    { return NewTransientError("503 service unavailable", nil) }
func succeed(ctx context.Context) error { return nil }

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b, clock, changes := newTestBreaker(3)

	_ = b.Execute(context.Background(), fail)
	_ = b.Execute(context.Background(), fail)
	require.NoError(t, b.Execute(context.Background(), succeed), "a success resets the count")
	_ = b.Execute(context.Background(), fail)
	_ = b.Execute(context.Background(), fail)
	assert.Equal(t, StateClosed, b.State())

	_ = b.Execute(context.Background(), fail)
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Execute(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.False(t, called)
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.ErrorIs(t, fmt.Errorf("gemini judge: %w", err), ErrBreakerOpen)

	var open *OpenError
	require.True(t, errors.As(err, &open))
	assert.Equal(t, clock.t.Add(time.Minute), open.RetryAt)
	assert.Equal(t, []string{"gemini:closed->open"}, *changes)
}

func TestBreakerIgnoresPermanentErrors(t *testing.T) {
	b, _, _ := newTestBreaker(1)
	for i := 0; i < 3; i++ {
		err := b.Execute(context.Background(), func(ctx context.Context) error {
			return NewPermanentError("API key not valid", nil)
		})
		assert.Error(t, err)
	}
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerTrialCallRecovers(t *testing.T) {
	b, clock, changes := newTestBreaker(1)
	_ = b.Execute(context.Background(), fail)
	require.Equal(t, StateOpen, b.State())

	clock.advance(59 * time.Second)
	assert.ErrorIs(t, b.Execute(context.Background(), succeed), ErrBreakerOpen)

	clock.advance(time.Second)
	require.NoError(t, b.Execute(context.Background(), succeed))
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, []string{
		"gemini:closed->open",
		"gemini:open->half-open",
		"gemini:half-open->closed",
	}, *changes)
}

func TestBreakerFailedTrialReopens(t *testing.T) {
	b, clock, _ := newTestBreaker(2)
	_ = b.Execute(context.Background(), fail)
	_ = b.Execute(context.Background(), fail)
	clock.advance(time.Minute)

	_ = b.Execute(context.Background(), fail)
	assert.Equal(t, StateOpen, b.State(), "one failed trial call is enough")

	err := b.Execute(context.Background(), succeed)
	var open *OpenError
	require.True(t, errors.As(err, &open))
	assert.Equal(t, clock.t.Add(time.Minute), open.RetryAt, "cooldown restarts at the trial call")
}

func TestBreakerSingleTrialCall(t *testing.T) {
	b, clock, _ := newTestBreaker(1)
	_ = b.Execute(context.Background(), fail)
	clock.advance(time.Minute)

	err := b.Execute(context.Background(), func(ctx context.Context) error {
		assert.Equal(t, StateHalfOpen, b.State())
		// a second worker arriving while the trial call runs is turned away
		assert.ErrorIs(t, b.Execute(ctx, succeed), ErrBreakerOpen)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateClosed, b.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "State(7)", State(7).String())
}
