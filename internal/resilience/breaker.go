// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// State is the position of a Breaker
type State int

const (
	StateClosed   State = iota // calls go through
	StateOpen                  // calls are rejected until the cooldown ends
	StateHalfOpen              // one trial call decides
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrBreakerOpen is wrapped by every rejection from an open breaker
var ErrBreakerOpen = errors.New("circuit breaker open")

// OpenError reports a call rejected without reaching the remote service
type OpenError struct {
	Name    string
	RetryAt time.Time
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("%s: circuit breaker open until %s", e.Name, e.RetryAt.Format(time.RFC3339))
}

func (e *OpenError) Unwrap() error { return ErrBreakerOpen }

// BreakerConfig tunes a Breaker
type BreakerConfig struct {
	Name string

	// FailureThreshold consecutive failures open the breaker
	FailureThreshold int

	// Cooldown is how long an open breaker rejects calls before a trial call
	Cooldown time.Duration

	// IsFailure decides which errors count; nil counts retryable errors only,
	// so a bad API key never trips the breaker
	IsFailure func(error) bool

	// OnStateChange is called with the breaker lock held; it must not call
	// back into the breaker
	OnStateChange func(name string, from, to State)
}

// JudgeBreakerConfig is tuned for the remote fallback judge: a batch should
// stop paying for timeouts quickly and try again after half a minute.
func JudgeBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
	}
}

// Breaker stops calling a failing remote service. It is safe for
// concurrent use by every worker of a batch.
type Breaker struct {
	cfg BreakerConfig
	now func() time.Time

	mu           sync.Mutex
	state        State
	failures     int
	openedAt     time.Time
	trialRunning bool
}

// NewBreaker creates a closed breaker
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 1
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = IsRetryable
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// Execute runs fn unless the breaker is open
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	trial, err := b.allow()
	if err != nil {
		return err
	}
	err = fn(ctx)
	b.record(trial, err)
	return err
}

// State returns the current position
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) allow() (trial bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		retryAt := b.openedAt.Add(b.cfg.Cooldown)
		if b.now().Before(retryAt) {
			return false, &OpenError{Name: b.cfg.Name, RetryAt: retryAt}
		}
		b.setState(StateHalfOpen)
		b.trialRunning = true
		return true, nil
	case StateHalfOpen:
		if b.trialRunning {
			return false, &OpenError{Name: b.cfg.Name, RetryAt: b.now()}
		}
		b.trialRunning = true
		return true, nil
	}
	return false, nil
}

func (b *Breaker) record(trial bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if trial {
		b.trialRunning = false
	}
	if !b.cfg.IsFailure(err) {
		b.failures = 0
		if trial {
			b.setState(StateClosed)
		}
		return
	}

	b.failures++
	if trial || (b.state == StateClosed && b.failures >= b.cfg.FailureThreshold) {
		b.openedAt = b.now()
		b.setState(StateOpen)
	}
}

func (b *Breaker) setState(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.cfg.Name, from, to)
	}
}
