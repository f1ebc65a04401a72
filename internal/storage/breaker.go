package storage

import (
	"sync"
	"time"
)

const (
	// DefaultFailureThreshold is the consecutive-failure count that opens the breaker.
	DefaultFailureThreshold = 5
	// DefaultCooldown is how long an open breaker rejects connection attempts.
	DefaultCooldown = 2 * time.Minute
)

// Breaker is the circuit-breaker state shared by every connection [Manager].
//
// It is an injected dependency rather than package state so tests can
// substitute their own instance. Connection failures anywhere trip the
// breaker for every manager holding the same instance.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	failures  int
	open      bool
	reopensAt time.Time
	now       func() time.Time
}

// NewBreaker creates a closed breaker.
// Non-positive threshold or cooldown fall back to the defaults.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Breaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

// Allow reports whether a connection attempt may proceed.
// Returns a *CircuitOpenError while the breaker is open. Once the reopen
// time passes, the breaker silently resets to closed.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return nil
	}
	if b.now().Before(b.reopensAt) {
		return &CircuitOpenError{ReopensAt: b.reopensAt}
	}

	b.open = false
	b.failures = 0
	return nil
}

// RecordFailure registers one exhausted connection attempt, opening the
// breaker when the consecutive-failure threshold is reached.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.failures >= b.threshold && !b.open {
		b.open = true
		b.reopensAt = b.now().Add(b.cooldown)
	}
}

// RecordSuccess resets the consecutive-failure counter.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.open = false
}

// Failures returns the current consecutive-failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// IsOpen reports whether the breaker is currently rejecting attempts.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open && b.now().Before(b.reopensAt)
}
