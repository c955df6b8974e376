package cache

import (
	"errors"
	"sync"
	"time"
)

// BreakerState is the state of a store's I/O breaker.
type BreakerState int

const (
	// BreakerClosed means items are read and written normally.
	BreakerClosed BreakerState = iota
	// BreakerOpen means GetOrCompute bypasses the disk.
	BreakerOpen
	// BreakerHalfOpen means one call is probing whether the disk recovered.
	BreakerHalfOpen
)

// String returns the string representation of the state.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures the I/O breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive filesystem failures that open
	// the breaker. Negative disables the breaker.
	// Default: 5
	MaxFailures int

	// Cooldown is how long the breaker stays open before a trial call.
	// Default: 30 seconds
	Cooldown time.Duration
}

const (
	defaultBreakerFailures = 5
	defaultBreakerCooldown = 30 * time.Second
)

// breaker tracks consecutive filesystem failures. Codec errors are not
// counted; a corrupt item says nothing about the disk.
type breaker struct {
	maxFailures int
	cooldown    time.Duration
	clock       Clock
	onChange    func(from, to BreakerState)

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool
}

func newBreaker(cfg BreakerConfig, clock Clock, onChange func(from, to BreakerState)) *breaker {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = defaultBreakerFailures
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaultBreakerCooldown
	}
	return &breaker{
		maxFailures: cfg.MaxFailures,
		cooldown:    cfg.Cooldown,
		clock:       clock,
		onChange:    onChange,
	}
}

func (b *breaker) disabled() bool {
	return b.maxFailures < 0
}

// allow reports whether the caller may touch the disk. In half-open state
// only the first caller is admitted and must call done.
func (b *breaker) allow() bool {
	if b.disabled() {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentLocked() {
	case BreakerOpen:
		return false
	case BreakerHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
	}
	return true
}

// done releases a half-open trial call that recorded nothing.
func (b *breaker) done() {
	if b.disabled() {
		return
	}
	b.mu.Lock()
	b.probing = false
	b.mu.Unlock()
}

// record registers the result of a filesystem operation. Errors that are
// not filesystem failures are ignored.
func (b *breaker) record(err error) {
	if b.disabled() || (err != nil && !isIOFailure(err)) {
		return
	}
	b.mu.Lock()
	from := b.state
	switch {
	case err == nil:
		b.failures = 0
		b.state = BreakerClosed
	case b.state == BreakerHalfOpen:
		b.state = BreakerOpen
		b.openedAt = b.clock.Now()
	default:
		b.failures++
		if b.failures >= b.maxFailures && b.state == BreakerClosed {
			b.state = BreakerOpen
			b.openedAt = b.clock.Now()
		}
	}
	to := b.state
	b.mu.Unlock()

	if from != to && b.onChange != nil {
		b.onChange(from, to)
	}
}

// State returns the current state.
func (b *breaker) State() BreakerState {
	if b.disabled() {
		return BreakerClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentLocked()
}

func (b *breaker) currentLocked() BreakerState {
	if b.state == BreakerOpen && b.clock.Now().Sub(b.openedAt) >= b.cooldown {
		b.state = BreakerHalfOpen
		b.probing = false
	}
	return b.state
}

func isIOFailure(err error) bool {
	return !errors.Is(err, ErrNotFound) &&
		!errors.Is(err, ErrSerialization) &&
		!errors.Is(err, ErrDeserialization)
}
