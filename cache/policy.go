package cache

import (
	"fmt"
	"time"
)

// DefaultMaxAge is the expiry applied by DefaultPolicy: one week.
const DefaultMaxAge = 7 * 24 * time.Hour

// Policy configures item expiry.
type Policy struct {
	// MaxAge is how long an item stays valid after its last write. Items
	// whose modification time precedes now-MaxAge are expired.
	MaxAge time.Duration
}

// DefaultPolicy returns the default expiry policy.
// MaxAge: 7 days
func DefaultPolicy() Policy {
	return Policy{MaxAge: DefaultMaxAge}
}

// Validate rejects non-positive max ages.
func (p Policy) Validate() error {
	if p.MaxAge <= 0 {
		return fmt.Errorf("%w: max age must be positive, got %s", ErrConfiguration, p.MaxAge)
	}
	return nil
}

// Threshold returns the modification time below which items are expired.
func (p Policy) Threshold(now time.Time) time.Time {
	return now.Add(-p.MaxAge)
}

// Expired reports whether an item modified at mtime is expired at now.
func (p Policy) Expired(mtime, now time.Time) bool {
	return mtime.Before(p.Threshold(now))
}

// Clock supplies the current time for expiry decisions.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now returns f().
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)
