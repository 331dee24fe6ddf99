// Package rate implements the password-login throttle: per-key failure
// counters that lock the key for a cooldown once a threshold is reached.
package rate

import (
	"context"
	"time"
)

// Policy configures the throttle.
type Policy struct {
	// MaxAttempts is the number of consecutive failures that locks the key.
	MaxAttempts int
	// Cooldown is how long a key stays locked.
	Cooldown time.Duration
	// Window is how long a failure is remembered. A failure older than
	// Window no longer counts toward MaxAttempts.
	Window time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 5, Cooldown: time.Minute, Window: time.Minute}
}

// ttl is how long a record must be kept.
func (p Policy) ttl() time.Duration {
	if p.Cooldown > p.Window {
		return p.Cooldown
	}
	return p.Window
}

// State is the counter for one key at a point in time.
type State struct {
	Failures    int
	LastFailure time.Time
	LockedUntil time.Time
}

// Locked reports whether the key is locked at now.
func (s State) Locked(now time.Time) bool {
	return !s.LockedUntil.IsZero() && now.Before(s.LockedUntil)
}

// normalize applies expiry rules: an expired lock clears the record and an
// unlocked record with a stale last failure starts over.
func (s State) normalize(now time.Time, p Policy) State {
	if !s.LockedUntil.IsZero() && !now.Before(s.LockedUntil) {
		return State{}
	}
	if s.LockedUntil.IsZero() && !s.LastFailure.IsZero() && now.Sub(s.LastFailure) > p.Window {
		return State{}
	}
	return s
}

// Store persists counters. Fail must be atomic per key.
type Store interface {
	Get(ctx context.Context, key string, now time.Time, p Policy) (State, error)
	// Fail records one failure and locks the key when the count reaches
	// p.MaxAttempts. A locked key is returned unchanged.
	Fail(ctx context.Context, key string, now time.Time, p Policy) (State, error)
	Reset(ctx context.Context, key string) error
}

// applyFailure is the transition shared by the stores.
func applyFailure(s State, now time.Time, p Policy) State {
	s = s.normalize(now, p)
	if s.Locked(now) {
		return s
	}
	s.Failures++
	s.LastFailure = now
	if s.Failures >= p.MaxAttempts {
		s.LockedUntil = now.Add(p.Cooldown)
	}
	return s
}
