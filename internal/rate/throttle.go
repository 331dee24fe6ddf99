package rate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dropDatabas3/socialauth/internal/observability/logger"
)

// ErrLocked matches every *LockedError.
var ErrLocked = errors.New("too many login attempts")

// LockedError reports a locked throttle key.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%s, retry in %ds", ErrLocked.Error(), int(e.RetryAfter.Seconds()))
}

func (e *LockedError) Unwrap() error { return ErrLocked }

// Throttle gates password logins per key.
type Throttle struct {
	store  Store
	policy Policy
	now    func() time.Time

	// OnLock, if set, is called when a failure locks a key.
	OnLock func()
}

func NewThrottle(store Store, policy Policy) *Throttle {
	def := DefaultPolicy()
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = def.MaxAttempts
	}
	if policy.Cooldown <= 0 {
		policy.Cooldown = def.Cooldown
	}
	if policy.Window <= 0 {
		policy.Window = def.Window
	}
	return &Throttle{store: store, policy: policy, now: time.Now}
}

// Key derives the throttle key for an identifier and client IP. The
// identifier is hashed so raw emails never reach the counter store.
func Key(identifier, ip string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(identifier)) + "|" + ip))
	return "login:" + hex.EncodeToString(sum[:16])
}

// Check returns a *LockedError while key is locked. A store failure is
// logged and lets the attempt through.
func (t *Throttle) Check(ctx context.Context, key string) error {
	now := t.now()
	s, err := t.store.Get(ctx, key, now, t.policy)
	if err != nil {
		logger.From(ctx).Warn("throttle store unavailable, allowing attempt",
			logger.Component("throttle"), logger.ThrottleKey(key), logger.Err(err))
		return nil
	}
	if s.Locked(now) {
		return &LockedError{RetryAfter: retryAfter(s.LockedUntil.Sub(now))}
	}
	return nil
}

// Fail records a failed attempt.
func (t *Throttle) Fail(ctx context.Context, key string) (State, error) {
	now := t.now()
	s, err := t.store.Fail(ctx, key, now, t.policy)
	if err != nil {
		logger.From(ctx).Warn("throttle failure not recorded",
			logger.Component("throttle"), logger.ThrottleKey(key), logger.Err(err))
		return State{}, err
	}
	// LastFailure is only advanced by a counted failure
	if s.Locked(now) && s.LastFailure.UnixMilli() == now.UnixMilli() && t.OnLock != nil {
		t.OnLock()
	}
	return s, nil
}

// Reset clears the key after a successful login.
func (t *Throttle) Reset(ctx context.Context, key string) error {
	if err := t.store.Reset(ctx, key); err != nil {
		logger.From(ctx).Warn("throttle reset failed",
			logger.Component("throttle"), logger.ThrottleKey(key), logger.Err(err))
		return err
	}
	return nil
}

// retryAfter rounds up to whole seconds, minimum one.
func retryAfter(d time.Duration) time.Duration {
	secs := math.Ceil(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}

// WithClock replaces the time source. Used by tests and by callers that
// need a shared clock.
func (t *Throttle) WithClock(now func() time.Time) *Throttle {
	t.now = now
	return t
}
