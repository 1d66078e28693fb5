package auth

import (
	"math"
	"time"
)

const (
	// MaxFailedAttempts is the number of consecutive failures that locks an
	// account.
	MaxFailedAttempts = 5

	// LockDuration is the fixed lockout window, counted from the failure
	// that pushed the counter to MaxFailedAttempts.
	LockDuration = time.Hour
)

// LockoutOutcome classifies the state of an account at the moment a login
// attempt is evaluated.
type LockoutOutcome int

const (
	// LockoutAllowed: no lock in effect, the attempt may proceed.
	LockoutAllowed LockoutOutcome = iota

	// LockoutLocked: the lock window has not elapsed, refuse the attempt.
	LockoutLocked

	// LockoutAllowedAfterAutoUnlock: a previous lock has elapsed; the
	// caller must reset the counter and lock timestamp before proceeding.
	LockoutAllowedAfterAutoUnlock
)

// LockoutDecision is the result of evaluating the lockout policy. Remaining
// is only meaningful for LockoutLocked and holds the time left in the lock
// window.
type LockoutDecision struct {
	Outcome   LockoutOutcome
	Remaining time.Duration
}

// EvaluateLockout is a pure function of the lock state read from the user
// record. It never mutates anything; the caller applies the implied state
// change (counter reset on auto-unlock) against the same read of the record,
// inside the transaction that serializes counter mutation for the user.
func EvaluateLockout(now time.Time, failedAttempts int, lockedUntil *time.Time) LockoutDecision {
	if lockedUntil == nil {
		return LockoutDecision{Outcome: LockoutAllowed}
	}
	if lockedUntil.After(now) {
		return LockoutDecision{Outcome: LockoutLocked, Remaining: lockedUntil.Sub(now)}
	}
	if failedAttempts >= MaxFailedAttempts {
		return LockoutDecision{Outcome: LockoutAllowedAfterAutoUnlock}
	}
	return LockoutDecision{Outcome: LockoutAllowed}
}

// RemainingAttempts returns the user-facing count of attempts left, computed
// after the failed attempt was recorded.
func RemainingAttempts(failedAttempts int) int {
	if r := MaxFailedAttempts - failedAttempts; r > 0 {
		return r
	}
	return 0
}

// RetryAfterMinutes converts the remaining lock window into whole minutes,
// rounded up so a few seconds still read as "1 minute".
func RetryAfterMinutes(remaining time.Duration) int {
	return int(math.Ceil(remaining.Minutes()))
}
