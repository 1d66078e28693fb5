package services

import (
	"fmt"

	"github.com/navhub/navhub/internal/common"
)

// LockedError is returned when the lockout window is still in effect.
// RetryAfterMinutes is the remaining window in whole minutes, rounded up.
// Matches common.ErrorAccountLocked via errors.Is.
type LockedError struct {
	RetryAfterMinutes int
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked, retry in %d minutes", e.RetryAfterMinutes)
}

func (e *LockedError) Unwrap() error { return common.ErrorAccountLocked }

// InvalidCredentialsError is returned for a wrong password on an existing
// account. RemainingAttempts is the post-increment count left before
// lockout; JustLocked reports that this failure exhausted the budget.
// An unknown username yields the bare common.ErrorInvalidCredentials
// sentinel instead, so the two cases stay indistinguishable in the
// user-facing message while known accounts still get attempt counters.
// Matches common.ErrorInvalidCredentials via errors.Is.
type InvalidCredentialsError struct {
	RemainingAttempts int
	JustLocked        bool
}

func (e *InvalidCredentialsError) Error() string {
	if e.JustLocked {
		return "invalid username or password: account locked"
	}
	return fmt.Sprintf("invalid username or password: %d attempts remaining", e.RemainingAttempts)
}

func (e *InvalidCredentialsError) Unwrap() error { return common.ErrorInvalidCredentials }
