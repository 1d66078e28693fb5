package models

import "time"

// User is a credential record. FailedAttempts and LockedUntil carry the
// brute-force lockout state: after five consecutive failures LockedUntil is
// set one hour into the future, and both fields are cleared on the next
// successful login or on the first attempt after the lock has elapsed.
type User struct {
	ID             string
	UserName       string
	Email          string
	PasswordHash   string
	IsActive       bool
	IsAdmin        bool
	FailedAttempts int
	LockedUntil    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
