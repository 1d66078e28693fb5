package models

import "time"

// SessionToken is a persistent, revocable login session. The token string is
// opaque and unguessable; validation requires a store lookup, which is what
// makes immediate revocation possible (unlike signed tokens).
//
// Tokens are soft-deleted: revocation, logout and expiry sweeps flip
// IsActive to false. Rows are hard-deleted only when the owning user is
// deleted (FK cascade).
type SessionToken struct {
	ID         string
	UserID     string
	Token      string
	DeviceInfo string
	UserAgent  string
	IPAddress  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	LastUsedAt time.Time
	IsActive   bool
}
