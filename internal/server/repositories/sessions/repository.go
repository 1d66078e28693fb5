// Package sessions provides the persistent store for opaque session tokens:
// lookup on the hot validation path, soft-delete revocation, and the expiry
// sweep.
package sessions

import (
	"context"
	"time"

	"github.com/navhub/navhub/internal/server/models"
)

// Repository persists session tokens. "now" is always passed in by the
// caller so expiry comparisons are deterministic under test.
type Repository interface {
	Create(ctx context.Context, token *models.SessionToken) error

	// FindActive matches on the token string with is_active and an
	// unexpired expires_at; any mismatch is ErrorNotFound.
	FindActive(ctx context.Context, token string, now time.Time) (*models.SessionToken, error)

	// Touch records a successful validation. Hot write path: a single-row
	// update, no surrounding transaction needed.
	Touch(ctx context.Context, token string, now time.Time) error

	GetByID(ctx context.Context, id string) (*models.SessionToken, error)

	// ListActiveByUser returns the user's live sessions, most recently used
	// first.
	ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]*models.SessionToken, error)

	// ListActive returns every live session in the store, grouped by owner
	// and most recently used first within each owner.
	ListActive(ctx context.Context, now time.Time) ([]*models.SessionToken, error)

	// MostRecentActive returns the user's most recently used live session.
	MostRecentActive(ctx context.Context, userID string, now time.Time) (*models.SessionToken, error)

	// Deactivate soft-deletes by token string. ErrorNotFound when the token
	// is unknown or already inactive.
	Deactivate(ctx context.Context, token string) error

	// DeactivateByID soft-deletes by row id. A non-empty scopeUserID
	// restricts the operation to tokens owned by that user; tokens outside
	// the scope read as ErrorNotFound rather than Forbidden so existence
	// does not leak.
	DeactivateByID(ctx context.Context, id string, scopeUserID string) error

	DeactivateAllForUser(ctx context.Context, userID string) error

	// SweepExpired bulk-deactivates every token past its expiry and returns
	// the number of rows affected.
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}
