package users

import (
	"context"
	"time"

	"github.com/navhub/navhub/internal/server/models"
)

// Repository is the credential store. Lock-state mutations are expressed as
// atomic single-row updates so concurrent login attempts against one account
// cannot lose counter increments.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUserName(ctx context.Context, userName string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePasswordHash(ctx context.Context, id string, hash string) error

	// Delete removes the user row; session tokens go with it via FK cascade.
	Delete(ctx context.Context, id string) error

	// IncrementFailedAttempts adds one to the counter and returns the new
	// value as observed by this statement.
	IncrementFailedAttempts(ctx context.Context, id string, now time.Time) (int, error)

	// LockUntil sets the lock timestamp unless one is already present, so a
	// burst of concurrent failures locks the account at most once.
	LockUntil(ctx context.Context, id string, until time.Time) error

	// ResetLockState zeroes the counter and clears the lock timestamp.
	ResetLockState(ctx context.Context, id string, now time.Time) error
}
