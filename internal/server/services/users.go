package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/navhub/navhub/internal/common"
	"github.com/navhub/navhub/internal/logging"
	"github.com/navhub/navhub/internal/server/auth"
	"github.com/navhub/navhub/internal/server/config"
	"github.com/navhub/navhub/internal/server/models"
	"github.com/navhub/navhub/internal/server/repositories/repomanager"
)

// bootstrapAdminName is the seeded administrator account, protected from
// deactivation and deletion.
const bootstrapAdminName = "admin"

// UserUpdate carries a partial user update; nil fields are left unchanged.
type UserUpdate struct {
	Email    *string
	Password *string
	IsActive *bool
	IsAdmin  *bool
}

// UserService handles user lifecycle: registration, lookup, updates and
// deletion with ownership/privilege rules.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *auth.Hasher
	logger      logging.Logger
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, l logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      auth.NewHasher(cfg.BcryptCost),
		logger:      l.With("module", "user_service"),
	}
}

// Register creates a new non-admin user. Username and email must both be
// globally unique; a clash yields ErrorAlreadyExists. The unique
// constraints in the store remain the backstop for races.
func (s *UserService) Register(ctx context.Context, userName, email, password string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	if _, err := repo.GetByUserName(ctx, userName); err == nil {
		return nil, common.ErrorAlreadyExists
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrorInternal
	}
	if _, err := repo.GetByEmail(ctx, email); err == nil {
		return nil, common.ErrorAlreadyExists
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrorInternal
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{
		ID:           uuid.NewString(),
		UserName:     userName,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		IsAdmin:      false,
	}
	created, err := repo.Create(ctx, user)
	if err != nil {
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "user registered", "username", userName)
	return created, nil
}

// Get returns a user by id. Non-admin callers may only look at themselves.
func (s *UserService) Get(ctx context.Context, caller *models.User, id string) (*models.User, error) {
	if !caller.IsAdmin && caller.ID != id {
		return nil, common.ErrorForbidden
	}
	user, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	return user, nil
}

// List returns all users for admins; everyone else sees only themselves.
func (s *UserService) List(ctx context.Context, caller *models.User) ([]*models.User, error) {
	if !caller.IsAdmin {
		return []*models.User{caller}, nil
	}
	list, err := s.repomanager.Users(s.db).List(ctx)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return list, nil
}

// Update applies a partial update under the ownership rules: non-admins may
// only update themselves and may not grant admin; the bootstrap admin
// account cannot be deactivated; a password change is rehashed.
func (s *UserService) Update(ctx context.Context, caller *models.User, id string, upd UserUpdate) (*models.User, error) {
	if !caller.IsAdmin && caller.ID != id {
		return nil, common.ErrorForbidden
	}
	if !caller.IsAdmin && upd.IsAdmin != nil {
		return nil, common.ErrorForbidden
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}

	if upd.IsActive != nil && !*upd.IsActive && user.UserName == bootstrapAdminName {
		return nil, common.ErrorForbidden
	}

	if upd.Email != nil {
		user.Email = *upd.Email
	}
	if upd.IsActive != nil {
		user.IsActive = *upd.IsActive
	}
	if upd.IsAdmin != nil {
		user.IsAdmin = *upd.IsAdmin
	}

	if err := repo.Update(ctx, user); err != nil {
		return nil, common.ErrorInternal
	}

	if upd.Password != nil {
		hash, err := s.hasher.Hash(*upd.Password)
		if err != nil {
			return nil, common.ErrorInternal
		}
		if err := repo.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
			return nil, common.ErrorInternal
		}
		user.PasswordHash = hash
	}

	return user, nil
}

// Delete removes a user. Admin only; self-deletion and deleting the
// bootstrap admin are refused. The user's session tokens are destroyed with
// the row by the store's cascade rule.
func (s *UserService) Delete(ctx context.Context, caller *models.User, id string) error {
	if !caller.IsAdmin {
		return common.ErrorForbidden
	}
	if caller.ID == id {
		return common.ErrorForbidden
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}
	if user.UserName == bootstrapAdminName {
		return common.ErrorForbidden
	}

	if err := repo.Delete(ctx, id); err != nil {
		return common.ErrorInternal
	}

	s.logger.Info(ctx, "user deleted", "username", user.UserName)
	return nil
}
