package users

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/navhub/navhub/internal/common"
	"github.com/navhub/navhub/internal/server/models"
)

// InMemoryRepository is a mutex-guarded map-backed credential store. It
// honors the same atomicity contract as the SQL implementation: counter
// mutations happen under one lock acquisition, so concurrent failed logins
// cannot lose updates. Used by tests and database-less runs.
type InMemoryRepository struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{users: make(map[string]*models.User)}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	if u.LockedUntil != nil {
		t := *u.LockedUntil
		c.LockedUntil = &t
	}
	return &c
}

func (r *InMemoryRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.UserName == user.UserName || u.Email == user.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = cloneUser(user)
	return user, nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, common.ErrorNotFound
}

func (r *InMemoryRepository) GetByUserName(_ context.Context, userName string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.UserName == userName {
			return cloneUser(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *InMemoryRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *InMemoryRepository) List(_ context.Context) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*models.User, 0, len(r.users))
	for _, u := range r.users {
		result = append(result, cloneUser(u))
	}
	// stable order for callers that display the list
	sort.Slice(result, func(i, j int) bool { return result[i].UserName < result[j].UserName })
	return result, nil
}

func (r *InMemoryRepository) Update(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[user.ID]
	if !ok {
		return common.ErrorNotFound
	}
	stored.UserName = user.UserName
	stored.Email = user.Email
	stored.IsActive = user.IsActive
	stored.IsAdmin = user.IsAdmin
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemoryRepository) UpdatePasswordHash(_ context.Context, id string, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	stored.PasswordHash = hash
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *InMemoryRepository) IncrementFailedAttempts(_ context.Context, id string, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[id]
	if !ok {
		return 0, common.ErrorNotFound
	}
	stored.FailedAttempts++
	stored.UpdatedAt = now.UTC()
	return stored.FailedAttempts, nil
}

func (r *InMemoryRepository) LockUntil(_ context.Context, id string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	if stored.LockedUntil == nil {
		u := until.UTC()
		stored.LockedUntil = &u
	}
	return nil
}

func (r *InMemoryRepository) ResetLockState(_ context.Context, id string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	stored.FailedAttempts = 0
	stored.LockedUntil = nil
	stored.UpdatedAt = now.UTC()
	return nil
}
