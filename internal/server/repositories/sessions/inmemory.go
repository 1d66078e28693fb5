package sessions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/navhub/navhub/internal/common"
	"github.com/navhub/navhub/internal/server/models"
)

// InMemoryRepository is a mutex-guarded map-backed session store with the
// same soft-delete and ordering semantics as the SQL implementation. Used by
// tests and database-less runs.
type InMemoryRepository struct {
	mu     sync.Mutex
	byID   map[string]*models.SessionToken
	tokens map[string]string // token string -> id
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:   make(map[string]*models.SessionToken),
		tokens: make(map[string]string),
	}
}

func cloneToken(t *models.SessionToken) *models.SessionToken {
	c := *t
	return &c
}

func (r *InMemoryRepository) Create(_ context.Context, token *models.SessionToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[token.Token]; ok {
		return common.ErrorAlreadyExists
	}
	r.byID[token.ID] = cloneToken(token)
	r.tokens[token.Token] = token.ID
	return nil
}

func (r *InMemoryRepository) findActiveLocked(token string, now time.Time) *models.SessionToken {
	id, ok := r.tokens[token]
	if !ok {
		return nil
	}
	st := r.byID[id]
	if st == nil || !st.IsActive || !st.ExpiresAt.After(now) {
		return nil
	}
	return st
}

func (r *InMemoryRepository) FindActive(_ context.Context, token string, now time.Time) (*models.SessionToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st := r.findActiveLocked(token, now); st != nil {
		return cloneToken(st), nil
	}
	return nil, common.ErrorNotFound
}

func (r *InMemoryRepository) Touch(_ context.Context, token string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.tokens[token]; ok {
		if st := r.byID[id]; st != nil {
			st.LastUsedAt = now
		}
	}
	return nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id string) (*models.SessionToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.byID[id]; ok {
		return cloneToken(st), nil
	}
	return nil, common.ErrorNotFound
}

func (r *InMemoryRepository) ListActiveByUser(_ context.Context, userID string, now time.Time) ([]*models.SessionToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.SessionToken
	for _, st := range r.byID {
		if st.UserID == userID && st.IsActive && st.ExpiresAt.After(now) {
			result = append(result, cloneToken(st))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastUsedAt.After(result[j].LastUsedAt)
	})
	return result, nil
}

func (r *InMemoryRepository) ListActive(_ context.Context, now time.Time) ([]*models.SessionToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.SessionToken
	for _, st := range r.byID {
		if st.IsActive && st.ExpiresAt.After(now) {
			result = append(result, cloneToken(st))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].UserID != result[j].UserID {
			return result[i].UserID < result[j].UserID
		}
		return result[i].LastUsedAt.After(result[j].LastUsedAt)
	})
	return result, nil
}

func (r *InMemoryRepository) MostRecentActive(ctx context.Context, userID string, now time.Time) (*models.SessionToken, error) {
	list, err := r.ListActiveByUser(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, common.ErrorNotFound
	}
	return list[0], nil
}

func (r *InMemoryRepository) Deactivate(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.tokens[token]
	if !ok {
		return common.ErrorNotFound
	}
	st := r.byID[id]
	if st == nil || !st.IsActive {
		return common.ErrorNotFound
	}
	st.IsActive = false
	return nil
}

func (r *InMemoryRepository) DeactivateByID(_ context.Context, id string, scopeUserID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.byID[id]
	if !ok || !st.IsActive {
		return common.ErrorNotFound
	}
	if scopeUserID != "" && st.UserID != scopeUserID {
		return common.ErrorNotFound
	}
	st.IsActive = false
	return nil
}

func (r *InMemoryRepository) DeactivateAllForUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, st := range r.byID {
		if st.UserID == userID {
			st.IsActive = false
		}
	}
	return nil
}

func (r *InMemoryRepository) SweepExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, st := range r.byID {
		if st.IsActive && st.ExpiresAt.Before(now) {
			st.IsActive = false
			n++
		}
	}
	return n, nil
}

// DeleteAllForUser hard-deletes a user's tokens, mirroring the FK cascade
// that fires in the SQL store when the owning user row is deleted.
func (r *InMemoryRepository) DeleteAllForUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, st := range r.byID {
		if st.UserID == userID {
			delete(r.tokens, st.Token)
			delete(r.byID, id)
		}
	}
	return nil
}
