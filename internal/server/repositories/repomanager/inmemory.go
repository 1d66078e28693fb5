package repomanager

import (
	"context"
	"database/sql"

	"github.com/navhub/navhub/internal/dbx"
	"github.com/navhub/navhub/internal/server/repositories/sessions"
	"github.com/navhub/navhub/internal/server/repositories/users"
)

// InMemoryRepositoryManager vends map-backed repositories for tests and
// database-less runs. The DBTX argument is ignored; state lives in the
// manager itself.
type InMemoryRepositoryManager struct {
	users    *cascadingUsersRepository
	sessions *sessions.InMemoryRepository
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	s := sessions.NewInMemoryRepository()
	return &InMemoryRepositoryManager{
		users:    &cascadingUsersRepository{InMemoryRepository: users.NewInMemoryRepository(), sessions: s},
		sessions: s,
	}
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *InMemoryRepositoryManager) Users(dbx.DBTX) users.Repository { return m.users }

func (m *InMemoryRepositoryManager) Sessions(dbx.DBTX) sessions.Repository { return m.sessions }

// cascadingUsersRepository mirrors the SQL store's ON DELETE CASCADE:
// deleting a user hard-deletes their session tokens.
type cascadingUsersRepository struct {
	*users.InMemoryRepository
	sessions *sessions.InMemoryRepository
}

func (r *cascadingUsersRepository) Delete(ctx context.Context, id string) error {
	if err := r.InMemoryRepository.Delete(ctx, id); err != nil {
		return err
	}
	return r.sessions.DeleteAllForUser(ctx, id)
}
