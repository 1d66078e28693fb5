package repomanager

import (
	"context"
	"database/sql"

	"github.com/navhub/navhub/internal/dbx"
	"github.com/navhub/navhub/internal/server/repositories/sessions"
	"github.com/navhub/navhub/internal/server/repositories/users"
)

// RepositoryManager vends repository implementations bound to a DBTX, which
// lets services run the same repository code inside or outside a
// transaction.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
}
