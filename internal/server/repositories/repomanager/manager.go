// Package repomanager vends repository implementations bound to a database
// handle, so services can run the same code against a *sql.DB, an open
// transaction, or the in-memory backend used in tests.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/beyond/internal/dbx"
	"github.com/dmitrijs2005/beyond/internal/server/repositories/networks"
	"github.com/dmitrijs2005/beyond/internal/server/repositories/users"
	"github.com/dmitrijs2005/beyond/internal/server/repositories/volumes"
)

// RepositoryManager binds repositories to a DBTX and exposes the schema
// migration hook.
type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	Networks(db dbx.DBTX) networks.Repository
	Volumes(db dbx.DBTX) volumes.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
