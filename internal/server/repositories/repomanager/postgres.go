package repomanager

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/beyond/internal/dbx"
	"github.com/dmitrijs2005/beyond/internal/server/migrations"
	"github.com/dmitrijs2005/beyond/internal/server/repositories/networks"
	"github.com/dmitrijs2005/beyond/internal/server/repositories/users"
	"github.com/dmitrijs2005/beyond/internal/server/repositories/volumes"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository
// implementations and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

// Users returns a users.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

// Networks returns a networks.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Networks(db dbx.DBTX) networks.Repository {
	return networks.NewPostgresRepository(db)
}

// Volumes returns a volumes.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Volumes(db dbx.DBTX) volumes.Repository {
	return volumes.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}
