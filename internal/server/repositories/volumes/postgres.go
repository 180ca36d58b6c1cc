package volumes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/beyond/internal/common"
	"github.com/dmitrijs2005/beyond/internal/dbx"
	"github.com/dmitrijs2005/beyond/internal/server/models"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, volume *models.Volume) error {

	descriptor := volume.Descriptor
	if len(descriptor) == 0 {
		descriptor = json.RawMessage(`{}`)
	}

	query :=
		`INSERT INTO volumes (owner, name, descriptor)
         VALUES ($1, $2, $3)
		 `

	if _, err := r.db.ExecContext(ctx, query, volume.Owner, volume.Name, []byte(descriptor)); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation:
				return common.ErrorAlreadyExists
			case pgForeignKeyViolation:
				return common.ErrorNotFound
			}
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, owner, name string) (*models.Volume, error) {
	query :=
		`SELECT owner, name, descriptor, created_at FROM volumes
		 WHERE owner = $1 AND name = $2
		 `

	volume := &models.Volume{}
	var descriptor []byte
	err := r.db.QueryRowContext(ctx, query, owner, name).
		Scan(&volume.Owner, &volume.Name, &descriptor, &volume.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	volume.Descriptor = json.RawMessage(descriptor)
	return volume, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, owner, name string) error {
	query :=
		`DELETE FROM volumes
		 WHERE owner = $1 AND name = $2
		 `

	if _, err := r.db.ExecContext(ctx, query, owner, name); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) DeleteByOwner(ctx context.Context, owner string) error {
	query :=
		`DELETE FROM volumes
		 WHERE owner = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, owner); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
