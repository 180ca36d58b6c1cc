package networks

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

func (r *PostgresRepository) Create(ctx context.Context, network *models.Network) error {

	descriptor := network.Descriptor
	if len(descriptor) == 0 {
		descriptor = json.RawMessage(`{}`)
	}

	query :=
		`INSERT INTO networks (owner, name, descriptor)
         VALUES ($1, $2, $3)
		 `

	if _, err := r.db.ExecContext(ctx, query, network.Owner, network.Name, []byte(descriptor)); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation:
				return common.ErrorAlreadyExists
			case pgForeignKeyViolation:
				// owner row is gone
				return common.ErrorNotFound
			}
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, owner, name string) (*models.Network, error) {
	query :=
		`SELECT owner, name, descriptor, passports, endpoints, created_at FROM networks
		 WHERE owner = $1 AND name = $2
		 `

	network := &models.Network{}
	var descriptor, passports, endpoints []byte
	err := r.db.QueryRowContext(ctx, query, owner, name).
		Scan(&network.Owner, &network.Name, &descriptor, &passports, &endpoints, &network.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	network.Descriptor = json.RawMessage(descriptor)
	if err := json.Unmarshal(passports, &network.Passports); err != nil {
		return nil, fmt.Errorf("decoding passports: %w", err)
	}
	if err := json.Unmarshal(endpoints, &network.Endpoints); err != nil {
		return nil, fmt.Errorf("decoding endpoints: %w", err)
	}

	return network, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, owner, name string) error {
	query :=
		`DELETE FROM networks
		 WHERE owner = $1 AND name = $2
		 `

	if _, err := r.db.ExecContext(ctx, query, owner, name); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) DeleteByOwner(ctx context.Context, owner string) error {
	query :=
		`DELETE FROM networks
		 WHERE owner = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, owner); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) ListNamesByUser(ctx context.Context, user string) ([]string, error) {
	query :=
		`SELECT owner || '/' || name FROM networks
		 WHERE owner = $1 OR passports ? $1
		 ORDER BY owner, name
		 `

	rows, err := r.db.QueryContext(ctx, query, user)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return names, nil
}

// SetPassport upserts one invitee's passport in a single UPDATE, so writers
// to different invitees of the same network never overwrite each other.
func (r *PostgresRepository) SetPassport(ctx context.Context, owner, name, invitee string, passport json.RawMessage) error {
	query :=
		`UPDATE networks SET passports = jsonb_set(passports, ARRAY[$3], $4::jsonb, true)
		 WHERE owner = $1 AND name = $2
		 `

	res, err := r.db.ExecContext(ctx, query, owner, name, invitee, []byte(passport))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}

	return nil
}

// SetEndpoint upserts the (user, nodeID) entry in a single UPDATE. The inner
// jsonb_set materializes the user's sub-map first so the nested path always
// exists.
func (r *PostgresRepository) SetEndpoint(ctx context.Context, owner, name, user, nodeID string, endpoint models.Endpoint) error {

	doc, err := json.Marshal(endpoint)
	if err != nil {
		return fmt.Errorf("encoding endpoint: %w", err)
	}

	query :=
		`UPDATE networks SET endpoints = jsonb_set(
		     jsonb_set(endpoints, ARRAY[$3], COALESCE(endpoints -> $3, '{}'::jsonb), true),
		     ARRAY[$3, $4], $5::jsonb, true)
		 WHERE owner = $1 AND name = $2
		 `

	res, err := r.db.ExecContext(ctx, query, owner, name, user, nodeID, doc)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}

	return nil
}
