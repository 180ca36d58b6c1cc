package users

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

const pgUniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) error {

	key, err := json.Marshal(user.PublicKey)
	if err != nil {
		return fmt.Errorf("encoding public key: %w", err)
	}

	query :=
		`INSERT INTO users (name, public_key)
         VALUES ($1, $2)
		 `

	if _, err := r.db.ExecContext(ctx, query, user.Name, key); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, name string) (*models.User, error) {
	query :=
		`SELECT name, public_key, dropbox_accounts, google_accounts, created_at FROM users
		 WHERE name = $1
		 `

	user := &models.User{}
	var key, dropbox, google []byte
	err := r.db.QueryRowContext(ctx, query, name).
		Scan(&user.Name, &key, &dropbox, &google, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := json.Unmarshal(key, &user.PublicKey); err != nil {
		return nil, fmt.Errorf("decoding public key: %w", err)
	}
	if err := json.Unmarshal(dropbox, &user.DropboxAccounts); err != nil {
		return nil, fmt.Errorf("decoding dropbox accounts: %w", err)
	}
	if err := json.Unmarshal(google, &user.GoogleAccounts); err != nil {
		return nil, fmt.Errorf("decoding google accounts: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, name string) error {
	query :=
		`DELETE FROM users
		 WHERE name = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, name); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) SetCredential(ctx context.Context, name, provider, uid string, cred models.Credential) error {

	// provider picks a column, never interpolated from user input
	var column string
	switch provider {
	case "dropbox":
		column = "dropbox_accounts"
	case "google":
		column = "google_accounts"
	default:
		return fmt.Errorf("%w: unknown provider %q", common.ErrorMalformed, provider)
	}

	doc, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encoding credential: %w", err)
	}

	query := fmt.Sprintf(
		`UPDATE users SET %s = jsonb_set(%s, ARRAY[$2], $3::jsonb, true)
		 WHERE name = $1
		 `, column, column)

	res, err := r.db.ExecContext(ctx, query, name, uid, doc)
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
