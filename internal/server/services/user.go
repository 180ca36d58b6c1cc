// Package services contains server-side business logic. This file implements
// UserService, which handles identity registration, lookup, credential
// linking, and cascading account deletion.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/beyond/internal/common"
	"github.com/dmitrijs2005/beyond/internal/dbx"
	"github.com/dmitrijs2005/beyond/internal/server/models"
	"github.com/dmitrijs2005/beyond/internal/server/repositories/repomanager"
)

// UserService provides identity operations:
// - Register: create users, idempotently for an unchanged key
// - Get / Delete: lookup and cascading removal
// - Networks: list networks the user belongs to
// - SetCredential: link a third-party account
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

// NewUserService constructs a UserService using the repository manager.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager) *UserService {
	return &UserService{db: db, repomanager: m}
}

// Register creates a new user with the given name and public key. The name
// is the natural key: a re-registration carrying the identical key returns
// the existing record with created=false, while a divergent key yields
// common.ErrorConflict.
func (s *UserService) Register(ctx context.Context, name string, publicKey models.PublicKey) (*models.User, bool, error) {
	repo := s.repomanager.Users(s.db)

	user := &models.User{Name: name, PublicKey: publicKey}
	err := repo.Create(ctx, user)
	if err == nil {
		return user, true, nil
	}
	if !errors.Is(err, common.ErrorAlreadyExists) {
		return nil, false, fmt.Errorf("error creating user: %w", err)
	}

	existing, err := repo.Get(ctx, name)
	if err != nil {
		return nil, false, fmt.Errorf("error reading existing user: %w", err)
	}
	if existing.PublicKey != publicKey {
		return nil, false, common.ErrorConflict
	}
	return existing, false, nil
}

// Get returns the user addressed by name, or common.ErrorNotFound.
func (s *UserService) Get(ctx context.Context, name string) (*models.User, error) {
	return s.repomanager.Users(s.db).Get(ctx, name)
}

// Delete removes the user together with every network and volume they own,
// in one transaction. Deleting an absent user is not an error.
func (s *UserService) Delete(ctx context.Context, name string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Networks(tx).DeleteByOwner(ctx, name); err != nil {
			return fmt.Errorf("error deleting networks of %s: %w", name, err)
		}
		if err := s.repomanager.Volumes(tx).DeleteByOwner(ctx, name); err != nil {
			return fmt.Errorf("error deleting volumes of %s: %w", name, err)
		}
		if err := s.repomanager.Users(tx).Delete(ctx, name); err != nil {
			return fmt.Errorf("error deleting user %s: %w", name, err)
		}
		return nil
	})
}

// Networks lists "owner/name" keys of networks the user belongs to, as owner
// or passport holder. The user must exist.
func (s *UserService) Networks(ctx context.Context, name string) ([]string, error) {
	if _, err := s.repomanager.Users(s.db).Get(ctx, name); err != nil {
		return nil, err
	}
	return s.repomanager.Networks(s.db).ListNamesByUser(ctx, name)
}

// SetCredential links one third-party account under the given provider.
func (s *UserService) SetCredential(ctx context.Context, name, provider string, cred models.Credential) error {
	return s.repomanager.Users(s.db).SetCredential(ctx, name, provider, cred.UID, cred)
}

// Credentials returns the accounts linked for the given provider.
func (s *UserService) Credentials(ctx context.Context, name, provider string) (map[string]models.Credential, error) {
	user, err := s.repomanager.Users(s.db).Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return user.Accounts(provider), nil
}
