// Package users defines the repository contract for registered identities.
package users

import (
	"context"

	"github.com/dmitrijs2005/beyond/internal/server/models"
)

// Repository persists users addressed by their globally unique name.
//
// Create returns common.ErrorAlreadyExists when the name is taken; Get
// returns common.ErrorNotFound for an absent name; Delete is idempotent.
type Repository interface {
	Create(ctx context.Context, user *models.User) error
	Get(ctx context.Context, name string) (*models.User, error)
	Delete(ctx context.Context, name string) error

	// SetCredential upserts one linked third-party account under the given
	// provider ("dropbox" or "google") and account uid. The write is atomic
	// with respect to other credential and profile updates.
	SetCredential(ctx context.Context, name, provider, uid string, cred models.Credential) error
}
