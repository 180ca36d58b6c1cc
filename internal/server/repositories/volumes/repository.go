// Package volumes defines the repository contract for storage volumes.
package volumes

import (
	"context"

	"github.com/dmitrijs2005/beyond/internal/server/models"
)

// Repository persists volumes addressed by (owner, name). Error behavior
// mirrors the networks repository: ErrorAlreadyExists on key collision,
// ErrorNotFound for an absent key or owner, idempotent Delete.
type Repository interface {
	Create(ctx context.Context, volume *models.Volume) error
	Get(ctx context.Context, owner, name string) (*models.Volume, error)
	Delete(ctx context.Context, owner, name string) error
	DeleteByOwner(ctx context.Context, owner string) error
}
