package services

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/dmitrijs2005/beyond/internal/server/models"
	"github.com/dmitrijs2005/beyond/internal/server/repositories/repomanager"
)

// VolumeService implements the volume lifecycle. Volumes carry only an
// opaque descriptor besides their identity.
type VolumeService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewVolumeService(db *sql.DB, m repomanager.RepositoryManager) *VolumeService {
	return &VolumeService{db: db, repomanager: m}
}

// Create registers a volume under (owner, name).
func (s *VolumeService) Create(ctx context.Context, owner, name string, descriptor json.RawMessage) (*models.Volume, error) {
	volume := &models.Volume{Owner: owner, Name: name, Descriptor: descriptor}
	if err := s.repomanager.Volumes(s.db).Create(ctx, volume); err != nil {
		return nil, err
	}
	return volume, nil
}

// Get returns the volume addressed by (owner, name).
func (s *VolumeService) Get(ctx context.Context, owner, name string) (*models.Volume, error) {
	return s.repomanager.Volumes(s.db).Get(ctx, owner, name)
}

// Delete removes the volume. Idempotent.
func (s *VolumeService) Delete(ctx context.Context, owner, name string) error {
	return s.repomanager.Volumes(s.db).Delete(ctx, owner, name)
}
