package services

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/dmitrijs2005/beyond/internal/common"
	"github.com/dmitrijs2005/beyond/internal/server/models"
	"github.com/dmitrijs2005/beyond/internal/server/repositories/repomanager"
)

// NetworkService implements network lifecycle, passport distribution, and
// endpoint advertisement. Authorization decisions stay in the HTTP layer;
// this service assumes the caller has already been authenticated as the
// right identity.
type NetworkService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewNetworkService(db *sql.DB, m repomanager.RepositoryManager) *NetworkService {
	return &NetworkService{db: db, repomanager: m}
}

// Create registers a network under (owner, name).
func (s *NetworkService) Create(ctx context.Context, owner, name string, descriptor json.RawMessage) (*models.Network, error) {
	network := &models.Network{Owner: owner, Name: name, Descriptor: descriptor}
	if err := s.repomanager.Networks(s.db).Create(ctx, network); err != nil {
		return nil, err
	}
	return network, nil
}

// Get returns the network addressed by (owner, name).
func (s *NetworkService) Get(ctx context.Context, owner, name string) (*models.Network, error) {
	return s.repomanager.Networks(s.db).Get(ctx, owner, name)
}

// Delete removes the network. Idempotent.
func (s *NetworkService) Delete(ctx context.Context, owner, name string) error {
	return s.repomanager.Networks(s.db).Delete(ctx, owner, name)
}

// Users lists the network's members, owner first.
func (s *NetworkService) Users(ctx context.Context, owner, name string) ([]string, error) {
	network, err := s.repomanager.Networks(s.db).Get(ctx, owner, name)
	if err != nil {
		return nil, err
	}
	return network.Users(), nil
}

// Endpoints returns the network's full endpoint map, revoked tombstones
// included.
func (s *NetworkService) Endpoints(ctx context.Context, owner, name string) (map[string]map[string]models.Endpoint, error) {
	network, err := s.repomanager.Networks(s.db).Get(ctx, owner, name)
	if err != nil {
		return nil, err
	}
	if network.Endpoints == nil {
		return map[string]map[string]models.Endpoint{}, nil
	}
	return network.Endpoints, nil
}

// GetPassport returns the passport issued to invitee on the network, or
// common.ErrorNotFound when the network or the passport is absent.
func (s *NetworkService) GetPassport(ctx context.Context, owner, name, invitee string) (json.RawMessage, error) {
	network, err := s.repomanager.Networks(s.db).Get(ctx, owner, name)
	if err != nil {
		return nil, err
	}
	passport, ok := network.Passports[invitee]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return passport, nil
}

// PutPassport stores the passport issued to invitee. Overwrites are allowed;
// the document is opaque.
func (s *NetworkService) PutPassport(ctx context.Context, owner, name, invitee string, passport json.RawMessage) error {
	return s.repomanager.Networks(s.db).SetPassport(ctx, owner, name, invitee, passport)
}

// PutEndpoint advertises the address descriptor of (user, nodeID) on the
// network, replacing any previous advertisement of the same pair.
func (s *NetworkService) PutEndpoint(ctx context.Context, owner, name, user, nodeID string, descriptor json.RawMessage) error {
	return s.repomanager.Networks(s.db).SetEndpoint(ctx, owner, name, user, nodeID, models.AdvertisedEndpoint(descriptor))
}

// RevokeEndpoint flips the (user, nodeID) advertisement to a revoked
// tombstone. Revoking an entry that was never advertised still writes the
// tombstone, so the operation is idempotent.
func (s *NetworkService) RevokeEndpoint(ctx context.Context, owner, name, user, nodeID string) error {
	return s.repomanager.Networks(s.db).SetEndpoint(ctx, owner, name, user, nodeID, models.RevokedEndpoint())
}
