// Package networks defines the repository contract for networks and their
// nested passport and endpoint maps.
package networks

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/beyond/internal/server/models"
)

// Repository persists networks addressed by (owner, name).
//
// Create returns common.ErrorAlreadyExists when the key is taken and
// common.ErrorNotFound when the owner does not exist. Get returns
// common.ErrorNotFound for an absent key; Delete is idempotent.
//
// SetPassport and SetEndpoint are single sub-key writes: concurrent calls
// targeting disjoint sub-keys of the same network must all survive, and a
// cancelled call must leave no partial state. Both return
// common.ErrorNotFound when the network is absent.
type Repository interface {
	Create(ctx context.Context, network *models.Network) error
	Get(ctx context.Context, owner, name string) (*models.Network, error)
	Delete(ctx context.Context, owner, name string) error
	DeleteByOwner(ctx context.Context, owner string) error

	// ListNamesByUser lists "owner/name" keys of networks the user belongs
	// to, as owner or passport holder, in lexical order.
	ListNamesByUser(ctx context.Context, user string) ([]string, error)

	SetPassport(ctx context.Context, owner, name, invitee string, passport json.RawMessage) error
	SetEndpoint(ctx context.Context, owner, name, user, nodeID string, endpoint models.Endpoint) error
}
