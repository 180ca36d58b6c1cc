// Package inmemory implements the directory repositories over mutex-guarded
// maps. It backs tests and gives the same semantics as the Postgres
// repositories: at-most-one-winner creates, idempotent deletes, and
// all-or-nothing sub-key writes on a network's nested maps.
package inmemory

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"sync"

	"github.com/dmitrijs2005/beyond/internal/common"
	"github.com/dmitrijs2005/beyond/internal/dbx"
	"github.com/dmitrijs2005/beyond/internal/server/models"
	"github.com/dmitrijs2005/beyond/internal/server/repositories/networks"
	"github.com/dmitrijs2005/beyond/internal/server/repositories/users"
	"github.com/dmitrijs2005/beyond/internal/server/repositories/volumes"
)

// store owns all three entity maps under one mutex, so cross-entity
// operations (user deletion cascading to networks and volumes) are atomic.
type store struct {
	mu       sync.Mutex
	users    map[string]*models.User
	networks map[string]*models.Network
	volumes  map[string]*models.Volume
}

func newStore() *store {
	return &store{
		users:    map[string]*models.User{},
		networks: map[string]*models.Network{},
		volumes:  map[string]*models.Volume{},
	}
}

func copyUser(u *models.User) *models.User {
	c := *u
	c.DropboxAccounts = copyCredentials(u.DropboxAccounts)
	c.GoogleAccounts = copyCredentials(u.GoogleAccounts)
	return &c
}

func copyCredentials(m map[string]models.Credential) map[string]models.Credential {
	if m == nil {
		return nil
	}
	c := make(map[string]models.Credential, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func copyNetwork(n *models.Network) *models.Network {
	c := *n
	if n.Passports != nil {
		c.Passports = make(map[string]json.RawMessage, len(n.Passports))
		for k, v := range n.Passports {
			c.Passports[k] = append(json.RawMessage(nil), v...)
		}
	}
	if n.Endpoints != nil {
		c.Endpoints = make(map[string]map[string]models.Endpoint, len(n.Endpoints))
		for user, nodes := range n.Endpoints {
			sub := make(map[string]models.Endpoint, len(nodes))
			for node, ep := range nodes {
				sub[node] = ep
			}
			c.Endpoints[user] = sub
		}
	}
	return &c
}

func copyVolume(v *models.Volume) *models.Volume {
	c := *v
	return &c
}

// UserRepository implements users.Repository over the shared store.
type UserRepository struct{ s *store }

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.Name]; ok {
		return common.ErrorAlreadyExists
	}
	r.s.users[user.Name] = copyUser(user)
	return nil
}

func (r *UserRepository) Get(ctx context.Context, name string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[name]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyUser(u), nil
}

func (r *UserRepository) Delete(ctx context.Context, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.users, name)
	return nil
}

func (r *UserRepository) SetCredential(ctx context.Context, name, provider, uid string, cred models.Credential) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[name]
	if !ok {
		return common.ErrorNotFound
	}
	switch provider {
	case "dropbox":
		if u.DropboxAccounts == nil {
			u.DropboxAccounts = map[string]models.Credential{}
		}
		u.DropboxAccounts[uid] = cred
	case "google":
		if u.GoogleAccounts == nil {
			u.GoogleAccounts = map[string]models.Credential{}
		}
		u.GoogleAccounts[uid] = cred
	default:
		return common.ErrorMalformed
	}
	return nil
}

// NetworkRepository implements networks.Repository over the shared store.
type NetworkRepository struct{ s *store }

func (r *NetworkRepository) Create(ctx context.Context, network *models.Network) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[network.Owner]; !ok {
		return common.ErrorNotFound
	}
	if _, ok := r.s.networks[network.Key()]; ok {
		return common.ErrorAlreadyExists
	}
	r.s.networks[network.Key()] = copyNetwork(network)
	return nil
}

func (r *NetworkRepository) Get(ctx context.Context, owner, name string) (*models.Network, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.networks[owner+"/"+name]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyNetwork(n), nil
}

func (r *NetworkRepository) Delete(ctx context.Context, owner, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.networks, owner+"/"+name)
	return nil
}

func (r *NetworkRepository) DeleteByOwner(ctx context.Context, owner string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for key, n := range r.s.networks {
		if n.Owner == owner {
			delete(r.s.networks, key)
		}
	}
	return nil
}

func (r *NetworkRepository) ListNamesByUser(ctx context.Context, user string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	names := []string{}
	for key, n := range r.s.networks {
		if n.Owner == user {
			names = append(names, key)
			continue
		}
		if _, ok := n.Passports[user]; ok {
			names = append(names, key)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (r *NetworkRepository) SetPassport(ctx context.Context, owner, name, invitee string, passport json.RawMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.networks[owner+"/"+name]
	if !ok {
		return common.ErrorNotFound
	}
	if n.Passports == nil {
		n.Passports = map[string]json.RawMessage{}
	}
	n.Passports[invitee] = append(json.RawMessage(nil), passport...)
	return nil
}

func (r *NetworkRepository) SetEndpoint(ctx context.Context, owner, name, user, nodeID string, endpoint models.Endpoint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.networks[owner+"/"+name]
	if !ok {
		return common.ErrorNotFound
	}
	if n.Endpoints == nil {
		n.Endpoints = map[string]map[string]models.Endpoint{}
	}
	if n.Endpoints[user] == nil {
		n.Endpoints[user] = map[string]models.Endpoint{}
	}
	n.Endpoints[user][nodeID] = endpoint
	return nil
}

// VolumeRepository implements volumes.Repository over the shared store.
type VolumeRepository struct{ s *store }

func (r *VolumeRepository) Create(ctx context.Context, volume *models.Volume) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[volume.Owner]; !ok {
		return common.ErrorNotFound
	}
	if _, ok := r.s.volumes[volume.Key()]; ok {
		return common.ErrorAlreadyExists
	}
	r.s.volumes[volume.Key()] = copyVolume(volume)
	return nil
}

func (r *VolumeRepository) Get(ctx context.Context, owner, name string) (*models.Volume, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.volumes[owner+"/"+name]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyVolume(v), nil
}

func (r *VolumeRepository) Delete(ctx context.Context, owner, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.volumes, owner+"/"+name)
	return nil
}

func (r *VolumeRepository) DeleteByOwner(ctx context.Context, owner string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for key, v := range r.s.volumes {
		if v.Owner == owner {
			delete(r.s.volumes, key)
		}
	}
	return nil
}

// Manager vends the in-memory repositories. The DBTX argument is ignored;
// the store guards its own state.
type Manager struct {
	users    *UserRepository
	networks *NetworkRepository
	volumes  *VolumeRepository
}

func NewManager() *Manager {
	s := newStore()
	return &Manager{
		users:    &UserRepository{s: s},
		networks: &NetworkRepository{s: s},
		volumes:  &VolumeRepository{s: s},
	}
}

func (m *Manager) Users(db dbx.DBTX) users.Repository          { return m.users }
func (m *Manager) Networks(db dbx.DBTX) networks.Repository    { return m.networks }
func (m *Manager) Volumes(db dbx.DBTX) volumes.Repository      { return m.volumes }
func (m *Manager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }
