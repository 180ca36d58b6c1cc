package models

import (
	"encoding/json"
	"sort"
	"time"
)

// Endpoint states. An entry never disappears on revocation; it flips to
// EndpointRevoked so stale readers see an explicit tombstone instead of a
// missing key.
const (
	EndpointAdvertised = "advertised"
	EndpointRevoked    = "revoked"
)

// Endpoint is one network-address advertisement of a (user, node) pair
// within a network. The descriptor is opaque to the directory.
type Endpoint struct {
	State      string          `json:"state"`
	Descriptor json.RawMessage `json:"descriptor,omitempty"`
}

// AdvertisedEndpoint builds a live advertisement carrying the given
// address descriptor.
func AdvertisedEndpoint(descriptor json.RawMessage) Endpoint {
	return Endpoint{State: EndpointAdvertised, Descriptor: descriptor}
}

// RevokedEndpoint builds the tombstone written on endpoint deletion.
func RevokedEndpoint() Endpoint {
	return Endpoint{State: EndpointRevoked}
}

// Network is a named group owned by a user. Passports map invitee names to
// opaque passport documents; endpoints map user name and node id to the
// node's current advertisement.
type Network struct {
	Owner      string                         `json:"owner"`
	Name       string                         `json:"name"`
	Descriptor json.RawMessage                `json:"descriptor,omitempty"`
	Passports  map[string]json.RawMessage     `json:"passports,omitempty"`
	Endpoints  map[string]map[string]Endpoint `json:"endpoints,omitempty"`
	CreatedAt  time.Time                      `json:"-"`
}

// Key returns the composite natural key "owner/name".
func (n *Network) Key() string {
	return n.Owner + "/" + n.Name
}

// Users lists the network's members: the owner first, then the passport
// invitees in lexical order. The order is part of the listing contract.
func (n *Network) Users() []string {
	users := []string{n.Owner}
	invitees := make([]string, 0, len(n.Passports))
	for invitee := range n.Passports {
		invitees = append(invitees, invitee)
	}
	sort.Strings(invitees)
	return append(users, invitees...)
}
