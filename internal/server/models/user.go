// Package models defines the directory entities persisted by the store:
// users, networks (with nested passports and endpoints) and volumes.
package models

import "time"

// PublicKey is a user's registered asymmetric identity. The RSA field holds
// the base64 DER encoding of the key.
type PublicKey struct {
	RSA string `json:"rsa"`
}

// Credential is one linked third-party account (Dropbox, Google). The core
// treats it as opaque; only the OAuth service reads its fields.
type Credential struct {
	UID          string `json:"uid"`
	DisplayName  string `json:"display_name"`
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// User is a registered identity, addressed by its globally unique name.
// The public key is immutable once set: re-registration with the identical
// key is idempotent, a divergent key is a conflict.
type User struct {
	Name            string                `json:"name"`
	PublicKey       PublicKey             `json:"public_key"`
	DropboxAccounts map[string]Credential `json:"dropbox_accounts,omitempty"`
	GoogleAccounts  map[string]Credential `json:"google_accounts,omitempty"`
	CreatedAt       time.Time             `json:"-"`
}

// Accounts returns the credential set linked for the given provider.
func (u *User) Accounts(provider string) map[string]Credential {
	switch provider {
	case "dropbox":
		return u.DropboxAccounts
	case "google":
		return u.GoogleAccounts
	}
	return nil
}
