package models

import (
	"encoding/json"
	"time"
)

// Volume is a named storage volume owned by a user. Beyond its identity the
// directory keeps only an opaque descriptor.
type Volume struct {
	Owner      string          `json:"owner"`
	Name       string          `json:"name"`
	Descriptor json.RawMessage `json:"descriptor,omitempty"`
	CreatedAt  time.Time       `json:"-"`
}

// Key returns the composite natural key "owner/name".
func (v *Volume) Key() string {
	return v.Owner + "/" + v.Name
}
