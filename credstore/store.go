// Package credstore persists the credential between process runs so the
// app can start authenticated without an interactive login. The store is a
// cache, not the source of truth: the in-memory session owns the
// credential while the process is alive.
package credstore

import (
	"context"
	"time"
)

// Record mirrors the session credential and profile on disk. It is always
// written and replaced as a whole; there is no partial-update path.
type Record struct {
	AccessToken string    `cbor:"1,keyasint"`
	Subject     string    `cbor:"2,keyasint"`
	Name        string    `cbor:"3,keyasint,omitempty"`
	Email       string    `cbor:"4,keyasint,omitempty"`
	Picture     string    `cbor:"5,keyasint,omitempty"`
	ExpiresAt   time.Time `cbor:"6,keyasint"`
}

// Store is the durable, encrypted-at-rest credential persistence consumed
// by the session manager.
//
// Load returns nil (and clears storage) for a record whose ExpiresAt has
// already passed, so callers never re-validate freshness of what they
// read. Implementations must treat unavailable storage as empty rather
// than failing the caller.
type Store interface {
	Save(ctx context.Context, record Record) error
	Load(ctx context.Context) (*Record, error)
	Clear(ctx context.Context) error
}
