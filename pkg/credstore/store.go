// Package credstore persists the session's credential pair (access +
// renewal) so a session survives a process restart.
//
// Every Store is bound to a scope, usually the API host, so credentials for
// one service are never handed to another. Drivers live under drivers/.
package credstore

import (
	"context"
	"errors"
)

var (
	ErrNotFound   = errors.New("credstore: not found")
	ErrIncomplete = errors.New("credstore: access and renewal credentials must both be set")
)

// Credentials is the pair the session holds. Both or neither, never one.
type Credentials struct {
	Access  string
	Renewal string
}

// Complete reports whether both halves are present.
func (c Credentials) Complete() bool {
	return c.Access != "" && c.Renewal != ""
}

// Store is the credential persistence interface.
type Store interface {
	// Load returns the stored pair, or ErrNotFound if there is none. A half
	// written pair also reads as ErrNotFound.
	Load(ctx context.Context) (Credentials, error)

	// Save atomically replaces the stored pair. Returns ErrIncomplete
	// without touching storage if either half is empty.
	Save(ctx context.Context, c Credentials) error

	// Clear removes the pair. Clearing an empty store is not an error.
	Clear(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error
}
