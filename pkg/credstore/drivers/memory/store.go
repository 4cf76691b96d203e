// Package memory is a process-local credstore.Store. Nothing survives a
// restart, use it for tests and throwaway sessions.
package memory

import (
	"context"
	"sync"

	"github.com/aussiebroadwan/storefront/pkg/credstore"
)

type Store struct {
	mu    sync.Mutex
	creds credstore.Credentials
}

func NewStore() *Store { return &Store{} }

func (s *Store) Load(ctx context.Context) (credstore.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.creds.Complete() {
		return credstore.Credentials{}, credstore.ErrNotFound
	}
	return s.creds, nil
}

func (s *Store) Save(ctx context.Context, c credstore.Credentials) error {
	if !c.Complete() {
		return credstore.ErrIncomplete
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = c
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = credstore.Credentials{}
	return nil
}

func (s *Store) Close() error { return nil }
