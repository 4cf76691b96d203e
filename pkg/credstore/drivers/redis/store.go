// Package redis stores credentials in a Redis hash, one key per scope. Handy
// when several client processes on different hosts share one session.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/storefront/pkg/credstore"
	goredis "github.com/redis/go-redis/v9"
)

const (
	DefaultKeyPrefix = "storefront:credentials:"

	fieldAccess  = "access"
	fieldRenewal = "refresh"
)

type Config struct {
	// KeyPrefix is prepended to the scope to build the hash key.
	KeyPrefix string

	// TTL expires the whole pair after this long. Zero keeps it until
	// Clear. Set it to the renewal credential's lifetime so dead sessions
	// don't pile up.
	TTL time.Duration
}

type Store struct {
	client goredis.UniversalClient
	key    string
	ttl    time.Duration
}

var _ credstore.Store = (*Store)(nil)

func NewStore(client goredis.UniversalClient, scope string, cfg Config) (*Store, error) {
	if scope == "" {
		return nil, errors.New("redis: scope is required")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}

	return &Store{client: client, key: cfg.KeyPrefix + scope, ttl: cfg.TTL}, nil
}

func (s *Store) Load(ctx context.Context) (credstore.Credentials, error) {
	vals, err := s.client.HMGet(ctx, s.key, fieldAccess, fieldRenewal).Result()
	if err != nil {
		return credstore.Credentials{}, fmt.Errorf("failed to load credentials: %w", err)
	}

	access, _ := vals[0].(string)
	renewal, _ := vals[1].(string)
	c := credstore.Credentials{Access: access, Renewal: renewal}
	if !c.Complete() {
		return credstore.Credentials{}, credstore.ErrNotFound
	}
	return c, nil
}

// Save writes both fields (and the TTL) inside MULTI/EXEC so readers never
// see a half updated pair.
func (s *Store) Save(ctx context.Context, c credstore.Credentials) error {
	if !c.Complete() {
		return credstore.ErrIncomplete
	}

	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, s.key, fieldAccess, c.Access, fieldRenewal, c.Renewal)
		if s.ttl > 0 {
			pipe.Expire(ctx, s.key, s.ttl)
		} else {
			pipe.Persist(ctx, s.key)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// Close is a no-op, the client belongs to whoever passed it in.
func (s *Store) Close() error { return nil }
