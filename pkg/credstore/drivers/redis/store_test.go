package redis_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aussiebroadwan/storefront/pkg/credstore"
	"github.com/aussiebroadwan/storefront/pkg/credstore/drivers/redis"
	"github.com/aussiebroadwan/storefront/pkg/credstore/storetest"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestStore(t *testing.T) {
	t.Parallel()

	_, client := newClient(t)

	storetest.Run(t, func(t *testing.T, scope string) credstore.Store {
		s, err := redis.NewStore(client, scope, redis.Config{})
		require.NoError(t, err)
		return s
	})
}

func TestStoreTTL(t *testing.T) {
	t.Parallel()

	mr, client := newClient(t)
	s, err := redis.NewStore(client, "shop.example.com", redis.Config{TTL: time.Hour})
	require.NoError(t, err)

	require.NoError(t, s.Save(t.Context(), credstore.Credentials{Access: "A1", Renewal: "R1"}))
	require.Equal(t, time.Hour, mr.TTL(redis.DefaultKeyPrefix+"shop.example.com"))

	mr.FastForward(time.Hour + time.Second)
	_, err = s.Load(t.Context())
	require.ErrorIs(t, err, credstore.ErrNotFound)
}

func TestStoreHalfWrittenHash(t *testing.T) {
	t.Parallel()

	mr, client := newClient(t)
	s, err := redis.NewStore(client, "shop.example.com", redis.Config{})
	require.NoError(t, err)

	// Someone else left only one field behind
	mr.HSet(redis.DefaultKeyPrefix+"shop.example.com", "access", "A1")

	_, err = s.Load(t.Context())
	require.ErrorIs(t, err, credstore.ErrNotFound)
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	_, err := redis.NewClient(redis.ClientConfig{})
	require.ErrorIs(t, err, redis.ErrNoAddr)

	mr := miniredis.RunT(t)
	client, err := redis.NewClient(redis.ClientConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(t.Context()).Err())
}

func TestStoreErrorsWrapped(t *testing.T) {
	t.Parallel()

	mr, client := newClient(t)
	s, err := redis.NewStore(client, "shop.example.com", redis.Config{})
	require.NoError(t, err)

	mr.SetError("LOADING redis is loading the dataset")
	_, err = s.Load(t.Context())
	require.ErrorContains(t, err, "failed to load credentials")
	require.NotErrorIs(t, err, credstore.ErrNotFound)

	err = s.Save(t.Context(), credstore.Credentials{Access: "a", Renewal: "r"})
	require.ErrorContains(t, err, "failed to save credentials")

	err = s.Clear(t.Context())
	require.ErrorContains(t, err, "failed to clear credentials")
}
