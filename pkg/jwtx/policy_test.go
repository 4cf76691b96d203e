package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/storefront/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestPolicyExpired(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0).UTC()
	p := jwtx.Policy{Now: func() time.Time { return now }}

	require.True(t, p.Expired(now.Add(-time.Second)), "past exp is expired")
	require.True(t, p.Expired(now), "exp == now is expired")
	require.False(t, p.Expired(now.Add(time.Second)), "future exp is fresh")
	require.True(t, p.Expired(time.Time{}), "zero exp is expired")
}

func TestPolicySkew(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0).UTC()
	p := jwtx.Policy{Skew: 30 * time.Second, Now: func() time.Time { return now }}

	require.True(t, p.Expired(now.Add(30*time.Second)))
	require.False(t, p.Expired(now.Add(31*time.Second)))
}

func TestPolicyFresh(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0).UTC()
	p := jwtx.Policy{Now: func() time.Time { return now }}

	t.Run("fresh token", func(t *testing.T) {
		tok := sign(t, jwt.MapClaims{"user_id": 42, "exp": now.Add(time.Minute).Unix()})
		c, ok := p.Inspect(tok)
		require.True(t, ok)
		require.Equal(t, "42", c.Subject())
	})

	t.Run("expired one second ago", func(t *testing.T) {
		// claims {42, T} evaluated at T+1
		tok := sign(t, jwt.MapClaims{"user_id": 42, "exp": now.Add(-time.Second).Unix()})
		require.False(t, p.Fresh(tok))
	})

	t.Run("malformed tokens are expired", func(t *testing.T) {
		require.False(t, p.Fresh(""))
		require.False(t, p.Fresh("garbage"))
		require.False(t, p.Fresh(sign(t, jwt.MapClaims{"user_id": 42})))
	})
}
