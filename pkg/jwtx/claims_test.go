package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/storefront/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestDecode(t *testing.T) {
	t.Parallel()

	exp := time.Unix(1700000000, 0).UTC()

	t.Run("numeric user_id", func(t *testing.T) {
		tok := sign(t, jwt.MapClaims{"user_id": 42, "exp": exp.Unix()})

		c, err := jwtx.Decode(tok)
		require.NoError(t, err)
		require.Equal(t, "42", c.Subject())
		require.True(t, exp.Equal(c.Expiry()))
	})

	t.Run("string user_id", func(t *testing.T) {
		tok := sign(t, jwt.MapClaims{"user_id": "abc", "exp": exp.Unix()})

		c, err := jwtx.Decode(tok)
		require.NoError(t, err)
		require.Equal(t, "abc", c.Subject())
	})

	t.Run("falls back to sub", func(t *testing.T) {
		tok := sign(t, jwt.MapClaims{"sub": "7", "exp": exp.Unix(), "username": "alice"})

		c, err := jwtx.Decode(tok)
		require.NoError(t, err)
		require.Equal(t, "7", c.Subject())
		require.Equal(t, "alice", c.Username)
	})

	t.Run("signature is not checked", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": 1,
			"exp":     exp.Unix(),
		}).SignedString([]byte("some-other-key"))
		require.NoError(t, err)

		_, err = jwtx.Decode(tok)
		require.NoError(t, err)
	})
}

func TestDecodeMalformed(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"empty":        "",
		"whitespace":   "   ",
		"not a token":  "definitely-not-a-jwt",
		"bad segments": "aaa.bbb.ccc",
	}

	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := jwtx.Decode(tok)
			require.ErrorIs(t, err, jwtx.ErrMalformed)
		})
	}

	t.Run("missing exp", func(t *testing.T) {
		tok := sign(t, jwt.MapClaims{"user_id": 42})

		_, err := jwtx.Decode(tok)
		require.ErrorIs(t, err, jwtx.ErrMissingExpiry)
	})
}
