// Package storetest is the behaviour every credstore.Store driver must
// share. Driver tests call Run with a constructor.
package storetest

import (
	"testing"

	"github.com/aussiebroadwan/storefront/pkg/credstore"
	"github.com/stretchr/testify/require"
)

// Factory returns a store for scope. Calls with the same scope within one
// test must share backing storage.
type Factory func(t *testing.T, scope string) credstore.Store

func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("empty store", func(t *testing.T) {
		s := newStore(t, "empty.example.com")
		_, err := s.Load(t.Context())
		require.ErrorIs(t, err, credstore.ErrNotFound)
	})

	t.Run("round trip", func(t *testing.T) {
		s := newStore(t, "roundtrip.example.com")
		want := credstore.Credentials{Access: "A1", Renewal: "R1"}

		require.NoError(t, s.Save(t.Context(), want))
		got, err := s.Load(t.Context())
		require.NoError(t, err)
		require.Equal(t, want, got)
	})

	t.Run("save replaces both", func(t *testing.T) {
		s := newStore(t, "replace.example.com")
		require.NoError(t, s.Save(t.Context(), credstore.Credentials{Access: "A1", Renewal: "R1"}))
		require.NoError(t, s.Save(t.Context(), credstore.Credentials{Access: "A2", Renewal: "R2"}))

		got, err := s.Load(t.Context())
		require.NoError(t, err)
		require.Equal(t, credstore.Credentials{Access: "A2", Renewal: "R2"}, got)
	})

	t.Run("rejects half a pair", func(t *testing.T) {
		s := newStore(t, "partial.example.com")
		require.NoError(t, s.Save(t.Context(), credstore.Credentials{Access: "A1", Renewal: "R1"}))

		require.ErrorIs(t, s.Save(t.Context(), credstore.Credentials{Access: "A2"}), credstore.ErrIncomplete)
		require.ErrorIs(t, s.Save(t.Context(), credstore.Credentials{Renewal: "R2"}), credstore.ErrIncomplete)

		// Previous pair untouched
		got, err := s.Load(t.Context())
		require.NoError(t, err)
		require.Equal(t, credstore.Credentials{Access: "A1", Renewal: "R1"}, got)
	})

	t.Run("clear is idempotent", func(t *testing.T) {
		s := newStore(t, "clear.example.com")
		require.NoError(t, s.Save(t.Context(), credstore.Credentials{Access: "A1", Renewal: "R1"}))

		require.NoError(t, s.Clear(t.Context()))
		require.NoError(t, s.Clear(t.Context()))

		_, err := s.Load(t.Context())
		require.ErrorIs(t, err, credstore.ErrNotFound)
	})

	t.Run("scopes are isolated", func(t *testing.T) {
		a := newStore(t, "a.example.com")
		b := newStore(t, "b.example.com")

		require.NoError(t, a.Save(t.Context(), credstore.Credentials{Access: "A", Renewal: "RA"}))

		_, err := b.Load(t.Context())
		require.ErrorIs(t, err, credstore.ErrNotFound)

		require.NoError(t, b.Clear(t.Context()))
		got, err := a.Load(t.Context())
		require.NoError(t, err)
		require.Equal(t, "A", got.Access)
	})

	t.Run("survives reopen", func(t *testing.T) {
		first := newStore(t, "reopen.example.com")
		require.NoError(t, first.Save(t.Context(), credstore.Credentials{Access: "A1", Renewal: "R1"}))

		second := newStore(t, "reopen.example.com")
		got, err := second.Load(t.Context())
		require.NoError(t, err)
		require.Equal(t, credstore.Credentials{Access: "A1", Renewal: "R1"}, got)
	})
}
