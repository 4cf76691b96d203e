package sqlite_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/storefront/pkg/credstore"
	"github.com/aussiebroadwan/storefront/pkg/credstore/drivers/sqlite"
	"github.com/aussiebroadwan/storefront/pkg/credstore/storetest"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.db")

	storetest.Run(t, func(t *testing.T, scope string) credstore.Store {
		s, err := sqlite.OpenFile(path, scope)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestOpenFilePermissions(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "session.db")
	s, err := sqlite.OpenFile(path, "shop.example.com")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// Migrations are idempotent
	require.NoError(t, s.ApplyMigrations())
}

func TestNewStoreNeedsScope(t *testing.T) {
	t.Parallel()

	_, err := sqlite.NewStore("file::memory:", "")
	require.Error(t, err)
}
