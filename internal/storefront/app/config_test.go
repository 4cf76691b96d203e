package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STOREFRONT_API_URL", "")
	t.Setenv("STOREFRONT_SCOPE", "")
	t.Setenv("STOREFRONT_STORE", "")
	t.Setenv("STOREFRONT_REFRESH_RETRIES", "")

	cfg := LoadConfig()
	require.Equal(t, "http://localhost:8000", cfg.APIURL)
	require.Equal(t, "localhost:8000", cfg.Scope)
	require.Equal(t, StoreSQLite, cfg.Store)
	require.Equal(t, 2, cfg.RefreshRetries)
	require.Equal(t, 15*time.Second, cfg.RefreshTimeout)
	require.Zero(t, cfg.ExpirySkew)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("STOREFRONT_API_URL", "https://shop.example.com/api")
	t.Setenv("STOREFRONT_SCOPE", "")
	t.Setenv("STOREFRONT_STORE", "redis")
	t.Setenv("STOREFRONT_REDIS_DB", "3")
	t.Setenv("STOREFRONT_REFRESH_TIMEOUT", "5s")
	t.Setenv("STOREFRONT_EXPIRY_SKEW", "30")
	t.Setenv("STOREFRONT_RATE_LIMIT", "not-a-number")

	cfg := LoadConfig()
	require.Equal(t, "shop.example.com", cfg.Scope)
	require.Equal(t, StoreRedis, cfg.Store)
	require.Equal(t, 3, cfg.RedisDB)
	require.Equal(t, 5*time.Second, cfg.RefreshTimeout)
	require.Equal(t, 30*time.Second, cfg.ExpirySkew)
	require.Equal(t, 10, cfg.RateLimit)
}

func TestExplicitScopeWins(t *testing.T) {
	t.Setenv("STOREFRONT_API_URL", "https://shop.example.com")
	t.Setenv("STOREFRONT_SCOPE", "staging")

	require.Equal(t, "staging", LoadConfig().Scope)
}
