package app

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/storefront/internal/authtest"
	"github.com/aussiebroadwan/storefront/pkg/authsdk"
	"github.com/aussiebroadwan/storefront/pkg/credstore/drivers/redis"
	"github.com/aussiebroadwan/storefront/pkg/session"
)

func testConfig(t *testing.T, srv *authtest.Server) Config {
	t.Helper()
	return Config{
		APIURL:         srv.URL,
		Scope:          scopeFromURL(srv.URL),
		Store:          StoreSQLite,
		DatabaseFile:   filepath.Join(t.TempDir(), "creds", "credentials.db"),
		RefreshTimeout: 5 * time.Second,
		RefreshRetries: -1,
		HTTPTimeout:    5 * time.Second,
		Env:            "test",
		LogLevel:       "error",
		LogFormat:      "text",
	}
}

func newTestServer(t *testing.T) *authtest.Server {
	t.Helper()
	srv := authtest.NewServer(t)
	srv.AddUser("hunter2", authsdk.UserProfile{ID: "7", Username: "carol", Email: "carol@example.com"})
	return srv
}

func TestSessionSurvivesRestart(t *testing.T) {
	srv := newTestServer(t)
	cfg := testConfig(t, srv)
	cfg.MasterKey = "app-test-master-key"

	first, err := New(cfg)
	require.NoError(t, err)
	_, err = first.Session().Login(t.Context(), "carol", "hunter2")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	require.NoError(t, second.Init(t.Context()))
	require.Equal(t, session.Authenticated, second.Session().State())
	require.Equal(t, "carol", second.Session().User().Username)

	// Same file, wrong key: the stored pair can't be opened
	cfg.MasterKey = "some-other-key"
	third, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = third.Close() })
	require.Error(t, third.Init(t.Context()))
}

func TestAuthenticatedGet(t *testing.T) {
	srv := newTestServer(t)
	cfg := testConfig(t, srv)
	cfg.Store = StoreRedis
	cfg.RedisAddr = miniredis.RunT(t).Addr()

	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	_, err = a.Session().Login(t.Context(), "carol", "hunter2")
	require.NoError(t, err)

	resp, err := a.Session().HTTPClient().Get(a.URL(authtest.PathEcho))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `"subject":"7"`)
}

func TestMetricsFileWrittenOnClose(t *testing.T) {
	srv := newTestServer(t)
	cfg := testConfig(t, srv)
	cfg.Store = StoreMemory
	cfg.MetricsFile = filepath.Join(t.TempDir(), "storefront.prom")

	a, err := New(cfg)
	require.NoError(t, err)

	_, err = a.Session().Login(t.Context(), "carol", "hunter2")
	require.NoError(t, err)
	require.NoError(t, a.Close())

	data, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	require.Contains(t, string(data), `storefront_session_state_transitions_total{to="authenticated"} 1`)
}

func TestRedisStoreNeedsAddr(t *testing.T) {
	srv := newTestServer(t)
	cfg := testConfig(t, srv)
	cfg.Store = StoreRedis

	_, err := New(cfg)
	require.ErrorIs(t, err, redis.ErrNoAddr)
}

func TestUnknownStore(t *testing.T) {
	srv := newTestServer(t)
	cfg := testConfig(t, srv)
	cfg.Store = "etcd"

	_, err := New(cfg)
	require.ErrorContains(t, err, "unknown credential store")
}

func TestBadLogLevel(t *testing.T) {
	srv := newTestServer(t)
	cfg := testConfig(t, srv)
	cfg.LogLevel = "loud"

	_, err := New(cfg)
	require.ErrorContains(t, err, "unknown log level")
}

func TestURL(t *testing.T) {
	a := &Application{cfg: Config{APIURL: "https://shop.example.com/api/"}}

	require.Equal(t, "https://shop.example.com/api/orders/", a.URL("/orders/"))
	require.Equal(t, "https://shop.example.com/api/orders/", a.URL("orders/"))
	require.Equal(t, "https://other.example.com/x", a.URL("https://other.example.com/x"))
}
