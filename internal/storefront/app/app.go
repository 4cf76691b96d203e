package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aussiebroadwan/storefront/pkg/authsdk"
	"github.com/aussiebroadwan/storefront/pkg/credstore"
	"github.com/aussiebroadwan/storefront/pkg/credstore/drivers/memory"
	"github.com/aussiebroadwan/storefront/pkg/credstore/drivers/redis"
	"github.com/aussiebroadwan/storefront/pkg/credstore/drivers/sqlite"
	"github.com/aussiebroadwan/storefront/pkg/cryptox"
	"github.com/aussiebroadwan/storefront/pkg/httpx"
	"github.com/aussiebroadwan/storefront/pkg/jwtx"
	"github.com/aussiebroadwan/storefront/pkg/session"
	"github.com/aussiebroadwan/storefront/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application wires the session manager to its store, transport, logger
// and metrics.
type Application struct {
	cfg    Config
	logger *slog.Logger

	store    credstore.Store
	registry *prometheus.Registry
	client   *authsdk.SDKClient
	session  *session.Session
}

// New creates a new Application. Nothing talks to the API until Init or a
// session operation is called.
func New(cfg Config) (*Application, error) {
	if _, err := slogx.ParseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "storefront",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Output:  os.Stderr,
			Attrs:   []any{"api", cfg.APIURL},
		}),
		registry: prometheus.NewRegistry(),
	}

	if err := app.initStore(); err != nil {
		return nil, err
	}

	if err := app.initSession(); err != nil {
		_ = app.store.Close()
		return nil, err
	}

	return app, nil
}

// initStore opens the configured credential store, sealed when a master
// key is configured.
func (app *Application) initStore() error {
	var (
		store credstore.Store
		err   error
	)

	switch strings.ToLower(app.cfg.Store) {
	case StoreSQLite:
		store, err = sqlite.OpenFile(app.cfg.DatabaseFile, app.cfg.Scope)
	case StoreRedis:
		store, err = app.openRedis()
	case StoreMemory:
		store = memory.NewStore()
	default:
		return fmt.Errorf("unknown credential store %q (want sqlite, redis or memory)", app.cfg.Store)
	}
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}

	if app.cfg.MasterKeyPath != "" || app.cfg.MasterKey != "" {
		material, err := cryptox.LoadKeyMaterial(app.cfg.MasterKeyPath, app.cfg.MasterKey)
		if err != nil {
			_ = store.Close()
			return fmt.Errorf("failed to load master key: %w", err)
		}

		sealer, err := cryptox.NewSealer(material)
		if err != nil {
			_ = store.Close()
			return fmt.Errorf("failed to initialize sealer: %w", err)
		}
		store = credstore.Sealed(store, sealer, app.cfg.Scope)
	}

	app.logger.Debug("credential store ready",
		"driver", app.cfg.Store,
		"scope", app.cfg.Scope,
		"sealed", app.cfg.MasterKeyPath != "" || app.cfg.MasterKey != "",
	)
	app.store = store
	return nil
}

func (app *Application) openRedis() (credstore.Store, error) {
	client, err := redis.NewClient(redis.ClientConfig{
		Addr:     app.cfg.RedisAddr,
		Password: app.cfg.RedisPassword,
		DB:       app.cfg.RedisDB,
	})
	if err != nil {
		return nil, err
	}

	store, err := redis.NewStore(client, app.cfg.Scope, redis.Config{TTL: app.cfg.RedisTTL})
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return &redisStore{Store: store, closeClient: client.Close}, nil
}

// redisStore closes the client it was opened with.
type redisStore struct {
	*redis.Store
	closeClient func() error
}

func (s *redisStore) Close() error {
	return errors.Join(s.Store.Close(), s.closeClient())
}

// initSession builds the outbound transport and the session on top of it.
func (app *Application) initSession() error {
	base := httpx.Chain(http.DefaultTransport,
		httpx.RequestID(),
		slogx.Transport(app.logger),
		httpx.RateLimit(httpx.RateLimitConfig{
			RequestsPerWindow: app.cfg.RateLimit,
			Window:            time.Second,
			Burst:             app.cfg.RateBurst,
		}, httpx.HostKeyExtractor),
	)

	app.client = authsdk.NewSDKClient(app.cfg.APIURL)
	app.client.HTTPClient = &http.Client{Transport: base, Timeout: app.cfg.HTTPTimeout}

	sess, err := session.New(session.Config{
		Client:            app.client,
		Store:             app.store,
		Policy:            jwtx.Policy{Skew: app.cfg.ExpirySkew},
		Base:              base,
		HTTPTimeout:       app.cfg.HTTPTimeout,
		RefreshTimeout:    app.cfg.RefreshTimeout,
		MaxRefreshRetries: app.cfg.RefreshRetries,
		Logger:            app.logger,
		Metrics:           session.NewMetrics(app.registry),
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	app.session = sess
	return nil
}

// Init restores the stored session, if there is one.
func (app *Application) Init(ctx context.Context) error {
	return app.session.Init(ctx)
}

func (app *Application) Session() *session.Session { return app.session }
func (app *Application) Logger() *slog.Logger       { return app.logger }

// URL resolves an API path against the configured base URL.
func (app *Application) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimSuffix(app.cfg.APIURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

// Close writes metrics (if configured) and closes the credential store.
func (app *Application) Close() error {
	var errs []error

	if app.cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(app.cfg.MetricsFile, app.registry); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
		}
	}

	if err := app.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close credential store: %w", err))
	}

	return errors.Join(errs...)
}
