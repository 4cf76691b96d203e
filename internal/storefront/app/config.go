package app

import (
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Store drivers.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type Config struct {
	APIURL string // Required: base URL of the storefront API (default: http://localhost:8000)
	Scope  string // Optional: credential scope (default: host of APIURL)

	Store         string        // Optional: credential store driver (sqlite, redis, memory) (default: sqlite)
	DatabaseFile  string        // Optional: path to the SQLite credential database (default: <user config dir>/storefront/credentials.db)
	RedisAddr     string        // Required for the redis store: host:port
	RedisPassword string        // Optional: redis password
	RedisDB       int           // Optional: redis database number (default: 0)
	RedisTTL      time.Duration // Optional: expire stored credentials after this long (default: never)
	MasterKeyPath string        // Optional: path to a master key file, enables encryption at rest
	MasterKey     string        // Optional: inline master key, used when MasterKeyPath is unset

	RefreshTimeout time.Duration // Optional: bound on a whole refresh exchange (default: 15s)
	RefreshRetries int           // Optional: retries after transient refresh failures, -1 disables (default: 2)
	ExpirySkew     time.Duration // Optional: treat access tokens as expired this much early (default: 0)
	HTTPTimeout    time.Duration // Optional: per-request timeout (default: 30s)
	RateLimit      int           // Optional: outbound requests per second per host, 0 disables (default: 10)
	RateBurst      int           // Optional: outbound burst size (default: 20)
	MetricsFile    string        // Optional: write Prometheus metrics here on exit

	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: warn)
	LogFormat string // Log format (json, text) (default: text)
}

func LoadConfig() Config {
	cfg := Config{
		APIURL:        getEnvOrDefault("STOREFRONT_API_URL", "http://localhost:8000"),
		Scope:         os.Getenv("STOREFRONT_SCOPE"),
		Store:         getEnvOrDefault("STOREFRONT_STORE", StoreSQLite),
		DatabaseFile:  getEnvOrDefault("STOREFRONT_DATABASE_FILE", defaultDatabaseFile()),
		RedisAddr:     os.Getenv("STOREFRONT_REDIS_ADDR"),
		RedisPassword: os.Getenv("STOREFRONT_REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("STOREFRONT_REDIS_DB", 0),
		RedisTTL:      getEnvDurationOrDefault("STOREFRONT_REDIS_TTL", 0),
		MasterKeyPath: os.Getenv("STOREFRONT_MASTER_KEY_PATH"),
		MasterKey:     os.Getenv("STOREFRONT_MASTER_KEY"),

		RefreshTimeout: getEnvDurationOrDefault("STOREFRONT_REFRESH_TIMEOUT", 15*time.Second),
		RefreshRetries: getEnvIntOrDefault("STOREFRONT_REFRESH_RETRIES", 2),
		ExpirySkew:     getEnvDurationOrDefault("STOREFRONT_EXPIRY_SKEW", 0),
		HTTPTimeout:    getEnvDurationOrDefault("STOREFRONT_HTTP_TIMEOUT", 30*time.Second),
		RateLimit:      getEnvIntOrDefault("STOREFRONT_RATE_LIMIT", 10),
		RateBurst:      getEnvIntOrDefault("STOREFRONT_RATE_BURST", 20),
		MetricsFile:    os.Getenv("STOREFRONT_METRICS_FILE"),

		Env:       getEnvOrDefault("ENV", "dev"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "warn"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "text"),
	}

	if cfg.Scope == "" {
		cfg.Scope = scopeFromURL(cfg.APIURL)
	}

	return cfg
}

// scopeFromURL keys credentials by API host so two storefronts never share
// a session.
func scopeFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}

func defaultDatabaseFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "storefront-credentials.db"
	}
	return filepath.Join(dir, "storefront", "credentials.db")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
