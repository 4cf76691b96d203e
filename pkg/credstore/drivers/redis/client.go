package redis

import (
	"errors"

	goredis "github.com/redis/go-redis/v9"
)

// ErrNoAddr is returned by NewClient when no server address is configured.
var ErrNoAddr = errors.New("redis: address is required")

type ClientConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewClient builds a go-redis client from cfg. Nothing is dialled until
// the first command.
func NewClient(cfg ClientConfig) (*goredis.Client, error) {
	if cfg.Addr == "" {
		return nil, ErrNoAddr
	}

	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), nil
}
