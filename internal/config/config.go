package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage backends for player profiles
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// Config is the server's environment-driven configuration
type Config struct {
	Host string `env:"SPORE_HOST" envDefault:""`
	Port int    `env:"SPORE_PORT" envDefault:"3000"`

	// Storage selects the profile store backend, memory or redis
	Storage    string        `env:"SPORE_STORAGE" envDefault:"memory"`
	RedisURL   string        `env:"SPORE_REDIS_URL" envDefault:"redis://localhost:6379"`
	ProfileTTL time.Duration `env:"SPORE_PROFILE_TTL" envDefault:"0"`

	// RPC endpoints for the token-gated room. When both are empty the
	// gated room denies everyone.
	MainnetRPCURL  string `env:"MAINNET_RPC_URL" envDefault:""`
	ArbitrumRPCURL string `env:"ARBITRUM_RPC_URL" envDefault:""`
}

// Load reads configuration from the environment
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.Storage != StorageMemory && cfg.Storage != StorageRedis {
		return Config{}, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
	return cfg, nil
}
