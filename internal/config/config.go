package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseDSN string `env:"DATABASE_DSN"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	ProfileBaseURL string        `env:"PROFILE_BASE_URL" envDefault:"http://localhost:9000"`
	CatalogBaseURL string        `env:"CATALOG_BASE_URL" envDefault:"http://localhost:9001"`
	CatalogTTL     time.Duration `env:"CATALOG_TTL" envDefault:"24h"`

	PhaseLimit    time.Duration `env:"PHASE_LIMIT" envDefault:"30s"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1s"`
}

// Load reads .env if present, then the process environment. An empty
// DATABASE_DSN selects the in-memory store.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

func (c Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }
