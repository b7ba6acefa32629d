package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends for session snapshots
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// ServerConfig holds process settings read from the environment
type ServerConfig struct {
	HTTPAddr       string        `env:"HTTP_ADDR" envDefault:":8080"`
	ConfigDir      string        `env:"CONFIG_DIR" envDefault:"configs"`
	CatalogPath    string        `env:"CATALOG_PATH" envDefault:"data/questions.json"`
	SessionsDir    string        `env:"SESSIONS_DIR" envDefault:"sessions"`
	Store          string        `env:"STORE" envDefault:"file"`
	DBPath         string        `env:"DB_PATH" envDefault:"trivia.db"`
	LogLevel       slog.Level    `env:"LOG_LEVEL" envDefault:"INFO"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	NgrokEnabled   bool          `env:"NGROK_ENABLED" envDefault:"false"`
	NgrokAuthToken string        `env:"NGROK_AUTHTOKEN"`
	NgrokDomain    string        `env:"NGROK_DOMAIN"`
}

// Load parses the environment
func Load() (*ServerConfig, error) {
	cfg, err := env.ParseAs[ServerConfig]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints
func (c *ServerConfig) Validate() error {
	switch c.Store {
	case StoreFile, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("%w: STORE must be file, sqlite or memory, got %q", ErrInvalidConfig, c.Store)
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("%w: SESSION_TTL must not be negative", ErrInvalidConfig)
	}
	if c.NgrokEnabled && c.NgrokAuthToken == "" {
		return fmt.Errorf("%w: NGROK_AUTHTOKEN is required when NGROK_ENABLED is set", ErrInvalidConfig)
	}
	return nil
}
