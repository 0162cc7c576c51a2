// Package config provides configuration management for the App Store
// Connect bridge.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration. Credential fields are
// validated once at startup so that misconfiguration fails fast instead of
// surfacing as a cascade of per-request authentication failures.
type Config struct {
	// KeyID is the App Store Connect API key identifier.
	KeyID string `env:"ASC_KEY_ID"`
	// IssuerID is the App Store Connect API issuer identifier.
	IssuerID string `env:"ASC_ISSUER_ID"`
	// PrivateKeyPath is the path to the .p8 private key file.
	PrivateKeyPath string `env:"ASC_PRIVATE_KEY_PATH"`
	// BaseURL overrides the App Store Connect API base URL. Empty means
	// the production API.
	BaseURL string `env:"ASC_API_BASE_URL"`
	// HTTPTimeout bounds every outbound API call. A hung backend call
	// fails after this duration instead of waiting indefinitely.
	HTTPTimeout time.Duration `env:"ASC_HTTP_TIMEOUT" envDefault:"30s"`
}

// Load parses configuration from environment variables and validates the
// credential material. The private key file must exist and be readable;
// its contents are parsed later by the token source.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if cfg.KeyID == "" {
		return nil, fmt.Errorf("ASC_KEY_ID environment variable is required")
	}
	if cfg.IssuerID == "" {
		return nil, fmt.Errorf("ASC_ISSUER_ID environment variable is required")
	}
	if cfg.PrivateKeyPath == "" {
		return nil, fmt.Errorf("ASC_PRIVATE_KEY_PATH environment variable is required")
	}
	if _, err := os.ReadFile(cfg.PrivateKeyPath); err != nil {
		return nil, fmt.Errorf("private key file %s is not readable: %w", cfg.PrivateKeyPath, err)
	}

	return &cfg, nil
}

// MustLoad loads configuration and panics on error. This is useful for
// initialization in main() where configuration errors should be fatal.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
