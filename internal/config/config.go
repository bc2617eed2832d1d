// Package config loads the gallery's configuration from the
// environment, with an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Config contains all configuration parameters for the gallery.
type Config struct {
	ListenAddr     string `envconfig:"LISTEN_ADDR" default:":8080"`
	LedgerEndpoint string `envconfig:"LEDGER_ENDPOINT" default:"http://localhost:8000"`
	CanisterID     string `envconfig:"CANISTER_ID"`
	AdminPrincipal string `envconfig:"ADMIN_PRINCIPAL"`
	KeystorePath   string `envconfig:"KEYSTORE_PATH" default:"gallery.key"`
	UseMemory      bool   `envconfig:"USE_MEMORY" default:"false"`

	CollectionName   string `envconfig:"COLLECTION_NAME" default:"NFT Gallery"`
	CollectionSymbol string `envconfig:"COLLECTION_SYMBOL" default:"NFT"`
}

// Load reads .env (if present) and then the environment.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process config: %w", err)
	}
	return cfg, nil
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
