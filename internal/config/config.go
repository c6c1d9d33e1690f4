// Package config loads the relay's environment-sourced settings. The
// core packages never read the environment themselves; everything they
// need arrives as plain parameters from here.
package config

import (
	"os"

	"github.com/pkg/errors"
)

// Config holds the relay's runtime settings. Private keys stay hex
// strings here and are parsed exactly once at startup; they are never
// logged.
type Config struct {
	Stage           string
	Port            string
	RPCURL          string
	RelayerKeyHex   string
	AuthorityKeyHex string // optional: enables server-side authorization signing
	DelegateAddress string // default delegate contract for /delegations
	APIKey          string // optional: gates mutating routes when set
}

// Load reads configuration from the environment. RPC_URL and
// RELAYER_PRIVATE_KEY are required; everything else has a default or is
// optional.
func Load() (*Config, error) {
	cfg := &Config{
		Stage:           getEnvWithDefault("STAGE", "dev"),
		Port:            getEnvWithDefault("API_PORT", "8080"),
		RPCURL:          os.Getenv("RPC_URL"),
		RelayerKeyHex:   os.Getenv("RELAYER_PRIVATE_KEY"),
		AuthorityKeyHex: os.Getenv("AUTHORITY_PRIVATE_KEY"),
		DelegateAddress: os.Getenv("DELEGATE_CONTRACT_ADDRESS"),
		APIKey:          os.Getenv("API_KEY"),
	}
	if cfg.RPCURL == "" {
		return nil, errors.New("RPC_URL environment variable is required")
	}
	if cfg.RelayerKeyHex == "" {
		return nil, errors.New("RELAYER_PRIVATE_KEY environment variable is required")
	}
	return cfg, nil
}

func getEnvWithDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
