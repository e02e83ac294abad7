// Package config loads the managed node's bootstrap configuration from
// the environment, following the teacher's env-var-with-defaults idiom.
package config

import (
	"errors"
	"os"
)

// BootConfig holds everything a managed node needs before it can reach
// the network to load its signed ManagedNodeConfig (spec.md §6).
type BootConfig struct {
	Port                        string
	CORSOrigin                  string
	BackendURL                  string
	NodeID                      string
	NodePrivateKeyPEM           string
	OperatorKey                 string
	ConfigURL                   string
	NodeEncryptionPublicKeyHex  string
	OperatorEncryptionPubKeyHex string
	SchemaModule                string
}

// Load reads the canonical env vars named in spec.md §6. Only PORT and
// BACKEND_URL get defaults; the rest are left empty when unset, and
// Validate checks the ones LoadingConfig cannot proceed without.
func Load() *BootConfig {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	backendURL := os.Getenv("BACKEND_URL")
	if backendURL == "" {
		backendURL = "memory://local"
	}

	return &BootConfig{
		Port:                        port,
		CORSOrigin:                  os.Getenv("CORS_ORIGIN"),
		BackendURL:                  backendURL,
		NodeID:                      os.Getenv("NODE_ID"),
		NodePrivateKeyPEM:           os.Getenv("NODE_PRIVATE_KEY_PEM"),
		OperatorKey:                 os.Getenv("OPERATOR_KEY"),
		ConfigURL:                   os.Getenv("CONFIG_URL"),
		NodeEncryptionPublicKeyHex:  os.Getenv("NODE_ENCRYPTION_PUBLIC_KEY_HEX"),
		OperatorEncryptionPubKeyHex: os.Getenv("OPERATOR_ENCRYPTION_PUBLIC_KEY_HEX"),
		SchemaModule:                os.Getenv("SCHEMA_MODULE"),
	}
}

// Validate ensures the fields required to reach LoadingConfig are present.
func (c *BootConfig) Validate() error {
	if c.NodeID == "" {
		return errors.New("config: NODE_ID is required")
	}
	if c.OperatorKey == "" {
		return errors.New("config: OPERATOR_KEY is required")
	}
	if c.ConfigURL == "" {
		return errors.New("config: CONFIG_URL is required")
	}
	return nil
}
