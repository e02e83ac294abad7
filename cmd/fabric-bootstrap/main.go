// Command fabric-bootstrap seeds a signed ManagedNodeConfig record into a
// target backend so a fabric-node process booting against the same
// backend/CONFIG_URL has something to load. Grounded on the teacher's
// cmd/bootstrap/main.go seedPacks idiom: read a local JSON or YAML
// document, sign it with an operator key, and register it into a store —
// re-aimed here at ManagedNodeConfig instead of op-pack manifests.
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"log"
	"os"
	"strings"

	"github.com/Mindburn-Labs/fabric/pkg/fabriccrypto"
	"github.com/Mindburn-Labs/fabric/pkg/fabricuri"
	"github.com/Mindburn-Labs/fabric/pkg/managed"
)

func main() {
	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		log.Fatal("fabric-bootstrap: CONFIG_FILE is required (path to a ManagedNodeConfig JSON or YAML document)")
	}
	operatorKeyPEM := os.Getenv("OPERATOR_PRIVATE_KEY_PEM")
	if operatorKeyPEM == "" {
		log.Fatal("fabric-bootstrap: OPERATOR_PRIVATE_KEY_PEM is required to sign the seeded config")
	}
	backendURL := os.Getenv("BACKEND_URL")
	if backendURL == "" {
		log.Fatal("fabric-bootstrap: BACKEND_URL is required (where the config record is written)")
	}
	backendType := os.Getenv("BACKEND_TYPE")
	if backendType == "" {
		backendType = string(managed.BackendHTTP)
	}

	operator, err := loadOperatorSigner(operatorKeyPEM)
	if err != nil {
		log.Fatalf("fabric-bootstrap: load OPERATOR_PRIVATE_KEY_PEM: %v", err)
	}

	raw, err := os.ReadFile(configFile)
	if err != nil {
		log.Fatalf("fabric-bootstrap: read %s: %v", configFile, err)
	}
	cfg, err := decodeConfigFile(configFile, raw)
	if err != nil {
		log.Fatalf("fabric-bootstrap: decode %s: %v", configFile, err)
	}
	if cfg.NodeID == "" {
		log.Fatal("fabric-bootstrap: config document is missing nodeId")
	}

	ctx := context.Background()
	backend, err := managed.BuildBackend(ctx, managed.BackendSpec{Type: managed.BackendType(backendType), URL: backendURL})
	if err != nil {
		log.Fatalf("fabric-bootstrap: build target backend: %v", err)
	}
	defer func() { _ = backend.Cleanup(ctx) }()

	am, err := fabriccrypto.CreateAuthenticatedMessage(cfg, []fabriccrypto.Signer{operator})
	if err != nil {
		log.Fatalf("fabric-bootstrap: sign config: %v", err)
	}

	targetURI := fabricuri.ConfigURI(operator.PublicKey(), cfg.NodeID)
	res, err := backend.Receive(ctx, targetURI, am)
	if err != nil {
		log.Fatalf("fabric-bootstrap: write config: %v", err)
	}
	if !res.Accepted {
		log.Fatalf("fabric-bootstrap: backend rejected config write: %s", res.Error)
	}

	log.Printf("fabric-bootstrap: seeded config for node %s at %s (configVersion=%d)", cfg.NodeID, targetURI, cfg.ConfigVersion)
}

// decodeConfigFile decodes raw as YAML when CONFIG_FILE_FORMAT=yaml is
// set or configFile ends in .yaml/.yml, and as JSON otherwise. YAML is
// the hand-authored single-node dev/test bootstrap encoding (spec.md
// §2/§3); it carries no signature of its own — CreateAuthenticatedMessage
// below signs it the same way either encoding would be signed.
func decodeConfigFile(configFile string, raw []byte) (*managed.ManagedNodeConfig, error) {
	format := os.Getenv("CONFIG_FILE_FORMAT")
	if format == "" && (strings.HasSuffix(configFile, ".yaml") || strings.HasSuffix(configFile, ".yml")) {
		format = "yaml"
	}
	if format == "yaml" {
		return managed.DecodeYAMLConfig(raw)
	}
	var cfg managed.ManagedNodeConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadOperatorSigner decodes a PEM-encoded PKCS8 Ed25519 private key,
// the same shape fabric-node expects for NODE_PRIVATE_KEY_PEM.
func loadOperatorSigner(pemStr string) (*fabriccrypto.Ed25519Signer, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, os.ErrInvalid
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, os.ErrInvalid
	}
	return fabriccrypto.NewEd25519SignerFromPrivateKey(priv), nil
}
