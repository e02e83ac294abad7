// Command fabric-node boots a managed node (C11) from the canonical
// environment variables (spec.md §6) and runs it until terminated.
// Grounded on the teacher's cmd/bootstrap/main.go sequential-init,
// fatal-on-critical-error texture.
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mindburn-Labs/fabric/pkg/config"
	"github.com/Mindburn-Labs/fabric/pkg/fabriccrypto"
	"github.com/Mindburn-Labs/fabric/pkg/managed"
	"github.com/Mindburn-Labs/fabric/pkg/update"
)

func main() {
	boot := config.Load()
	if err := boot.Validate(); err != nil {
		log.Fatalf("fabric-node: %v", err)
	}

	signer, err := loadNodeSigner(boot.NodePrivateKeyPEM)
	if err != nil {
		log.Fatalf("fabric-node: load NODE_PRIVATE_KEY_PEM: %v", err)
	}

	// The node generates a fresh X25519 keypair each boot; spec.md §6
	// only consumes NODE_ENCRYPTION_PUBLIC_KEY_HEX (for an operator to
	// record out-of-band), not a matching private-key env var.
	encPriv, encPub, err := fabriccrypto.GenerateX25519Keypair()
	if err != nil {
		log.Fatalf("fabric-node: generate encryption keypair: %v", err)
	}
	encPubHex := hex.EncodeToString(encPub[:])
	if boot.NodeEncryptionPublicKeyHex != "" && boot.NodeEncryptionPublicKeyHex != encPubHex {
		log.Printf("fabric-node: NODE_ENCRYPTION_PUBLIC_KEY_HEX does not match this boot's generated key; publishing %s", encPubHex)
	}

	if boot.SchemaModule != "" {
		log.Printf("fabric-node: SCHEMA_MODULE=%s named but no static factory is registered for it; falling back to config's schemaInline/schemaModuleUrl", boot.SchemaModule)
	}

	identity := managed.Identity{
		NodeID:            boot.NodeID,
		OperatorPubHex:    boot.OperatorKey,
		ConfigURL:         boot.ConfigURL,
		Signer:            signer,
		NodeEncPriv:       encPriv,
		NodeEncPubHex:     encPubHex,
		OperatorEncPubHex: boot.OperatorEncryptionPubKeyHex,
		OnUpdateAvailable: func(u update.ModuleUpdate) {
			log.Printf("fabric-node: update available: version=%s moduleUrl=%s", u.Version, u.ModuleURL)
		},
	}

	node := managed.NewNode(identity)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("fabric-node: starting node %s, loading config from %s", boot.NodeID, boot.ConfigURL)
	if err := node.Start(ctx); err != nil {
		log.Fatalf("fabric-node: start: %v", err)
	}
	log.Printf("fabric-node: running (state=%s)", node.State())

	<-ctx.Done()
	log.Println("fabric-node: shutting down")
	if err := node.Stop(context.Background()); err != nil {
		log.Printf("fabric-node: stop: %v", err)
	}
}

// loadNodeSigner decodes a PEM-encoded PKCS8 Ed25519 private key into a
// Signer, the expected shape of NODE_PRIVATE_KEY_PEM.
func loadNodeSigner(pemStr string) (*fabriccrypto.Ed25519Signer, error) {
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
