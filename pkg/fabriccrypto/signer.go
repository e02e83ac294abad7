// Package fabriccrypto implements the crypto primitives spec.md §4.2
// describes: Ed25519 sign/verify, X25519 ECDH + AES-GCM encryption,
// PBKDF2 key derivation and the authenticated/signed-encrypted message
// constructors. Shaped after the teacher's pkg/crypto (Signer/Verifier
// interfaces over hex-encoded Ed25519 keys, canonical-JSON-first
// signing) generalized from HELM's domain objects to the fabric's
// generic payload signing.
package fabriccrypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/Mindburn-Labs/fabric/pkg/envelope"
	"github.com/Mindburn-Labs/fabric/pkg/fabricerr"
)

// Signer produces hex-encoded Ed25519 signatures over a payload's
// canonical JSON serialization.
type Signer interface {
	Sign(payload interface{}) (string, error)
	PublicKey() string
	PublicKeyBytes() ed25519.PublicKey
}

// Ed25519Signer is the default Signer implementation.
type Ed25519Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewEd25519Signer generates a fresh Ed25519 keypair.
func NewEd25519Signer() (*Ed25519Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fabricerr.Wrap(fabricerr.CryptoError, "generate ed25519 key", err)
	}
	return &Ed25519Signer{priv: priv, pub: pub}, nil
}

// NewEd25519SignerFromPrivateKey builds a signer around an existing key,
// e.g. one parsed from NODE_PRIVATE_KEY_PEM at boot.
func NewEd25519SignerFromPrivateKey(priv ed25519.PrivateKey) *Ed25519Signer {
	return &Ed25519Signer{priv: priv, pub: priv.Public().(ed25519.PublicKey)}
}

// Sign serializes payload as canonical JSON and signs the resulting
// bytes, matching Verify's exact input (spec.md P5).
func (s *Ed25519Signer) Sign(payload interface{}) (string, error) {
	b, err := envelope.CanonicalJSON(payload)
	if err != nil {
		return "", fabricerr.Wrap(fabricerr.CryptoError, "canonicalize payload", err)
	}
	sig := ed25519.Sign(s.priv, b)
	return hex.EncodeToString(sig), nil
}

// SignBytes signs raw bytes directly, bypassing canonicalization; used
// to sign an already-encrypted payload (createSignedEncryptedMessage).
func (s *Ed25519Signer) SignBytes(b []byte) string {
	return hex.EncodeToString(ed25519.Sign(s.priv, b))
}

func (s *Ed25519Signer) PublicKey() string { return hex.EncodeToString(s.pub) }

func (s *Ed25519Signer) PublicKeyBytes() ed25519.PublicKey { return s.pub }

// Verify checks a hex signature against pubHex over payload's canonical
// JSON serialization.
func Verify(pubHex, sigHex string, payload interface{}) (bool, error) {
	b, err := envelope.CanonicalJSON(payload)
	if err != nil {
		return false, fabricerr.Wrap(fabricerr.CryptoError, "canonicalize payload", err)
	}
	return VerifyBytes(pubHex, sigHex, b)
}

// VerifyBytes checks a hex signature against raw bytes.
func VerifyBytes(pubHex, sigHex string, data []byte) (bool, error) {
	pub, err := hex.DecodeString(pubHex)
	if err != nil {
		return false, fabricerr.Wrap(fabricerr.CryptoError, "invalid public key hex", err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return false, fabricerr.New(fabricerr.CryptoError, fmt.Sprintf("invalid public key size %d", len(pub)))
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false, fabricerr.Wrap(fabricerr.CryptoError, "invalid signature hex", err)
	}
	return ed25519.Verify(ed25519.PublicKey(pub), data, sig), nil
}
