// Package obfuscate implements the obfuscated path store (C10): an
// HMAC-derived handle that hides a user identifier inside a shared key
// space, plus the sign+encrypt write path and verify+decrypt read path
// layered on top of a C4 backend. Grounded on the teacher's
// pkg/identity/keyset.go HMAC-derivation idiom and pkg/kms/kms.go's
// encrypt-then-sign composition.
package obfuscate

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/Mindburn-Labs/fabric/pkg/envelope"
	"github.com/Mindburn-Labs/fabric/pkg/fabriccrypto"
	"github.com/Mindburn-Labs/fabric/pkg/fabricerr"
	"github.com/Mindburn-Labs/fabric/pkg/logging"
	"github.com/Mindburn-Labs/fabric/pkg/store"
)

var log = logging.New("obfuscate")

// DerivePath computes the deterministic hex32 handle from spec.md §3:
// HMAC_SHA256(key = salt:serverPubKey, msg = user|op|serverPubKey|params...).
// If salt is empty, it falls back to public-key-only HMAC and logs a
// warning, per spec.md §4.8's compatibility allowance.
func DerivePath(salt, serverPubKey, user, op string, params ...string) string {
	key := serverPubKey
	if salt == "" {
		log.Warnf("obfuscated path derivation running without a process salt")
	} else {
		key = salt + ":" + serverPubKey
	}

	msg := strings.Join(append([]string{user, op, serverPubKey}, params...), "|")

	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(msg))
	full := hex.EncodeToString(mac.Sum(nil))
	return full[:32]
}

// AccountURI builds the storage path for a derived handle.
func AccountURI(serverPubKey, hex32 string) string {
	return "mutable://accounts/" + serverPubKey + "/" + hex32
}

// Store layers the obfuscated-path write/read path over an underlying
// C4 backend, using the server identity's signing key and the
// recipient's X25519 public key for encryption.
type Store struct {
	backend      store.Backend
	signer       fabriccrypto.Signer
	serverPubKey string
	salt         string
}

// New returns an obfuscated-path store bound to backend, signing with
// signer and deriving handles under serverPubKey.
func New(backend store.Backend, signer fabriccrypto.Signer, serverPubKey, salt string) *Store {
	return &Store{backend: backend, signer: signer, serverPubKey: serverPubKey, salt: salt}
}

// Write derives the handle, encrypts data to recipientEncPubHex, signs
// the encrypted payload with the server identity, and persists it.
func (s *Store) Write(ctx context.Context, recipientEncPubHex, user, op string, data []byte, params ...string) (string, store.ReceiveResult, error) {
	hex32 := DerivePath(s.salt, s.serverPubKey, user, op, params...)
	uri := AccountURI(s.serverPubKey, hex32)

	signer, ok := s.signer.(*fabriccrypto.Ed25519Signer)
	if !ok {
		return uri, store.ReceiveResult{}, fabricerr.New(fabricerr.CryptoError, "signer must be ed25519 for signed+encrypted payloads")
	}

	msg, err := fabriccrypto.CreateSignedEncryptedMessage(data, []fabriccrypto.Signer{signer}, recipientEncPubHex)
	if err != nil {
		return uri, store.ReceiveResult{}, fabricerr.Wrap(fabricerr.CryptoError, "encrypt obfuscated record", err)
	}

	res, err := s.backend.Receive(ctx, uri, msg)
	return uri, res, err
}

// Read reads the record at (user, op, params), verifies the signature
// over its encrypted payload, and decrypts it with recipientPriv.
func (s *Store) Read(ctx context.Context, recipientPriv [32]byte, expectedSignerPubHex, user, op string, params ...string) ([]byte, error) {
	hex32 := DerivePath(s.salt, s.serverPubKey, user, op, params...)
	uri := AccountURI(s.serverPubKey, hex32)

	res, err := s.backend.Read(ctx, uri)
	if err != nil {
		return nil, fabricerr.Wrap(fabricerr.TransportError, "read obfuscated record", err)
	}
	if !res.Success {
		return nil, fabricerr.New(fabricerr.NotFound, "not-found")
	}

	am, ok := res.Record.Data.(*envelope.AuthenticatedMessage)
	if !ok {
		return nil, fabricerr.New(fabricerr.CryptoError, "record is not an authenticated message")
	}

	var encPayload envelope.EncryptedPayload
	if err := json.Unmarshal(am.Payload, &encPayload); err != nil {
		return nil, fabricerr.Wrap(fabricerr.CryptoError, "decode encrypted payload", err)
	}

	if err := verifyAny(am, &encPayload, expectedSignerPubHex); err != nil {
		return nil, err
	}

	return fabriccrypto.Decrypt(&fabriccrypto.Encrypted{
		Data:               encPayload.Data,
		Nonce:              encPayload.Nonce,
		EphemeralPublicKey: encPayload.EphemeralPublicKey,
	}, recipientPriv)
}

// verifyAny checks that one of am's signatures, from expectedPubHex,
// covers the encrypted payload's canonical JSON — the exact bytes
// CreateSignedEncryptedMessage signed (spec.md §4.2).
func verifyAny(am *envelope.AuthenticatedMessage, encPayload *envelope.EncryptedPayload, expectedPubHex string) error {
	for _, a := range am.Auth {
		if a.PubKey != expectedPubHex {
			continue
		}
		ok, err := fabriccrypto.Verify(a.PubKey, a.Signature, encPayload)
		if err == nil && ok {
			return nil
		}
	}
	return fabricerr.New(fabricerr.AuthError, "no valid signature from expected signer")
}
