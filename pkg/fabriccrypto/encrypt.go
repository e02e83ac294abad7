package fabriccrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"crypto/sha256"

	"github.com/Mindburn-Labs/fabric/pkg/envelope"
	"github.com/Mindburn-Labs/fabric/pkg/fabricerr"
)

const nonceSize = 12 // 96-bit AES-GCM nonce, spec.md §4.2

// Encrypted is the decoded form of spec.md's EncryptedPayload wire shape.
type Encrypted struct {
	Data               string `json:"data"`
	Nonce              string `json:"nonce"`
	EphemeralPublicKey string `json:"ephemeralPublicKey"`
}

// GenerateX25519Keypair returns a fresh X25519 keypair (priv, pub), both
// 32 bytes.
func GenerateX25519Keypair() (priv, pub [32]byte, err error) {
	if _, err = io.ReadFull(rand.Reader, priv[:]); err != nil {
		return priv, pub, fabricerr.Wrap(fabricerr.CryptoError, "generate x25519 private key", err)
	}
	curve25519.ScalarBaseMult(&pub, &priv)
	return priv, pub, nil
}

// sharedAESKey runs X25519 ECDH between priv and peerPub, then derives a
// 256-bit AES key from the shared secret via HKDF-SHA256 (the teacher's
// kms.go works from a flat on-disk key; deriving via HKDF here replaces
// that with the ECDH-shared-secret case spec.md §4.2 calls for).
func sharedAESKey(priv [32]byte, peerPub []byte) ([]byte, error) {
	if len(peerPub) != 32 {
		return nil, fabricerr.New(fabricerr.CryptoError, "invalid peer public key size")
	}
	var shared [32]byte
	curve25519.ScalarMult(&shared, &priv, (*[32]byte)(peerPub))

	kdf := hkdf.New(sha256.New, shared[:], nil, []byte("fabric-ecdh-aesgcm"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fabricerr.Wrap(fabricerr.CryptoError, "derive aes key", err)
	}
	return key, nil
}

// Encrypt encrypts data for recipientPubHex: an ephemeral X25519 keypair
// is generated, ECDH'd against the recipient's public key to derive an
// AES-256-GCM key, and the ciphertext/nonce/ephemeral-pub are returned
// base64/hex-encoded per spec.md §4.2.
func Encrypt(data []byte, recipientPubHex string) (*Encrypted, error) {
	recipientPub, err := hex.DecodeString(recipientPubHex)
	if err != nil {
		return nil, fabricerr.Wrap(fabricerr.CryptoError, "invalid recipient public key hex", err)
	}

	ephPriv, ephPub, err := GenerateX25519Keypair()
	if err != nil {
		return nil, err
	}

	key, err := sharedAESKey(ephPriv, recipientPub)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fabricerr.Wrap(fabricerr.CryptoError, "new aes cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fabricerr.Wrap(fabricerr.CryptoError, "new gcm", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fabricerr.Wrap(fabricerr.CryptoError, "generate nonce", err)
	}

	ciphertext := gcm.Seal(nil, nonce, data, nil)

	return &Encrypted{
		Data:               base64.StdEncoding.EncodeToString(ciphertext),
		Nonce:              base64.StdEncoding.EncodeToString(nonce),
		EphemeralPublicKey: hex.EncodeToString(ephPub[:]),
	}, nil
}

// Decrypt inverts Encrypt using the recipient's X25519 private key.
func Decrypt(enc *Encrypted, recipientPriv [32]byte) ([]byte, error) {
	if enc.EphemeralPublicKey == "" {
		return nil, fabricerr.New(fabricerr.CryptoError, "missing-ephemeral-key")
	}

	ephPub, err := hex.DecodeString(enc.EphemeralPublicKey)
	if err != nil {
		return nil, fabricerr.Wrap(fabricerr.CryptoError, "invalid ephemeral public key hex", err)
	}

	key, err := sharedAESKey(recipientPriv, ephPub)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fabricerr.Wrap(fabricerr.CryptoError, "new aes cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fabricerr.Wrap(fabricerr.CryptoError, "new gcm", err)
	}

	nonce, err := base64.StdEncoding.DecodeString(enc.Nonce)
	if err != nil {
		return nil, fabricerr.Wrap(fabricerr.CryptoError, "invalid nonce", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(enc.Data)
	if err != nil {
		return nil, fabricerr.Wrap(fabricerr.CryptoError, "invalid ciphertext", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fabricerr.Wrap(fabricerr.CryptoError, "aes-gcm tag verification failed", err)
	}
	return plaintext, nil
}

// CreateAuthenticatedMessage signs payload with every signer and wraps
// it per spec.md §4.2's createAuthenticatedMessage.
func CreateAuthenticatedMessage(payload interface{}, signers []Signer) (*envelope.AuthenticatedMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fabricerr.Wrap(fabricerr.CryptoError, "marshal payload", err)
	}

	auths := make([]envelope.Auth, 0, len(signers))
	for _, s := range signers {
		sig, err := s.Sign(payload)
		if err != nil {
			return nil, err
		}
		auths = append(auths, envelope.Auth{PubKey: s.PublicKey(), Signature: sig})
	}

	return &envelope.AuthenticatedMessage{Auth: auths, Payload: raw}, nil
}

// CreateSignedEncryptedMessage encrypts data to recipientPubHex, then has
// every signer sign the *encrypted* payload bytes (spec.md §4.2: "sign
// over the encrypted payload").
func CreateSignedEncryptedMessage(data []byte, signers []Signer, recipientPubHex string) (*envelope.AuthenticatedMessage, error) {
	enc, err := Encrypt(data, recipientPubHex)
	if err != nil {
		return nil, err
	}

	encRaw, err := json.Marshal(enc)
	if err != nil {
		return nil, fabricerr.Wrap(fabricerr.CryptoError, "marshal encrypted payload", err)
	}

	canonicalEnc, err := envelope.CanonicalJSON(enc)
	if err != nil {
		return nil, err
	}

	auths := make([]envelope.Auth, 0, len(signers))
	for _, s := range signers {
		ed, ok := s.(*Ed25519Signer)
		if !ok {
			return nil, fabricerr.New(fabricerr.CryptoError, "signer does not support raw byte signing")
		}
		auths = append(auths, envelope.Auth{
			PubKey:    s.PublicKey(),
			Signature: ed.SignBytes(canonicalEnc),
		})
	}

	return &envelope.AuthenticatedMessage{Auth: auths, Payload: encRaw}, nil
}
