package fabriccrypto_test

import (
	"encoding/hex"
	"testing"

	"github.com/Mindburn-Labs/fabric/pkg/fabriccrypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSignVerify_Integrity covers P5: tampering flips verification.
func TestSignVerify_Integrity(t *testing.T) {
	signer, err := fabriccrypto.NewEd25519Signer()
	require.NoError(t, err)

	payload := map[string]interface{}{"uri": "mutable://open/x", "v": 1}
	sig, err := signer.Sign(payload)
	require.NoError(t, err)

	ok, err := fabriccrypto.Verify(signer.PublicKey(), sig, payload)
	require.NoError(t, err)
	assert.True(t, ok)

	tampered := map[string]interface{}{"uri": "mutable://open/x", "v": 2}
	ok, err = fabriccrypto.Verify(signer.PublicKey(), sig, tampered)
	require.NoError(t, err)
	assert.False(t, ok)

	badSig := sig[:len(sig)-2] + "00"
	ok, err = fabriccrypto.Verify(signer.PublicKey(), badSig, payload)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEncryptDecrypt_WrongKeyFails(t *testing.T) {
	_, pub, err := fabriccrypto.GenerateX25519Keypair()
	require.NoError(t, err)
	priv, pub2, err := fabriccrypto.GenerateX25519Keypair()
	require.NoError(t, err)
	_ = pub2

	plaintext := []byte("hello fabric")
	enc, err := fabriccrypto.Encrypt(plaintext, hex.EncodeToString(pub[:]))
	require.NoError(t, err)

	// Decrypting with the wrong key fails.
	_, err = fabriccrypto.Decrypt(enc, priv)
	assert.Error(t, err)
}

func TestEncryptDecrypt_SameKeypair(t *testing.T) {
	priv, pub, err := fabriccrypto.GenerateX25519Keypair()
	require.NoError(t, err)

	plaintext := []byte("hello fabric")
	enc, err := fabriccrypto.Encrypt(plaintext, hex.EncodeToString(pub[:]))
	require.NoError(t, err)

	// Encrypt uses an ephemeral keypair on our side; to decrypt we need
	// the recipient's static private key paired with Encrypt's pub.
	out, err := fabriccrypto.Decrypt(enc, priv)
	require.NoError(t, err)
	assert.Equal(t, plaintext, out)
}

func TestDeriveKeyFromSeed_Deterministic(t *testing.T) {
	k1 := fabriccrypto.DeriveKeyFromSeed([]byte("seed"), []byte("salt"), 0)
	k2 := fabriccrypto.DeriveKeyFromSeed([]byte("seed"), []byte("salt"), 0)
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 64) // 32 bytes hex-encoded
}
