package obfuscate_test

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/Mindburn-Labs/fabric/pkg/fabriccrypto"
	"github.com/Mindburn-Labs/fabric/pkg/obfuscate"
	"github.com/Mindburn-Labs/fabric/pkg/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDerivePath_Deterministic covers P10.
func TestDerivePath_Deterministic(t *testing.T) {
	a := obfuscate.DerivePath("s3cr3t", "serverpub", "alice", "wallet-read", "p1")
	b := obfuscate.DerivePath("s3cr3t", "serverpub", "alice", "wallet-read", "p1")
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)

	c := obfuscate.DerivePath("s3cr3t", "serverpub", "bob", "wallet-read", "p1")
	assert.NotEqual(t, a, c)
}

func TestWriteRead_RoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := memstore.New()

	serverSigner, err := fabriccrypto.NewEd25519Signer()
	require.NoError(t, err)

	recipientPriv, recipientPub, err := fabriccrypto.GenerateX25519Keypair()
	require.NoError(t, err)
	recipientPubHex := hex.EncodeToString(recipientPub[:])

	s := obfuscate.New(backend, serverSigner, serverSigner.PublicKey(), "s3cr3t")

	uri, res, err := s.Write(ctx, recipientPubHex, "alice", "wallet-read", []byte("secret balance"), "p1")
	require.NoError(t, err)
	require.True(t, res.Accepted)
	assert.Contains(t, uri, "mutable://accounts/"+serverSigner.PublicKey()+"/")

	plaintext, err := s.Read(ctx, recipientPriv, serverSigner.PublicKey(), "alice", "wallet-read", "p1")
	require.NoError(t, err)
	assert.Equal(t, "secret balance", string(plaintext))
}
