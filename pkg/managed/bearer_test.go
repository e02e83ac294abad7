package managed_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/Mindburn-Labs/fabric/pkg/managed"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signBearerToken(t *testing.T, priv ed25519.PrivateKey, nodeID string, expiresAt time.Time) string {
	t.Helper()
	claims := managed.OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		NodeID: nodeID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(priv)
	require.NoError(t, err)
	return signed
}

func TestVerifyOperatorBearerToken_AcceptsValidToken(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	pubHex := hex.EncodeToString(pub)

	token := signBearerToken(t, priv, "n1", time.Now().Add(time.Hour))

	claims, err := managed.VerifyOperatorBearerToken(token, pubHex, "n1")
	require.NoError(t, err)
	assert.Equal(t, "n1", claims.NodeID)
}

func TestVerifyOperatorBearerToken_RejectsWrongNode(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	pubHex := hex.EncodeToString(pub)

	token := signBearerToken(t, priv, "n1", time.Now().Add(time.Hour))

	_, err = managed.VerifyOperatorBearerToken(token, pubHex, "n2")
	assert.Error(t, err)
}

func TestVerifyOperatorBearerToken_RejectsWrongKey(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	otherPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	token := signBearerToken(t, priv, "n1", time.Now().Add(time.Hour))

	_, err = managed.VerifyOperatorBearerToken(token, hex.EncodeToString(otherPub), "n1")
	assert.Error(t, err)
}

func TestVerifyOperatorBearerToken_RejectsExpired(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	pubHex := hex.EncodeToString(pub)

	token := signBearerToken(t, priv, "n1", time.Now().Add(-time.Hour))

	_, err = managed.VerifyOperatorBearerToken(token, pubHex, "n1")
	assert.Error(t, err)
}
