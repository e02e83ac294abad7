package managed

import (
	"crypto/ed25519"
	"encoding/hex"

	"github.com/Mindburn-Labs/fabric/pkg/fabricerr"
	"github.com/golang-jwt/jwt/v5"
)

// OperatorClaims is the minimal claim set an operator-issued control-plane
// bearer token carries: standard registered claims plus the node it
// authorizes. This is a convenience for the out-of-scope HTTP boundary
// (spec.md never specifies an HTTP framework); managed itself never issues
// or consumes bearer tokens on its own Receive/Read path, which is
// authenticated exclusively through signed envelopes.
type OperatorClaims struct {
	jwt.RegisteredClaims
	NodeID string `json:"nodeId"`
}

// VerifyOperatorBearerToken verifies tokenString was signed with
// operatorPubHex's Ed25519 key (EdDSA) and names nodeID, so an HTTP
// front end can authorize an operator-issued control-plane request (e.g.
// "force reconfigure now") without re-deriving Ed25519 verification
// itself. It is a pure function: no backend access, no side effects.
func VerifyOperatorBearerToken(tokenString, operatorPubHex, nodeID string) (*OperatorClaims, error) {
	pubBytes, err := hex.DecodeString(operatorPubHex)
	if err != nil || len(pubBytes) != ed25519.PublicKeySize {
		return nil, fabricerr.New(fabricerr.InputError, "invalid operator public key")
	}
	pub := ed25519.PublicKey(pubBytes)

	claims := &OperatorClaims{}
	_, err = jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodEdDSA {
			return nil, fabricerr.New(fabricerr.AuthError, "unexpected bearer token signing method")
		}
		return pub, nil
	})
	if err != nil {
		return nil, fabricerr.Wrap(fabricerr.AuthError, "verify operator bearer token", err)
	}
	if claims.NodeID != nodeID {
		return nil, fabricerr.New(fabricerr.AuthError, "bearer token names a different node")
	}
	return claims, nil
}
