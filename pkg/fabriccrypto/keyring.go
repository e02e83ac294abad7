package fabriccrypto

import (
	"sync"

	"github.com/Mindburn-Labs/fabric/pkg/fabricerr"
)

// KeyRing holds known verification keys by hex public key, supporting
// rotation without downtime (generalized from the teacher's
// pkg/crypto/keyring.go, which keyed the same idea off DecisionRecord-
// specific signature types).
type KeyRing struct {
	mu   sync.RWMutex
	keys map[string]bool // pubkey hex -> trusted
}

// NewKeyRing returns an empty KeyRing.
func NewKeyRing() *KeyRing {
	return &KeyRing{keys: make(map[string]bool)}
}

// Trust marks pubHex as a trusted verification key.
func (k *KeyRing) Trust(pubHex string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[pubHex] = true
}

// Revoke removes pubHex from the trusted set.
func (k *KeyRing) Revoke(pubHex string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.keys, pubHex)
}

// IsTrusted reports whether pubHex is currently trusted.
func (k *KeyRing) IsTrusted(pubHex string) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.keys[pubHex]
}

// VerifyFromAny verifies sigHex over payload against every trusted key,
// returning the first key that validates it. Used where the signer's
// specific key id isn't known ahead of time (e.g. operator signature on
// a config envelope, spec.md §4.9).
func (k *KeyRing) VerifyFromAny(sigHex string, payload interface{}) (pubHex string, ok bool, err error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	for pub := range k.keys {
		valid, verr := Verify(pub, sigHex, payload)
		if verr != nil {
			continue
		}
		if valid {
			return pub, true, nil
		}
	}
	return "", false, nil
}

// VerifyFrom verifies that sigHex over payload was produced by expectedPub,
// which must also be a trusted key. Returns fabricerr.AuthError if not.
func (k *KeyRing) VerifyFrom(expectedPub, sigHex string, payload interface{}) error {
	if !k.IsTrusted(expectedPub) {
		return fabricerr.New(fabricerr.AuthError, "no trusted key matching "+expectedPub)
	}
	ok, err := Verify(expectedPub, sigHex, payload)
	if err != nil {
		return err
	}
	if !ok {
		return fabricerr.New(fabricerr.AuthError, "signature does not verify for "+expectedPub)
	}
	return nil
}
