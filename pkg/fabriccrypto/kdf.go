package fabriccrypto

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

// DefaultPBKDF2Iterations is spec.md §4.2's default iteration count.
const DefaultPBKDF2Iterations = 100000

// DeriveKeyFromSeed runs PBKDF2-HMAC-SHA256 over seed with salt,
// returning a 256-bit key as hex. iterations <= 0 defaults to
// DefaultPBKDF2Iterations.
func DeriveKeyFromSeed(seed, salt []byte, iterations int) string {
	if iterations <= 0 {
		iterations = DefaultPBKDF2Iterations
	}
	key := pbkdf2.Key(seed, salt, iterations, 32, sha256.New)
	return hex.EncodeToString(key)
}
