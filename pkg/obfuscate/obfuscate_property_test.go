//go:build property
// +build property

package obfuscate_test

import (
	"testing"

	"github.com/Mindburn-Labs/fabric/pkg/obfuscate"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestDerivePath_Properties exercises P10 (obfuscated path determinism and
// collision-avoidance across distinct user identifiers) over generated
// inputs instead of a handful of fixed examples.
func TestDerivePath_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("same inputs derive the same hex32 handle", prop.ForAll(
		func(salt, serverPub, user, op string) bool {
			return obfuscate.DerivePath(salt, serverPub, user, op) == obfuscate.DerivePath(salt, serverPub, user, op)
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.Property("derived handle is always 32 lowercase hex characters", prop.ForAll(
		func(salt, serverPub, user, op string) bool {
			h := obfuscate.DerivePath(salt, serverPub, user, op)
			if len(h) != 32 {
				return false
			}
			for _, r := range h {
				if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')) {
					return false
				}
			}
			return true
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.Property("distinct users derive distinct handles under a fixed key", prop.ForAll(
		func(salt, serverPub, userA, userB, op string) bool {
			if userA == userB {
				return true
			}
			return obfuscate.DerivePath(salt, serverPub, userA, op) != obfuscate.DerivePath(salt, serverPub, userB, op)
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
