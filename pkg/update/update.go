// Package update implements the update protocol (C13): polling a
// signed ModuleUpdate envelope, recognising its plaintext or
// signed+encrypted shape, and emitting onUpdateAvailable once for each
// version greater (by semver) than the last one emitted. A version that
// is not greater, including a distinct lower one, is ignored. Grounded on the teacher's versioning/version.go
// Parse/Compare contract, re-expressed over github.com/Masterminds/semver/v3
// instead of a hand-rolled regex parser.
package update

import (
	"context"
	"encoding/json"

	"github.com/Masterminds/semver/v3"
	"github.com/Mindburn-Labs/fabric/pkg/envelope"
	"github.com/Mindburn-Labs/fabric/pkg/fabriccrypto"
	"github.com/Mindburn-Labs/fabric/pkg/fabricerr"
	"github.com/Mindburn-Labs/fabric/pkg/store"
)

// ModuleUpdate is an operator-signed software update manifest (spec.md §4.11).
type ModuleUpdate struct {
	Version     string `json:"version"`
	ModuleURL   string `json:"moduleUrl"`
	Description string `json:"description,omitempty"`
}

// Checker polls a ModuleUpdate URI and fires a callback once per new
// version, in ascending semver order.
type Checker struct {
	backend           store.Backend
	uri               string
	operatorPubHex    string
	nodePriv          [32]byte
	lastVersion       *semver.Version
	onUpdateAvailable func(ModuleUpdate)
}

// NewChecker returns an update checker polling uri for updates signed
// by operatorPubHex, decrypting with nodePriv when the payload is
// encrypted.
func NewChecker(backend store.Backend, uri, operatorPubHex string, nodePriv [32]byte, onUpdateAvailable func(ModuleUpdate)) *Checker {
	return &Checker{
		backend:           backend,
		uri:               uri,
		operatorPubHex:    operatorPubHex,
		nodePriv:          nodePriv,
		onUpdateAvailable: onUpdateAvailable,
	}
}

// Poll performs one tick: read the update URI, verify+decrypt as
// needed, and fire onUpdateAvailable if the version is new and greater
// than the last one seen.
func (c *Checker) Poll(ctx context.Context) error {
	res, err := c.backend.Read(ctx, c.uri)
	if err != nil {
		return fabricerr.Wrap(fabricerr.TransportError, "read update manifest", err)
	}
	if !res.Success {
		return nil
	}

	raw, err := json.Marshal(res.Record.Data)
	if err != nil {
		return fabricerr.Wrap(fabricerr.TransportError, "re-marshal update record", err)
	}

	kind, val, err := envelope.Classify(raw)
	if err != nil {
		return fabricerr.Wrap(fabricerr.CryptoError, "classify update envelope", err)
	}

	var payload []byte
	switch kind {
	case envelope.KindEncrypted:
		am := val.(*envelope.AuthenticatedMessage)
		if verr := c.verifyEncrypted(am); verr != nil {
			return verr
		}
		var enc envelope.EncryptedPayload
		if uerr := json.Unmarshal(am.Payload, &enc); uerr != nil {
			return fabricerr.Wrap(fabricerr.CryptoError, "decode encrypted update payload", uerr)
		}
		payload, err = fabriccrypto.Decrypt(&fabriccrypto.Encrypted{
			Data:               enc.Data,
			Nonce:              enc.Nonce,
			EphemeralPublicKey: enc.EphemeralPublicKey,
		}, c.nodePriv)
		if err != nil {
			return fabricerr.Wrap(fabricerr.CryptoError, "decrypt update manifest", err)
		}
	case envelope.KindAuthenticated:
		am := val.(*envelope.AuthenticatedMessage)
		var generic interface{}
		if uerr := json.Unmarshal(am.Payload, &generic); uerr != nil {
			return fabricerr.Wrap(fabricerr.TransportError, "decode update payload", uerr)
		}
		canonical, cerr := envelope.CanonicalJSON(generic)
		if cerr != nil {
			return fabricerr.Wrap(fabricerr.CryptoError, "canonicalize update payload", cerr)
		}
		ok, verr := verifyAny(am.Auth, c.operatorPubHex, canonical)
		if verr != nil || !ok {
			return fabricerr.New(fabricerr.AuthError, "update manifest signature invalid")
		}
		payload = am.Payload
	default:
		return fabricerr.New(fabricerr.ValidationError, "update manifest is not a signed envelope")
	}

	var mu ModuleUpdate
	if err := json.Unmarshal(payload, &mu); err != nil {
		return fabricerr.Wrap(fabricerr.TransportError, "decode module update", err)
	}

	v, err := semver.NewVersion(mu.Version)
	if err != nil {
		return fabricerr.Wrap(fabricerr.InputError, "invalid update version", err)
	}

	if c.lastVersion != nil && !v.GreaterThan(c.lastVersion) {
		return nil
	}

	c.lastVersion = v
	if c.onUpdateAvailable != nil {
		c.onUpdateAvailable(mu)
	}
	return nil
}

func (c *Checker) verifyEncrypted(am *envelope.AuthenticatedMessage) error {
	var enc envelope.EncryptedPayload
	if err := json.Unmarshal(am.Payload, &enc); err != nil {
		return fabricerr.Wrap(fabricerr.CryptoError, "decode encrypted update payload", err)
	}
	ok, err := verifyAny(am.Auth, c.operatorPubHex, mustCanonical(&enc))
	if err != nil || !ok {
		return fabricerr.New(fabricerr.AuthError, "update manifest signature invalid")
	}
	return nil
}

func mustCanonical(enc *envelope.EncryptedPayload) []byte {
	b, err := envelope.CanonicalJSON(enc)
	if err != nil {
		return nil
	}
	return b
}

func verifyAny(auths []envelope.Auth, expectedPubHex string, data []byte) (bool, error) {
	for _, a := range auths {
		if a.PubKey != expectedPubHex {
			continue
		}
		return fabriccrypto.VerifyBytes(a.PubKey, a.Signature, data)
	}
	return false, nil
}
