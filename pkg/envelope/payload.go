package envelope

import (
	"encoding/json"
)

// Output is one [uri, value] pair of a MessageData envelope's fan-out.
type Output struct {
	URI   string
	Value json.RawMessage
}

// UnmarshalJSON decodes Output from its wire tuple form ["uri", value].
func (o *Output) UnmarshalJSON(b []byte) error {
	var tuple [2]json.RawMessage
	if err := json.Unmarshal(b, &tuple); err != nil {
		return err
	}
	if err := json.Unmarshal(tuple[0], &o.URI); err != nil {
		return err
	}
	o.Value = tuple[1]
	return nil
}

// MarshalJSON encodes Output back to its wire tuple form.
func (o Output) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]json.RawMessage{
		mustMarshal(o.URI), o.Value,
	})
}

func mustMarshal(v interface{}) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// MessageData is the canonical envelope shape this implementation picks
// for the Open Question noted in spec.md §9: a flat {inputs, outputs}
// object, optionally nested as the payload of an AuthenticatedMessage or
// SignedEncryptedMessage. See SPEC_FULL.md §1.
type MessageData struct {
	Inputs  []string `json:"inputs,omitempty"`
	Outputs []Output `json:"outputs"`
}

// Auth is one signer's attestation over a payload.
type Auth struct {
	PubKey    string `json:"pubkey"`
	Signature string `json:"signature"`
}

// AuthenticatedMessage wraps an arbitrary payload with one or more
// signer attestations (spec.md §6).
type AuthenticatedMessage struct {
	Auth    []Auth          `json:"auth"`
	Payload json.RawMessage `json:"payload"`
}

// EncryptedPayload is the wire shape of an encrypted payload (spec.md §6).
type EncryptedPayload struct {
	Data                string `json:"data"`
	Nonce               string `json:"nonce"`
	EphemeralPublicKey  string `json:"ephemeralPublicKey"`
}

// Kind identifies which recognised shape a decoded data value has.
type Kind int

const (
	KindRaw Kind = iota
	KindMessageData
	KindAuthenticated
	KindEncrypted
)

// Classify inspects raw JSON and returns the recognised Payload shape
// plus the decoded value, dispatching on structure instead of runtime
// duck-typing (spec.md §9 "Dynamic typing & value-shape detection").
func Classify(raw json.RawMessage) (Kind, interface{}, error) {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		// Not a JSON object at all: opaque raw data.
		return KindRaw, nil, nil
	}

	if authRaw, ok := generic["auth"]; ok {
		if _, hasPayload := generic["payload"]; hasPayload {
			var am AuthenticatedMessage
			if err := json.Unmarshal(raw, &am); err != nil {
				return KindRaw, nil, err
			}
			_ = authRaw

			var ep EncryptedPayload
			if json.Unmarshal(am.Payload, &ep) == nil && ep.Data != "" && ep.Nonce != "" {
				return KindEncrypted, &am, nil
			}
			return KindAuthenticated, &am, nil
		}
	}

	if outputsRaw, ok := generic["outputs"]; ok {
		var outputs []Output
		if err := json.Unmarshal(outputsRaw, &outputs); err == nil {
			var md MessageData
			if err := json.Unmarshal(raw, &md); err != nil {
				return KindRaw, nil, err
			}
			return KindMessageData, &md, nil
		}
	}

	return KindRaw, nil, nil
}
