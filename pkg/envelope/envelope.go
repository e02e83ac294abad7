// Package envelope implements the content-addressed message envelope
// (C3) and the canonical-JSON serialization every crypto operation in
// this module signs over. Canonicalization is delegated to
// github.com/gowebpki/jcs (RFC 8785) rather than hand-rolled, following
// the teacher's practice of reaching for a real JCS library rather than
// reinventing map-key sorting and HTML-escape suppression in-package.
package envelope

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// CanonicalJSON returns the RFC 8785 canonical JSON encoding of v: keys
// sorted, no insignificant whitespace, no HTML escaping.
func CanonicalJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("envelope: marshal: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("envelope: canonicalize: %w", err)
	}
	return canonical, nil
}

// ContentHash returns the SHA-256 hex digest of v's canonical JSON form.
func ContentHash(v interface{}) (string, error) {
	b, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Message returns the content-addressed URI "hash://sha256/{hex}" of
// the envelope [uri, data] described by spec.md §4.3; the caller pairs
// it with data. Identical
// data (byte-identical canonical JSON) always yields the same URI
// (P2); any change to data changes the URI.
func Message(data interface{}) (uri string, err error) {
	digest, err := ContentHash(data)
	if err != nil {
		return "", err
	}
	return "hash://sha256/" + digest, nil
}
