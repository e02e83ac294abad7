// Package fabricuri builds the canonical URI literals spec.md §6 names
// bit-exact: config/status/metrics/update/network-manifest. Grounded on
// the teacher's pkg/registry's key-composition helpers, generalized
// from receipt/session keys to the fabric's account-keyed URI scheme.
package fabricuri

import "fmt"

// ConfigURI is where an operator publishes a node's ManagedNodeConfig.
func ConfigURI(operatorPubKeyHex, nodeID string) string {
	return fmt.Sprintf("mutable://accounts/%s/nodes/%s/config", operatorPubKeyHex, nodeID)
}

// StatusURI is where a node publishes its NodeStatus heartbeat.
func StatusURI(nodeKeyHex string) string {
	return fmt.Sprintf("mutable://accounts/%s/status", nodeKeyHex)
}

// MetricsURI is where a node publishes its NodeMetrics window.
func MetricsURI(nodeKeyHex string) string {
	return fmt.Sprintf("mutable://accounts/%s/metrics", nodeKeyHex)
}

// UpdateURI is where an operator publishes a signed ModuleUpdate.
func UpdateURI(operatorPubKeyHex, nodeID string) string {
	return fmt.Sprintf("mutable://accounts/%s/nodes/%s/update", operatorPubKeyHex, nodeID)
}

// NetworkManifestURI is where an operator publishes a network's manifest.
func NetworkManifestURI(operatorPubKeyHex, networkID string) string {
	return fmt.Sprintf("mutable://accounts/%s/networks/%s", operatorPubKeyHex, networkID)
}

// EnvelopeURI builds a content-addressed envelope URI from a 64-hex
// SHA-256 digest (the non-prefixed form envelope.Message already
// returns the full "hash://sha256/{hex}" string; this helper exists for
// callers that only have the digest).
func EnvelopeURI(hexDigest string) string {
	return "hash://sha256/" + hexDigest
}
