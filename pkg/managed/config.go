// Package managed implements the managed-node runtime (C11): the
// Bootstrap -> LoadingConfig -> Running -> Reconfiguring -> Stopping
// lifecycle a node follows once it has an operator, a config URL and a
// node identity. Grounded on the teacher's cmd/bootstrap/main.go
// sequential-init-with-fatal-on-critical-error texture for Bootstrap,
// and pkg/compliance/regwatch/swarm.go's Start/Stop/ticker idiom for
// every periodic worker in workers.go.
package managed

import (
	"context"
	"encoding/json"

	"github.com/Mindburn-Labs/fabric/pkg/envelope"
	"github.com/Mindburn-Labs/fabric/pkg/fabriccrypto"
	"github.com/Mindburn-Labs/fabric/pkg/fabricerr"
	"github.com/Mindburn-Labs/fabric/pkg/peer"
	"github.com/Mindburn-Labs/fabric/pkg/store"
	"gopkg.in/yaml.v3"
)

// BackendType names a configurable backend implementation (spec.md §3).
type BackendType string

const (
	BackendMemory     BackendType = "memory"
	BackendPostgreSQL BackendType = "postgresql"
	BackendMongoDB    BackendType = "mongodb"
	BackendHTTP       BackendType = "http"
)

// BackendSpec configures one backend instance.
type BackendSpec struct {
	Type    BackendType            `json:"type" yaml:"type"`
	URL     string                 `json:"url" yaml:"url"`
	Options map[string]interface{} `json:"options,omitempty" yaml:"options,omitempty"`
}

// PeerSpec configures one replication peer.
type PeerSpec struct {
	URL       string         `json:"url" yaml:"url"`
	Direction peer.Direction `json:"direction" yaml:"direction"`
}

// MonitoringConfig tunes the periodic workers (spec.md §4.9).
type MonitoringConfig struct {
	HeartbeatIntervalMs  int64  `json:"heartbeatIntervalMs" yaml:"heartbeatIntervalMs"`
	ConfigPollIntervalMs int64  `json:"configPollIntervalMs" yaml:"configPollIntervalMs"`
	MetricsEnabled       bool   `json:"metricsEnabled" yaml:"metricsEnabled"`
	ReadinessCacheURL    string `json:"readinessCacheUrl,omitempty" yaml:"readinessCacheUrl,omitempty"` // optional Redis address backing pkg/peer's ReadinessCache
}

// ServerConfig describes the node's own listening surface.
type ServerConfig struct {
	Port       int    `json:"port" yaml:"port"`
	CORSOrigin string `json:"corsOrigin,omitempty" yaml:"corsOrigin,omitempty"`
}

// ManagedNodeConfig is the operator-published configuration document
// (spec.md §3). Unknown fields are ignored by virtue of json.Unmarshal.
// An unknown backend.type makes BuildBackend fail for that spec, and the
// node then rejects the whole config (see BuildBackends).
type ManagedNodeConfig struct {
	ConfigVersion   int              `json:"configVersion" yaml:"configVersion"`
	NodeID          string           `json:"nodeId" yaml:"nodeId"`
	Name            string           `json:"name" yaml:"name"`
	Server          ServerConfig     `json:"server" yaml:"server"`
	Backends        []BackendSpec    `json:"backends" yaml:"backends"`
	SchemaModuleURL string           `json:"schemaModuleUrl,omitempty" yaml:"schemaModuleUrl,omitempty"`
	SchemaInline    json.RawMessage  `json:"schemaInline,omitempty" yaml:"-"`
	Peers           []PeerSpec       `json:"peers,omitempty" yaml:"peers,omitempty"`
	Monitoring      MonitoringConfig `json:"monitoring" yaml:"monitoring"`
	NetworkID       string           `json:"networkId,omitempty" yaml:"networkId,omitempty"`
	Tags            []string         `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// ConfigDocument pairs a loaded config with its record timestamp, so
// callers can implement P9 (config monotonicity) off Timestamp alone.
type ConfigDocument struct {
	Config    ManagedNodeConfig
	Timestamp int64
}

// LoadConfig reads the config URI, verifies it carries at least one
// valid signature from operatorPubHex, and decodes payload as
// ManagedNodeConfig (spec.md §4.9 LoadingConfig, scenario 5).
func LoadConfig(ctx context.Context, backend store.Backend, configURI, operatorPubHex string) (*ConfigDocument, error) {
	res, err := backend.Read(ctx, configURI)
	if err != nil {
		return nil, fabricerr.Wrap(fabricerr.TransportError, "read managed node config", err)
	}
	if !res.Success {
		return nil, fabricerr.New(fabricerr.ConfigError, "config not found")
	}

	raw, err := json.Marshal(res.Record.Data)
	if err != nil {
		return nil, fabricerr.Wrap(fabricerr.ConfigError, "re-marshal config record", err)
	}

	kind, val, err := envelope.Classify(raw)
	if err != nil || kind != envelope.KindAuthenticated {
		return nil, fabricerr.New(fabricerr.ConfigError, "config is not a signed envelope")
	}
	am := val.(*envelope.AuthenticatedMessage)

	ok, verr := hasValidOperatorSignature(am, operatorPubHex)
	if verr != nil {
		return nil, fabricerr.Wrap(fabricerr.ConfigError, "verify config signature", verr)
	}
	if !ok {
		return nil, fabricerr.New(fabricerr.ConfigError, "no valid signature from operator")
	}

	var cfg ManagedNodeConfig
	if err := json.Unmarshal(am.Payload, &cfg); err != nil {
		return nil, fabricerr.Wrap(fabricerr.ConfigError, "decode managed node config", err)
	}

	return &ConfigDocument{Config: cfg, Timestamp: res.Record.TS}, nil
}

// DecodeYAMLConfig parses a ManagedNodeConfig from a local YAML
// bootstrap file, the alternate encoding an operator may hand-author
// for a single-node dev/test deployment instead of publishing a signed
// config record. Unlike LoadConfig this performs no signature check;
// callers only use it for local bootstrap, never for a config fetched
// over the network.
func DecodeYAMLConfig(raw []byte) (*ManagedNodeConfig, error) {
	var cfg ManagedNodeConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fabricerr.Wrap(fabricerr.ConfigError, "decode yaml managed node config", err)
	}
	return &cfg, nil
}

// hasValidOperatorSignature verifies am against the re-canonicalized
// generic payload value, matching how CreateAuthenticatedMessage signs
// the original Go value rather than its raw wire bytes.
func hasValidOperatorSignature(am *envelope.AuthenticatedMessage, operatorPubHex string) (bool, error) {
	var generic interface{}
	if err := json.Unmarshal(am.Payload, &generic); err != nil {
		return false, err
	}
	canonical, err := envelope.CanonicalJSON(generic)
	if err != nil {
		return false, err
	}
	for _, a := range am.Auth {
		if a.PubKey != operatorPubHex {
			continue
		}
		return fabriccrypto.VerifyBytes(a.PubKey, a.Signature, canonical)
	}
	return false, nil
}
