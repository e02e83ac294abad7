package managed_test

import (
	"encoding/json"
	"testing"

	"github.com/Mindburn-Labs/fabric/pkg/managed"
	"github.com/Mindburn-Labs/fabric/pkg/uri"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSchema_JSONSchemaValidatorRejectsMismatch(t *testing.T) {
	cfg := managed.ManagedNodeConfig{
		SchemaInline: json.RawMessage(`{
			"mutable://open": {
				"kind": "jsonSchema",
				"schema": {
					"type": "object",
					"required": ["name"],
					"properties": {"name": {"type": "string"}}
				}
			}
		}`),
	}

	registry, err := managed.LoadSchema(&cfg)
	require.NoError(t, err)

	v, err := registry.Lookup("mutable://open")
	require.NoError(t, err)

	ok, err := v.Validate(&uri.ValidationContext{Value: map[string]interface{}{"name": "alice"}})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Validate(&uri.ValidationContext{Value: map[string]interface{}{"age": 5}})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecodeYAMLConfig(t *testing.T) {
	raw := []byte(`
nodeId: n1
name: test-node
server:
  port: 8080
backends:
  - type: memory
monitoring:
  heartbeatIntervalMs: 5000
  configPollIntervalMs: 10000
  metricsEnabled: true
`)
	cfg, err := managed.DecodeYAMLConfig(raw)
	require.NoError(t, err)
	assert.Equal(t, "n1", cfg.NodeID)
	assert.Equal(t, managed.BackendMemory, cfg.Backends[0].Type)
	assert.True(t, cfg.Monitoring.MetricsEnabled)
}
